package macro

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// NeutralProfile is used for sectors missing from the table. It scores exactly
// 50 in every environment.
func NeutralProfile() SectorProfile {
	return SectorProfile{
		PhaseScores: map[Phase]float64{
			PhaseEarlyExpansion: 5,
			PhaseMidExpansion:   5,
			PhaseLateExpansion:  5,
			PhaseRecession:      5,
		},
		Defensiveness:   5,
		GrowthPotential: 5,
	}
}

func profile(early, mid, late, recession, liquidity, rate, defensive, growth float64) SectorProfile {
	return SectorProfile{
		PhaseScores: map[Phase]float64{
			PhaseEarlyExpansion: early,
			PhaseMidExpansion:   mid,
			PhaseLateExpansion:  late,
			PhaseRecession:      recession,
		},
		LiquiditySensitivity: liquidity,
		RateSensitivity:      rate,
		Defensiveness:        defensive,
		GrowthPotential:      growth,
	}
}

// DefaultProfiles returns the built-in sector table.
func DefaultProfiles() map[string]SectorProfile {
	return map[string]SectorProfile{
		//                                   early mid late rec  liq  rate def grow
		"Technology":             profile(8, 9, 6, 3, 8, -7, 3, 9),
		"Healthcare":             profile(6, 6, 7, 8, 3, -2, 8, 7),
		"Financials":             profile(8, 7, 6, 3, 6, 6, 4, 5),
		"Consumer Discretionary": profile(9, 7, 4, 2, 7, -6, 2, 7),
		"Consumer Staples":       profile(4, 5, 7, 9, 2, -3, 9, 4),
		"Energy":                 profile(5, 7, 9, 3, 4, 3, 4, 4),
		"Industrials":            profile(9, 8, 5, 3, 6, -4, 4, 6),
		"Materials":              profile(8, 7, 8, 2, 5, -3, 3, 5),
		"Utilities":              profile(3, 4, 6, 9, 2, -8, 9, 3),
		"Real Estate":            profile(8, 6, 4, 3, 9, -9, 5, 5),
		"Communication Services": profile(7, 8, 6, 5, 6, -5, 5, 7),
	}
}

// DefaultAliases maps provider-specific sector labels to table names.
func DefaultAliases() map[string]string {
	return map[string]string{
		"information technology": "Technology",
		"tech":                   "Technology",
		"it":                     "Technology",
		"health care":            "Healthcare",
		"pharmaceuticals":        "Healthcare",
		"financial services":     "Financials",
		"financial":              "Financials",
		"banking":                "Financials",
		"consumer cyclical":      "Consumer Discretionary",
		"consumer defensive":     "Consumer Staples",
		"fmcg":                   "Consumer Staples",
		"basic materials":        "Materials",
		"metals & mining":        "Materials",
		"oil & gas":              "Energy",
		"telecommunication":      "Communication Services",
		"telecom":                "Communication Services",
		"communication":          "Communication Services",
		"realty":                 "Real Estate",
		"utility":                "Utilities",
		"capital goods":          "Industrials",
	}
}

// ProfileTable is an immutable sector lookup. Use With to derive a modified copy.
type ProfileTable struct {
	profiles map[string]SectorProfile // keyed by lower-case name
	names    map[string]string        // lower-case -> display name
	aliases  map[string]string        // lower-case alias -> lower-case name
	neutral  SectorProfile
}

// NewProfileTable builds a table. Every profile must validate; aliases must
// point at a sector in profiles.
func NewProfileTable(profiles map[string]SectorProfile, aliases map[string]string) (*ProfileTable, error) {
	t := &ProfileTable{
		profiles: make(map[string]SectorProfile, len(profiles)),
		names:    make(map[string]string, len(profiles)),
		aliases:  make(map[string]string, len(aliases)),
		neutral:  NeutralProfile(),
	}
	for name, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("sector %q: %w", name, err)
		}
		key := sectorKey(name)
		t.profiles[key] = p.clone()
		t.names[key] = strings.TrimSpace(name)
	}
	for alias, target := range aliases {
		key := sectorKey(target)
		if _, ok := t.profiles[key]; !ok {
			return nil, fmt.Errorf("alias %q points at unknown sector %q", alias, target)
		}
		t.aliases[sectorKey(alias)] = key
	}
	return t, nil
}

// DefaultProfileTable returns the built-in table.
func DefaultProfileTable() *ProfileTable {
	t, err := NewProfileTable(DefaultProfiles(), DefaultAliases())
	if err != nil {
		panic(err)
	}
	return t
}

func sectorKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Lookup resolves a sector (case-insensitive, aliases allowed). ok is false
// when the neutral profile was returned.
func (t *ProfileTable) Lookup(sector string) (name string, p SectorProfile, ok bool) {
	key := sectorKey(sector)
	if target, isAlias := t.aliases[key]; isAlias {
		key = target
	}
	if p, found := t.profiles[key]; found {
		return t.names[key], p, true
	}
	return "", t.neutral, false
}

// With returns a copy of the table with sector's profile replaced or added.
// The receiver is left untouched.
func (t *ProfileTable) With(sector string, p SectorProfile) (*ProfileTable, error) {
	if strings.TrimSpace(sector) == "" {
		return nil, fmt.Errorf("sector name is required")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("sector %q: %w", sector, err)
	}

	key := sectorKey(sector)
	if target, isAlias := t.aliases[key]; isAlias {
		key = target
	}

	next := &ProfileTable{
		profiles: make(map[string]SectorProfile, len(t.profiles)+1),
		names:    make(map[string]string, len(t.names)+1),
		aliases:  make(map[string]string, len(t.aliases)),
		neutral:  t.neutral,
	}
	for k, v := range t.profiles {
		next.profiles[k] = v
	}
	for k, v := range t.names {
		next.names[k] = v
	}
	for k, v := range t.aliases {
		next.aliases[k] = v
	}
	next.profiles[key] = p.clone()
	if _, exists := next.names[key]; !exists {
		next.names[key] = strings.TrimSpace(sector)
	}
	return next, nil
}

// Sectors returns the display names in alphabetical order.
func (t *ProfileTable) Sectors() []string {
	out := make([]string, 0, len(t.names))
	for _, n := range t.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Profiles returns a copy of the table keyed by display name.
func (t *ProfileTable) Profiles() map[string]SectorProfile {
	out := make(map[string]SectorProfile, len(t.profiles))
	for k, p := range t.profiles {
		out[t.names[k]] = p.clone()
	}
	return out
}

// ParsePhaseScores reads "early=8,mid=9,late=6,recession=3". Phase names
// accept the same forms as ParsePhase. Unlisted phases are absent from the map.
func ParsePhaseScores(s string) (map[Phase]float64, error) {
	out := make(map[Phase]float64, len(Phases))
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("phase score %q: want phase=value", part)
		}
		ph, err := ParsePhase(name)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("phase score %q: %w", part, err)
		}
		out[ph] = v
	}
	return out, nil
}
