package macro

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Store holds the process-wide environment snapshot and profile table.
//
// Readers get an immutable snapshot; writers publish a complete replacement.
// A scan that reads the snapshot once at start sees one consistent
// environment for its whole run.
type Store struct {
	env      atomic.Pointer[Environment]
	profiles atomic.Pointer[ProfileTable]

	// serializes read-modify-write on profiles
	mu sync.Mutex
}

// NewStore creates a store. A nil table means the built-in defaults.
func NewStore(env Environment, profiles *ProfileTable) (*Store, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if profiles == nil {
		profiles = DefaultProfileTable()
	}
	s := &Store{}
	e := env
	s.env.Store(&e)
	s.profiles.Store(profiles)
	return s, nil
}

// Current returns the current environment snapshot.
func (s *Store) Current() Environment {
	return *s.env.Load()
}

// SetEnvironment validates and publishes a new snapshot. A zero UpdatedAt is
// stamped with the current time.
func (s *Store) SetEnvironment(env Environment) error {
	if err := env.Validate(); err != nil {
		return err
	}
	if env.UpdatedAt.IsZero() {
		env.UpdatedAt = time.Now().UTC()
	}
	s.env.Store(&env)
	return nil
}

// Profiles returns the current profile table.
func (s *Store) Profiles() *ProfileTable {
	return s.profiles.Load()
}

// SetSectorProfile replaces or adds one sector's profile.
func (s *Store) SetSectorProfile(sector string, p SectorProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.profiles.Load().With(sector, p)
	if err != nil {
		return fmt.Errorf("set sector profile: %w", err)
	}
	s.profiles.Store(next)
	return nil
}

// Snapshot returns an engine bound to the current table together with the
// current environment. Scans call this once and reuse both.
func (s *Store) Snapshot() (*Engine, Environment) {
	return NewEngine(s.Profiles()), s.Current()
}
