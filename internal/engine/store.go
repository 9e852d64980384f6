package engine

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/peltran/giftwise/internal/config"
)

// Store errors.
var (
	ErrContactNotFound = errors.New(config.ErrContactNotFound)
	ErrContactExists   = errors.New(config.ErrContactExists)
)

// Store holds the session's contact collection in memory. There is no
// persistence: the collection lives and dies with the process.
//
// The RWMutex exists because the HTTP layer serves concurrent readers;
// all mutation goes through the few methods below.
type Store struct {
	mu       sync.RWMutex
	clock    Clock
	contacts []Contact
}

// NewStore creates an empty store using the given clock for date stamping.
func NewStore(clock Clock) *Store {
	return &Store{
		clock:    clock,
		contacts: make([]Contact, 0),
	}
}

// Len returns the number of contacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts)
}

// List returns a snapshot copy of the collection in insertion order
// (newest first, matching Add's prepend behavior).
func (s *Store) List() []Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Contact, len(s.contacts))
	copy(out, s.contacts)
	return out
}

// Get returns the contact with the given id.
func (s *Store) Get(id string) (Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contacts {
		if c.ID == id {
			return c, true
		}
	}
	return Contact{}, false
}

// Add commits a new contact. The caller provides the profile; the store
// assigns a fresh id, an empty gift history and today's lastContactDate,
// then prepends the contact so the newest entry lists first.
func (s *Store) Add(c Contact) (Contact, error) {
	if err := c.Validate(); err != nil {
		return Contact{}, err
	}

	c.ID = uuid.NewString()
	c.GiftHistory = []GiftRecord{}
	c.LastContactDate = s.clock.Now().Format(config.DateFormatFullDash)
	if c.Interests == nil {
		c.Interests = []string{}
	}

	s.mu.Lock()
	s.contacts = append([]Contact{c}, s.contacts...)
	s.mu.Unlock()

	slog.Info(config.MsgContactAdded,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyID, c.ID,
		config.LogKeyName, c.Name,
	)
	return c, nil
}

// Seed inserts pre-built contacts (e.g. from a vCard import) as-is, keeping
// their ids. Ids must be unique within the collection.
func (s *Store) Seed(contacts []Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.contacts)+len(contacts))
	for _, c := range s.contacts {
		seen[c.ID] = true
	}
	for _, c := range contacts {
		if seen[c.ID] {
			return ErrContactExists
		}
		seen[c.ID] = true
	}
	s.contacts = append(s.contacts, contacts...)
	return nil
}

// Replace swaps the stored contact with the same id for the given profile.
// The gift history is carried over from the stored contact regardless of what
// the caller sends: history entries are immutable and only AppendGift may
// grow the log.
func (s *Store) Replace(c Contact) (Contact, error) {
	if err := c.Validate(); err != nil {
		return Contact{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.contacts {
		if existing.ID != c.ID {
			continue
		}
		c.GiftHistory = existing.GiftHistory
		if c.LastContactDate == "" {
			c.LastContactDate = existing.LastContactDate
		}
		s.contacts[i] = c

		slog.Info(config.MsgContactUpdated,
			config.LogKeyComponent, config.CompStore,
			config.LogKeyID, c.ID,
		)
		return c, nil
	}
	return Contact{}, ErrContactNotFound
}

// AppendGift appends an immutable entry to the contact's gift history,
// stamped with today's date.
func (s *Store) AppendGift(id, gift string) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.contacts {
		if existing.ID != id {
			continue
		}
		entry := GiftRecord{
			Date: s.clock.Now().Format(config.DateFormatFullDash),
			Gift: gift,
		}
		existing.GiftHistory = append(existing.GiftHistory, entry)
		s.contacts[i] = existing

		slog.Info(config.MsgGiftAppended,
			config.LogKeyComponent, config.CompStore,
			config.LogKeyID, id,
			config.LogKeyValue, gift,
		)
		return existing, nil
	}
	return Contact{}, ErrContactNotFound
}
