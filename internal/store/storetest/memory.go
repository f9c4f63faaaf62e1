// Package storetest provides an in-memory store.Store for tests and local
// runs without Firestore.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/store"
)

// Store is a mutex-guarded in-memory implementation of store.Store.
type Store struct {
	mu       sync.Mutex
	profiles map[string]*model.CustomerProfile
	history  map[string][]model.ChatMessage
	last     time.Time

	// Err, when set, is returned by every call.
	Err error
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		profiles: make(map[string]*model.CustomerProfile),
		history:  make(map[string][]model.ChatMessage),
	}
}

// now returns a strictly increasing timestamp so history order is stable.
func (s *Store) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// Put seeds or replaces a profile.
func (s *Store) Put(p *model.CustomerProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.profiles[p.ID] = &cp
}

func (s *Store) GetOrCreate(_ context.Context, customerID, displayName string) (*model.CustomerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	now := s.now()
	p, ok := s.profiles[customerID]
	if !ok {
		p = model.NewCustomerProfile(customerID, displayName, now)
		s.profiles[customerID] = p
	} else {
		p.LastInteractionAt = now
		if displayName != "" {
			p.DisplayName = displayName
		}
	}

	cp := *p
	return &cp, nil
}

func (s *Store) Get(_ context.Context, customerID string) (*model.CustomerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.profiles[customerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) UpdateMemory(_ context.Context, customerID string, pets []model.PetRecord) error {
	return s.mutate(customerID, func(p *model.CustomerProfile, now time.Time) {
		p.Memory = model.StructuredMemory(pets)
		p.MemoryUpdatedAt = &now
	})
}

func (s *Store) SetHandover(_ context.Context, customerID string, requested bool, reason string) error {
	return s.mutate(customerID, func(p *model.CustomerProfile, now time.Time) {
		p.HandoverRequested = requested
		p.HandoverReason = reason
		if requested {
			p.HandoverAt = &now
		} else {
			p.HandoverAt = nil
		}
	})
}

func (s *Store) SaveCart(_ context.Context, customerID string, cart *model.CartState) error {
	return s.mutate(customerID, func(p *model.CustomerProfile, _ time.Time) {
		if cart == nil {
			p.Cart = nil
			return
		}
		cp := *cart
		p.Cart = &cp
	})
}

func (s *Store) mutate(customerID string, fn func(p *model.CustomerProfile, now time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	p, ok := s.profiles[customerID]
	if !ok {
		return store.ErrNotFound
	}
	fn(p, s.now())
	return nil
}

func (s *Store) Append(_ context.Context, customerID string, role model.Role, text string) (*model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	msg := model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: s.now(),
	}
	s.history[customerID] = append(s.history[customerID], msg)
	return &msg, nil
}

func (s *Store) Recent(_ context.Context, customerID string, limit int) ([]model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	all := s.history[customerID]
	if limit < 0 {
		limit = 0
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]model.ChatMessage, len(all))
	copy(out, all)
	return out, nil
}

// Ping reports Err, so readiness checks can be exercised.
func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return errors.Join(errors.New("store unavailable"), s.Err)
	}
	return nil
}

// History returns every message of a customer, oldest first.
func (s *Store) History(customerID string) []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, len(s.history[customerID]))
	copy(out, s.history[customerID])
	return out
}

// SetErr makes every following call fail with err.
func (s *Store) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}
