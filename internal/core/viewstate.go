package core

import (
	"sync"

	"github.com/dkeye/Spaces/internal/domain"
)

// ViewStore holds one client's viewed room and active space.
type ViewStore struct {
	mu     sync.RWMutex
	viewed domain.RoomID
	active domain.RoomID
}

func NewViewStore() *ViewStore {
	return &ViewStore{active: domain.HomeSpace}
}

func (s *ViewStore) ViewedRoom() domain.RoomID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewed
}

func (s *ViewStore) ActiveSpace() domain.RoomID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *ViewStore) SetActiveSpace(id domain.RoomID) {
	if id.IsHome() {
		id = domain.HomeSpace
	}
	s.mu.Lock()
	s.active = id
	s.mu.Unlock()
}

// View unconditionally follows target.
func (s *ViewStore) View(target domain.NavigationTarget) {
	s.mu.Lock()
	s.viewed = target.Viewed()
	s.mu.Unlock()
}

func (s *ViewStore) Navigate(from domain.RoomID, target domain.NavigationTarget) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewed != from {
		return false
	}
	s.viewed = target.Viewed()
	return true
}

func (s *ViewStore) NavigateInto(from domain.RoomID, target domain.NavigationTarget, space domain.RoomID) bool {
	if space.IsHome() {
		space = domain.HomeSpace
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewed != from {
		return false
	}
	s.viewed = target.Viewed()
	s.active = space
	return true
}

// LeaveSpace falls back to home if space is the active space.
func (s *ViewStore) LeaveSpace(space domain.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != space {
		return false
	}
	s.active = domain.HomeSpace
	return true
}
