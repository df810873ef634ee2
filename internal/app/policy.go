package app

import "github.com/dkeye/Spaces/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens when a navigation frame cannot be queued
// to a slow client.
type Policy interface {
	OnBackPressure(s *Session, target domain.NavigationTarget) BackpressureAction
}

// SimplePolicy disconnects clients that cannot keep up; a client that
// misses a navigation target has a stale view.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(*Session, domain.NavigationTarget) BackpressureAction {
	return KickMember
}
