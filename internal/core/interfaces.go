// Package core defines the navigation engine: the per-session view store,
// the ordered navigation bus and the resolver that decides where a client
// goes after leaving the room it was looking at. Transport and storage stay
// behind the interfaces declared here.
package core

import (
	"context"

	"github.com/dkeye/Spaces/internal/domain"
)

// Frame is a raw payload queued to a client.
type Frame []byte

type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// SpaceHierarchy answers structural questions about rooms and spaces.
// Both methods must keep answering for rooms that were forgotten.
type SpaceHierarchy interface {
	CanonicalParent(id domain.RoomID) (domain.RoomID, bool)
	IsSpace(id domain.RoomID) bool
}

// ViewState is what one client is currently looking at.
type ViewState interface {
	ViewedRoom() domain.RoomID
	ActiveSpace() domain.RoomID
	SetActiveSpace(domain.RoomID)
	// Navigate applies target only if from is still the viewed room.
	Navigate(from domain.RoomID, target domain.NavigationTarget) bool
	// NavigateInto is Navigate that also switches the active space to
	// space in the same step.
	NavigateInto(from domain.RoomID, target domain.NavigationTarget, space domain.RoomID) bool
}

// Bus publishes navigation targets to whoever listens.
type Bus interface {
	Dispatch(domain.NavigationTarget)
}

type Listener func(domain.NavigationTarget)

type ListenerRef uint64

// SpaceEdge links a space to one of its children.
type SpaceEdge struct {
	Parent    domain.RoomID `json:"parent"`
	Child     domain.RoomID `json:"child"`
	Canonical bool          `json:"canonical"`
}

// RoomStore persists rooms and the space graph between restarts.
type RoomStore interface {
	PutRoom(ctx context.Context, room domain.Room) error
	DeleteRoom(ctx context.Context, id domain.RoomID) error
	PutEdge(ctx context.Context, edge SpaceEdge) error
	DeleteEdge(ctx context.Context, parent, child domain.RoomID) error
	Load(ctx context.Context) ([]domain.Room, []SpaceEdge, error)
}
