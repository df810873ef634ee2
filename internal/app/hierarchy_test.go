package app

import (
	"context"
	"errors"
	"testing"

	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	rooms map[domain.RoomID]domain.Room
	edges map[[2]domain.RoomID]core.SpaceEdge
	fail  error
}

func newMemStore() *memStore {
	return &memStore{
		rooms: map[domain.RoomID]domain.Room{},
		edges: map[[2]domain.RoomID]core.SpaceEdge{},
	}
}

func (m *memStore) PutRoom(_ context.Context, r domain.Room) error {
	if m.fail != nil {
		return m.fail
	}
	m.rooms[r.ID] = r
	return nil
}

func (m *memStore) DeleteRoom(_ context.Context, id domain.RoomID) error {
	delete(m.rooms, id)
	for k := range m.edges {
		if k[0] == id || k[1] == id {
			delete(m.edges, k)
		}
	}
	return nil
}

func (m *memStore) PutEdge(_ context.Context, e core.SpaceEdge) error {
	if m.fail != nil {
		return m.fail
	}
	m.edges[[2]domain.RoomID{e.Parent, e.Child}] = e
	return nil
}

func (m *memStore) DeleteEdge(_ context.Context, parent, child domain.RoomID) error {
	delete(m.edges, [2]domain.RoomID{parent, child})
	return nil
}

func (m *memStore) Load(context.Context) ([]domain.Room, []core.SpaceEdge, error) {
	var rooms []domain.Room
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	var edges []core.SpaceEdge
	for _, e := range m.edges {
		edges = append(edges, e)
	}
	return rooms, edges, nil
}

func TestHierarchyCanonicalParent(t *testing.T) {
	ctx := context.Background()
	h := NewHierarchy(nil)

	space, err := h.CreateSpace(ctx, "team")
	require.NoError(t, err)
	room, err := h.CreateRoom(ctx, "general")
	require.NoError(t, err)
	other, err := h.CreateSpace(ctx, "other")
	require.NoError(t, err)

	_, ok := h.CanonicalParent(room.ID)
	assert.False(t, ok)

	require.NoError(t, h.AddChild(ctx, space.ID, room.ID, true))
	require.NoError(t, h.AddChild(ctx, other.ID, room.ID, false))
	parent, ok := h.CanonicalParent(room.ID)
	require.True(t, ok)
	assert.Equal(t, space.ID, parent)

	require.NoError(t, h.AddChild(ctx, other.ID, room.ID, true))
	parent, _ = h.CanonicalParent(room.ID)
	assert.Equal(t, other.ID, parent)

	children, err := h.Children(space.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Room{room}, children)

	require.NoError(t, h.RemoveChild(ctx, other.ID, room.ID))
	_, ok = h.CanonicalParent(room.ID)
	assert.False(t, ok)
}

func TestHierarchyRejectsInvalidEdges(t *testing.T) {
	ctx := context.Background()
	h := NewHierarchy(nil)
	a, _ := h.CreateSpace(ctx, "a")
	b, _ := h.CreateSpace(ctx, "b")
	room, _ := h.CreateRoom(ctx, "room")

	assert.ErrorIs(t, h.AddChild(ctx, room.ID, a.ID, true), ErrNotSpace)
	assert.ErrorIs(t, h.AddChild(ctx, "missing", a.ID, true), ErrRoomNotFound)
	assert.ErrorIs(t, h.AddChild(ctx, a.ID, "missing", true), ErrRoomNotFound)
	assert.ErrorIs(t, h.AddChild(ctx, a.ID, a.ID, true), ErrHierarchyCycle)

	require.NoError(t, h.AddChild(ctx, a.ID, b.ID, true))
	assert.ErrorIs(t, h.AddChild(ctx, b.ID, a.ID, false), ErrHierarchyCycle)

	_, err := h.Children(room.ID)
	assert.ErrorIs(t, err, ErrNotSpace)
}

func TestHierarchyForgetKeepsNavigationData(t *testing.T) {
	ctx := context.Background()
	h := NewHierarchy(nil)
	space, _ := h.CreateSpace(ctx, "team")
	sub, _ := h.CreateSpace(ctx, "sub")
	require.NoError(t, h.AddChild(ctx, space.ID, sub.ID, true))

	require.NoError(t, h.Forget(ctx, sub.ID))
	_, ok := h.Get(sub.ID)
	assert.False(t, ok)
	assert.Equal(t, []domain.Room{space}, h.List())

	assert.True(t, h.IsSpace(sub.ID))
	parent, ok := h.CanonicalParent(sub.ID)
	assert.True(t, ok)
	assert.Equal(t, space.ID, parent)

	children, err := h.Children(space.ID)
	require.NoError(t, err)
	assert.Empty(t, children)

	assert.ErrorIs(t, h.Forget(ctx, sub.ID), ErrRoomNotFound)
}

func TestHierarchyForgetSpaceOrphansLiveChildren(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := NewHierarchy(store)
	space, _ := h.CreateSpace(ctx, "team")
	room, _ := h.CreateRoom(ctx, "general")
	require.NoError(t, h.AddChild(ctx, space.ID, room.ID, true))

	require.NoError(t, h.Forget(ctx, space.ID))
	_, ok := h.CanonicalParent(room.ID)
	assert.False(t, ok)
	assert.True(t, h.IsSpace(space.ID))

	reloaded := NewHierarchy(store)
	require.NoError(t, reloaded.Load(ctx))
	_, ok = reloaded.CanonicalParent(room.ID)
	assert.False(t, ok)
}

func TestHierarchyPersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := NewHierarchy(store)
	space, _ := h.CreateSpace(ctx, "team")
	room, _ := h.CreateRoom(ctx, "general")
	require.NoError(t, h.AddChild(ctx, space.ID, room.ID, true))

	reloaded := NewHierarchy(store)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, h.List(), reloaded.List())
	parent, ok := reloaded.CanonicalParent(room.ID)
	require.True(t, ok)
	assert.Equal(t, space.ID, parent)
	assert.True(t, reloaded.IsSpace(space.ID))
}

func TestHierarchyStoreFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := NewHierarchy(store)
	space, _ := h.CreateSpace(ctx, "team")
	room, _ := h.CreateRoom(ctx, "general")

	store.fail = errors.New("disk full")
	_, err := h.CreateRoom(ctx, "lost")
	assert.ErrorIs(t, err, store.fail)
	assert.Len(t, h.List(), 2)

	assert.ErrorIs(t, h.AddChild(ctx, space.ID, room.ID, true), store.fail)
	_, ok := h.CanonicalParent(room.ID)
	assert.False(t, ok)
}
