package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Spaces/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	roomID  domain.RoomID = "!1:example.org"
	spaceID domain.RoomID = "!2:example.org"
)

type fakeHierarchy struct {
	spaces  map[domain.RoomID]bool
	parents map[domain.RoomID]domain.RoomID
}

func newFakeHierarchy() *fakeHierarchy {
	return &fakeHierarchy{
		spaces:  map[domain.RoomID]bool{spaceID: true},
		parents: map[domain.RoomID]domain.RoomID{},
	}
}

func (h *fakeHierarchy) CanonicalParent(id domain.RoomID) (domain.RoomID, bool) {
	p, ok := h.parents[id]
	return p, ok
}

func (h *fakeHierarchy) IsSpace(id domain.RoomID) bool { return h.spaces[id] }

// recorder collects every delivered target.
type recorder struct {
	mu   sync.Mutex
	seen []domain.NavigationTarget
}

func (r *recorder) listen(t domain.NavigationTarget) {
	r.mu.Lock()
	r.seen = append(r.seen, t)
	r.mu.Unlock()
}

func (r *recorder) targets() []domain.NavigationTarget {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.NavigationTarget(nil), r.seen...)
}

type fixture struct {
	hierarchy *fakeHierarchy
	state     *ViewStore
	bus       *Dispatcher
	rec       *recorder
	resolver  *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		hierarchy: newFakeHierarchy(),
		state:     NewViewStore(),
		bus:       NewDispatcher(context.Background()),
		rec:       &recorder{},
	}
	t.Cleanup(f.bus.Close)
	f.bus.Register(f.rec.listen)
	f.resolver = NewResolver(f.hierarchy, f.state, f.bus)
	return f
}

func (f *fixture) flush(t *testing.T) []domain.NavigationTarget {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.bus.Flush(ctx))
	return f.rec.targets()
}

func TestLeaveRoomNotViewedDoesNothing(t *testing.T) {
	f := newFixture(t)
	f.state.View(domain.ViewRoom(spaceID))

	_, dispatched := f.resolver.ResolveAfterLeave(roomID)
	assert.False(t, dispatched)
	assert.Empty(t, f.flush(t))
	assert.Equal(t, spaceID, f.state.ViewedRoom())
}

func TestLeaveRoomOutsideSpaceReturnsHome(t *testing.T) {
	f := newFixture(t)
	f.state.View(domain.ViewRoom(roomID))

	target, dispatched := f.resolver.ResolveAfterLeave(roomID)
	require.True(t, dispatched)
	assert.Equal(t, domain.ViewHome(), target)
	assert.Equal(t, []domain.NavigationTarget{domain.ViewHome()}, f.flush(t))
	assert.Empty(t, f.state.ViewedRoom())
}

func TestLeaveRoomInsideActiveSpaceReturnsToSpace(t *testing.T) {
	f := newFixture(t)
	f.hierarchy.parents[roomID] = spaceID
	f.state.View(domain.ViewRoom(roomID))
	f.state.SetActiveSpace(spaceID)

	f.resolver.ResolveAfterLeave(roomID)
	assert.Equal(t, []domain.NavigationTarget{domain.ViewRoom(spaceID)}, f.flush(t))
	assert.Equal(t, spaceID, f.state.ViewedRoom())
	assert.Equal(t, spaceID, f.state.ActiveSpace())
}

func TestLeaveRoomWhoseParentIsNotActiveReturnsHome(t *testing.T) {
	f := newFixture(t)
	f.hierarchy.parents[roomID] = spaceID
	f.state.View(domain.ViewRoom(roomID))

	f.resolver.ResolveAfterLeave(roomID)
	assert.Equal(t, []domain.NavigationTarget{domain.ViewHome()}, f.flush(t))
}

func TestLeaveTopLevelActiveSpaceReturnsHome(t *testing.T) {
	f := newFixture(t)
	f.state.View(domain.ViewRoom(spaceID))
	f.state.SetActiveSpace(spaceID)

	f.resolver.ResolveAfterLeave(spaceID)
	assert.Equal(t, []domain.NavigationTarget{domain.ViewHome()}, f.flush(t))
	assert.Equal(t, domain.HomeSpace, f.state.ActiveSpace())
}

func TestLeaveSubspaceReturnsToParentSpace(t *testing.T) {
	f := newFixture(t)
	f.hierarchy.spaces[roomID] = true
	f.hierarchy.parents[roomID] = spaceID
	f.state.View(domain.ViewRoom(roomID))
	f.state.SetActiveSpace(roomID)

	f.resolver.ResolveAfterLeave(roomID)
	assert.Equal(t, []domain.NavigationTarget{domain.ViewRoom(spaceID)}, f.flush(t))
	assert.Equal(t, spaceID, f.state.ActiveSpace())
}

func TestLeaveSubspaceThatIsNotActiveKeepsActiveSpace(t *testing.T) {
	f := newFixture(t)
	const other domain.RoomID = "!3:example.org"
	f.hierarchy.spaces[roomID] = true
	f.hierarchy.parents[roomID] = spaceID
	f.state.View(domain.ViewRoom(roomID))
	f.state.SetActiveSpace(other)

	f.resolver.ResolveAfterLeave(roomID)
	assert.Equal(t, []domain.NavigationTarget{domain.ViewRoom(spaceID)}, f.flush(t))
	assert.Equal(t, other, f.state.ActiveSpace())
}

func TestSpaceWithHomeParentCountsAsTopLevel(t *testing.T) {
	f := newFixture(t)
	f.hierarchy.parents[spaceID] = domain.HomeSpace
	f.state.View(domain.ViewRoom(spaceID))
	f.state.SetActiveSpace(spaceID)

	f.resolver.ResolveAfterLeave(spaceID)
	assert.Equal(t, []domain.NavigationTarget{domain.ViewHome()}, f.flush(t))
}

func TestSecondLeaveAfterResolutionIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.state.View(domain.ViewRoom(roomID))

	_, first := f.resolver.ResolveAfterLeave(roomID)
	_, second := f.resolver.ResolveAfterLeave(roomID)
	assert.True(t, first)
	assert.False(t, second)
	assert.Len(t, f.flush(t), 1)
}

func TestUnknownRoomResolvesHome(t *testing.T) {
	f := newFixture(t)
	const ghost domain.RoomID = "!gone:example.org"
	f.state.View(domain.ViewRoom(ghost))
	f.state.SetActiveSpace(spaceID)

	target, ok := f.resolver.ResolveAfterLeave(ghost)
	require.True(t, ok)
	assert.Equal(t, domain.ViewHome(), target)
}

// raceState simulates a navigation slipping in between the guard and the write.
type raceState struct {
	*ViewStore
}

func (s raceState) Navigate(from domain.RoomID, target domain.NavigationTarget) bool {
	s.ViewStore.View(domain.ViewRoom("!elsewhere:example.org"))
	return s.ViewStore.Navigate(from, target)
}

func (s raceState) NavigateInto(from domain.RoomID, target domain.NavigationTarget, space domain.RoomID) bool {
	s.ViewStore.View(domain.ViewRoom("!elsewhere:example.org"))
	return s.ViewStore.NavigateInto(from, target, space)
}

func TestConcurrentNavigationWins(t *testing.T) {
	f := newFixture(t)
	f.state.View(domain.ViewRoom(roomID))
	r := NewResolver(f.hierarchy, raceState{f.state}, f.bus)

	_, ok := r.ResolveAfterLeave(roomID)
	assert.False(t, ok)
	assert.Empty(t, f.flush(t))
	assert.Equal(t, domain.RoomID("!elsewhere:example.org"), f.state.ViewedRoom())
}

func TestConcurrentNavigationKeepsActiveSpace(t *testing.T) {
	f := newFixture(t)
	f.state.View(domain.ViewRoom(spaceID))
	f.state.SetActiveSpace(spaceID)
	r := NewResolver(f.hierarchy, raceState{f.state}, f.bus)

	_, ok := r.ResolveAfterLeave(spaceID)
	assert.False(t, ok)
	assert.Empty(t, f.flush(t))
	assert.Equal(t, spaceID, f.state.ActiveSpace())
}
