package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dkeye/Spaces/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flushWithin(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Flush(ctx))
}

func TestDispatcherDeliversInPublishOrder(t *testing.T) {
	d := NewDispatcher(context.Background())
	defer d.Close()

	a, b := &recorder{}, &recorder{}
	d.Register(a.listen)
	d.Register(b.listen)

	var want []domain.NavigationTarget
	for i := 0; i < 100; i++ {
		target := domain.ViewRoom(domain.RoomID(fmt.Sprintf("!%d:example.org", i)))
		if i%7 == 0 {
			target = domain.ViewHome()
		}
		want = append(want, target)
		d.Dispatch(target)
	}
	flushWithin(t, d)

	assert.Equal(t, want, a.targets())
	assert.Equal(t, want, b.targets())
}

func TestDispatcherDeliversAsynchronously(t *testing.T) {
	d := NewDispatcher(context.Background())
	defer d.Close()

	release := make(chan struct{})
	got := make(chan domain.NavigationTarget, 1)
	d.Register(func(t domain.NavigationTarget) {
		<-release
		got <- t
	})

	d.Dispatch(domain.ViewHome())
	select {
	case <-got:
		t.Fatal("listener ran before the publisher returned")
	default:
	}
	close(release)
	select {
	case target := <-got:
		assert.Equal(t, domain.ViewHome(), target)
	case <-time.After(time.Second):
		t.Fatal("target never delivered")
	}
}

func TestDispatcherUnregister(t *testing.T) {
	d := NewDispatcher(context.Background())
	defer d.Close()

	kept, dropped := &recorder{}, &recorder{}
	d.Register(kept.listen)
	ref := d.Register(dropped.listen)
	d.Unregister(ref)
	d.Unregister(ref)

	d.Dispatch(domain.ViewHome())
	flushWithin(t, d)
	assert.Len(t, kept.targets(), 1)
	assert.Empty(t, dropped.targets())
}

func TestDispatcherSurvivesPanickingListener(t *testing.T) {
	d := NewDispatcher(context.Background())
	defer d.Close()

	rec := &recorder{}
	d.Register(func(domain.NavigationTarget) { panic("boom") })
	d.Register(rec.listen)

	d.Dispatch(domain.ViewHome())
	d.Dispatch(domain.ViewRoom(roomID))
	flushWithin(t, d)
	assert.Len(t, rec.targets(), 2)
}

func TestDispatcherCloseDrainsQueue(t *testing.T) {
	d := NewDispatcher(context.Background())
	rec := &recorder{}
	d.Register(rec.listen)

	for i := 0; i < 10; i++ {
		d.Dispatch(domain.ViewHome())
	}
	d.Close()
	assert.Len(t, rec.targets(), 10)

	d.Dispatch(domain.ViewHome())
	assert.Len(t, rec.targets(), 10)
	assert.Error(t, d.Flush(context.Background()))
}

func TestViewStoreNavigateGuard(t *testing.T) {
	s := NewViewStore()
	assert.Equal(t, domain.HomeSpace, s.ActiveSpace())

	s.View(domain.ViewRoom(roomID))
	assert.False(t, s.Navigate(spaceID, domain.ViewHome()))
	assert.Equal(t, roomID, s.ViewedRoom())
	assert.True(t, s.Navigate(roomID, domain.ViewRoom(spaceID)))
	assert.Equal(t, spaceID, s.ViewedRoom())

	s.SetActiveSpace("")
	assert.Equal(t, domain.HomeSpace, s.ActiveSpace())
}

func TestViewStoreNavigateIntoSwitchesActiveSpaceTogether(t *testing.T) {
	s := NewViewStore()
	s.View(domain.ViewRoom(spaceID))
	s.SetActiveSpace(spaceID)

	assert.False(t, s.NavigateInto(roomID, domain.ViewHome(), ""))
	assert.Equal(t, spaceID, s.ActiveSpace())

	assert.True(t, s.NavigateInto(spaceID, domain.ViewHome(), ""))
	assert.Equal(t, domain.HomeSpace, s.ActiveSpace())
	assert.Empty(t, s.ViewedRoom())
}

func TestViewStoreLeaveSpace(t *testing.T) {
	s := NewViewStore()
	s.SetActiveSpace(spaceID)

	assert.False(t, s.LeaveSpace(roomID))
	assert.Equal(t, spaceID, s.ActiveSpace())
	assert.True(t, s.LeaveSpace(spaceID))
	assert.Equal(t, domain.HomeSpace, s.ActiveSpace())
}
