package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Spaces/internal/app"
	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) Join(sid core.SessionID, room domain.RoomID) (domain.Room, error) {
	r, ok := o.Rooms.Get(room)
	if !ok {
		return domain.Room{}, fmt.Errorf("join %s: %w", room, app.ErrRoomNotFound)
	}
	o.Registry.Join(sid, room)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("added to room")
	return r, nil
}

// View moves sess to room, or to the home page when room is empty, and
// publishes the move on its bus.
func (o *Orchestrator) View(sess *app.Session, room domain.RoomID) (domain.NavigationTarget, error) {
	target := domain.ViewHome()
	if room != "" {
		if _, ok := o.Rooms.Get(room); !ok {
			return domain.NavigationTarget{}, fmt.Errorf("view %s: %w", room, app.ErrRoomNotFound)
		}
		target = domain.ViewRoom(room)
	}
	sess.View.View(target)
	sess.Bus.Dispatch(target)
	return target, nil
}

// CreateRoom creates a room or space, optionally as a canonical child of
// parent. Nothing is left behind when parent cannot take it.
func (o *Orchestrator) CreateRoom(ctx context.Context, name string, kind domain.RoomKind, parent domain.RoomID) (domain.Room, error) {
	if parent != "" {
		if err := o.CheckSpace(parent); err != nil {
			return domain.Room{}, fmt.Errorf("parent: %w", err)
		}
	}
	create := o.Rooms.CreateRoom
	if kind == domain.KindSpace {
		create = o.Rooms.CreateSpace
	}
	room, err := create(ctx, name)
	if err != nil {
		return domain.Room{}, err
	}
	if parent == "" {
		return room, nil
	}
	if err := o.Rooms.AddChild(ctx, parent, room.ID, true); err != nil {
		if ferr := o.Rooms.Forget(ctx, room.ID); ferr != nil {
			log.Error().Err(ferr).Str("module", "orch").Str("room", string(room.ID)).Msg("drop unlinked room")
		}
		return domain.Room{}, err
	}
	return room, nil
}

// CheckSpace reports whether space names a live space.
func (o *Orchestrator) CheckSpace(space domain.RoomID) error {
	if _, ok := o.Rooms.Get(space); !ok {
		return fmt.Errorf("space %s: %w", space, app.ErrRoomNotFound)
	}
	if !o.Rooms.IsSpace(space) {
		return fmt.Errorf("space %s: %w", space, app.ErrNotSpace)
	}
	return nil
}

// SetActiveSpace switches the browsing context; empty means home.
func (o *Orchestrator) SetActiveSpace(sess *app.Session, space domain.RoomID) error {
	if space.IsHome() {
		sess.View.SetActiveSpace(domain.HomeSpace)
		return nil
	}
	if err := o.CheckSpace(space); err != nil {
		return fmt.Errorf("active %w", err)
	}
	sess.View.SetActiveSpace(space)
	log.Info().Str("module", "orch").Str("sid", string(sess.ID)).Str("space", string(space)).Msg("active space set")
	return nil
}

// Leave removes the membership and, only if that succeeded, resolves where
// the client goes next.
func (o *Orchestrator) Leave(sid core.SessionID, room domain.RoomID) (domain.NavigationTarget, bool, error) {
	if err := o.RemoveMember(sid, room); err != nil {
		return domain.NavigationTarget{}, false, err
	}
	target, dispatched := o.ResolveAfterLeave(sid, room)
	return target, dispatched, nil
}

func (o *Orchestrator) RemoveMember(sid core.SessionID, room domain.RoomID) error {
	if !o.Registry.Leave(sid, room) {
		return fmt.Errorf("leave %s: %w", room, app.ErrNotMember)
	}
	return nil
}

// ResolveAfterLeave runs the session's resolver for a room it just left.
// Offline members have no view to resolve.
func (o *Orchestrator) ResolveAfterLeave(sid core.SessionID, room domain.RoomID) (domain.NavigationTarget, bool) {
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return domain.NavigationTarget{}, false
	}
	return o.resolver(sess).ResolveAfterLeave(room)
}

// EvictRoom makes every member leave room, then forgets it. Sessions still
// browsing it as their active space fall back to home.
func (o *Orchestrator) EvictRoom(ctx context.Context, room domain.RoomID) error {
	for _, sid := range o.Registry.MembersOfRoom(room) {
		if _, _, err := o.Leave(sid, room); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("evict leave")
		}
	}
	if err := o.Rooms.Forget(ctx, room); err != nil {
		return err
	}
	for _, sess := range o.Registry.Sessions() {
		if sess.View.LeaveSpace(room) {
			log.Info().Str("module", "orch").Str("sid", string(sess.ID)).Str("space", string(room)).Msg("active space evicted")
		}
	}
	return nil
}
