// Package orch wires sessions, memberships and the space hierarchy to the
// navigation engine.
package orch

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Spaces/internal/app"
	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
	"github.com/rs/zerolog/log"
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.Hierarchy
	Policy   app.Policy
}

// Connect binds a fresh session for sid on conn. A previous session with the
// same id is disconnected first.
func (o *Orchestrator) Connect(ctx context.Context, sid core.SessionID, conn core.SignalConnection) *app.Session {
	ctx, cancel := context.WithCancel(ctx)
	sess := &app.Session{
		ID:     sid,
		User:   o.Registry.GetOrCreateUser(sid),
		Signal: conn,
		View:   core.NewViewStore(),
		Bus:    core.NewDispatcher(ctx),
		Cancel: cancel,
	}
	sess.Bus.Register(o.forward(sess))
	if prev := o.Registry.BindSession(sess); prev != nil {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("replacing previous session")
		o.teardown(prev)
	}
	return sess
}

// Disconnect tears the session down; memberships are kept.
func (o *Orchestrator) Disconnect(sess *app.Session) {
	if !o.Registry.Unbind(sess) {
		return
	}
	o.teardown(sess)
	log.Info().Str("module", "orch").Str("sid", string(sess.ID)).Msg("session disconnected")
}

func (o *Orchestrator) teardown(sess *app.Session) {
	sess.Cancel()
	sess.Bus.Close()
	if sess.Signal != nil {
		sess.Signal.Close()
	}
}

// forward pushes every navigation target of sess to its client.
func (o *Orchestrator) forward(sess *app.Session) core.Listener {
	return func(target domain.NavigationTarget) {
		if sess.Signal == nil {
			return
		}
		b, err := json.Marshal(target)
		if err != nil {
			log.Error().Err(err).Str("module", "orch").Msg("marshal navigation")
			return
		}
		if err := sess.Signal.TrySend(b); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("sid", string(sess.ID)).Str("target", target.String()).Msg("navigation not delivered")
			if o.Policy == nil {
				return
			}
			switch o.Policy.OnBackPressure(sess, target) {
			case app.KickMember:
				// Disconnect waits for this bus to drain, so it cannot run here.
				go o.Disconnect(sess)
			case app.NoAction:
			}
		}
	}
}

func (o *Orchestrator) resolver(sess *app.Session) *core.Resolver {
	return core.NewResolver(o.Rooms, sess.View, sess.Bus)
}
