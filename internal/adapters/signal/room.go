package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Spaces/internal/app"
	"github.com/dkeye/Spaces/internal/domain"
	"github.com/rs/zerolog/log"
)

type roomPayload struct {
	Type string        `json:"type"`
	Room domain.RoomID `json:"room"`
}

func (ctl *SignalWSController) decodeRoom(conn *WsSignalConn, data []byte) (domain.RoomID, bool) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad room payload")
		ctl.sendError(conn, codeBadPayload)
		return "", false
	}
	return p.Room, true
}

func (ctl *SignalWSController) handleCreate(
	sess *app.Session,
	conn *WsSignalConn,
	data []byte,
	space bool,
) {
	type createPayload struct {
		Type   string        `json:"type"`
		Name   string        `json:"name"`
		Parent domain.RoomID `json:"parent,omitempty"`
	}
	var p createPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create payload")
		ctl.sendError(conn, codeBadPayload)
		return
	}
	if p.Parent != "" {
		if err := ctl.Orch.CheckSpace(p.Parent); err != nil {
			ctl.sendError(conn, errorCode(err))
			return
		}
	}
	if !ctl.creates.Allow(sess.User.ID) {
		ctl.sendError(conn, codeRateLimited)
		return
	}

	kind := domain.KindRoom
	if space {
		kind = domain.KindSpace
	}
	room, err := ctl.Orch.CreateRoom(context.Background(), p.Name, kind, p.Parent)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID)).Msg("create")
		ctl.sendError(conn, errorCode(err))
		return
	}
	// Creators are members of what they create.
	if _, err := ctl.Orch.Join(sess.ID, room.ID); err != nil {
		ctl.sendError(conn, errorCode(err))
		return
	}

	resp := struct {
		Type   string        `json:"type"`
		Room   domain.Room   `json:"room"`
		Parent domain.RoomID `json:"parent,omitempty"`
	}{
		Type:   "room_created",
		Room:   room,
		Parent: p.Parent,
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) handleJoin(
	sess *app.Session,
	conn *WsSignalConn,
	data []byte,
) {
	id, ok := ctl.decodeRoom(conn, data)
	if !ok {
		return
	}
	room, err := ctl.Orch.Join(sess.ID, id)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID)).Str("room", string(id)).Msg("join")
		ctl.sendError(conn, errorCode(err))
		return
	}
	members := ctl.Orch.Registry.Members(room.ID)
	resp := struct {
		Type    string        `json:"type"`
		Room    domain.Room   `json:"room"`
		Members []domain.User `json:"members"`
		Count   int           `json:"count"`
	}{
		Type:    "joined",
		Room:    room,
		Members: members,
		Count:   len(members),
	}
	ctl.sendJSON(conn, resp)
}

// handleView answers through the navigation stream only.
func (ctl *SignalWSController) handleView(
	sess *app.Session,
	conn *WsSignalConn,
	data []byte,
) {
	id, ok := ctl.decodeRoom(conn, data)
	if !ok {
		return
	}
	if _, err := ctl.Orch.View(sess, id); err != nil {
		ctl.sendError(conn, errorCode(err))
	}
}

func (ctl *SignalWSController) handleActiveSpace(
	sess *app.Session,
	conn *WsSignalConn,
	data []byte,
) {
	type spacePayload struct {
		Type  string        `json:"type"`
		Space domain.RoomID `json:"space"`
	}
	var p spacePayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, codeBadPayload)
		return
	}
	if err := ctl.Orch.SetActiveSpace(sess, p.Space); err != nil {
		ctl.sendError(conn, errorCode(err))
		return
	}
	ctl.sendJSON(conn, map[string]any{
		"type":  "active_space",
		"space": sess.View.ActiveSpace(),
	})
}

// handleLeave leaves a room. The "left" reply is queued before any
// resulting navigation, which follows on the navigation stream.
func (ctl *SignalWSController) handleLeave(
	sess *app.Session,
	conn *WsSignalConn,
	data []byte,
) {
	id, ok := ctl.decodeRoom(conn, data)
	if !ok {
		return
	}
	if !ctl.leaves.Allow(sess.User.ID) {
		ctl.sendError(conn, codeRateLimited)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID)).Str("room", string(id)).Msg("leave")
	if err := ctl.Orch.RemoveMember(sess.ID, id); err != nil {
		ctl.sendError(conn, errorCode(err))
		return
	}
	ctl.sendJSON(conn, map[string]any{
		"type": "left",
		"room": id,
	})
	ctl.Orch.ResolveAfterLeave(sess.ID, id)
}
