package signal

import (
	"encoding/json"

	"github.com/dkeye/Spaces/internal/app"
	"github.com/dkeye/Spaces/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRename(
	sess *app.Session,
	conn *WsSignalConn,
	data []byte,
) {
	type renamePayload struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	var p renamePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad rename payload")
		ctl.sendError(conn, codeBadPayload)
		return
	}

	if err := ctl.Orch.Registry.UpdateUsername(sess.ID, p.Name); err != nil {
		ctl.sendError(conn, errorCode(err))
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID)).Str("name", p.Name).Msg("rename")
	ctl.handleWhoAmI(sess, conn)
}

func (ctl *SignalWSController) handleWhoAmI(
	sess *app.Session,
	conn *WsSignalConn,
) {
	user, _ := ctl.Orch.Registry.User(sess.ID)

	resp := struct {
		Type        string          `json:"type"`
		User        domain.User     `json:"user"`
		Viewing     domain.RoomID   `json:"viewing,omitempty"`
		ActiveSpace domain.RoomID   `json:"active_space"`
		Rooms       []domain.RoomID `json:"rooms"`
	}{
		Type:        "whoami",
		User:        user,
		Viewing:     sess.View.ViewedRoom(),
		ActiveSpace: sess.View.ActiveSpace(),
		Rooms:       ctl.Orch.Registry.RoomsOf(sess.ID),
	}
	ctl.sendJSON(conn, resp)
}
