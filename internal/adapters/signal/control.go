package signal

import (
	"errors"

	"github.com/dkeye/Spaces/internal/app"
	"github.com/dkeye/Spaces/internal/domain"
)

const (
	codeBadPayload   = "bad_payload"
	codeUnknownType  = "unknown_type"
	codeRoomNotFound = "room_not_found"
	codeNotMember    = "not_member"
	codeNotSpace     = "not_space"
	codeCycle        = "hierarchy_cycle"
	codeInvalidName  = "invalid_name"
	codeRateLimited  = "rate_limited"
	codeInternal     = "internal"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, app.ErrRoomNotFound):
		return codeRoomNotFound
	case errors.Is(err, app.ErrNotMember):
		return codeNotMember
	case errors.Is(err, app.ErrNotSpace):
		return codeNotSpace
	case errors.Is(err, app.ErrHierarchyCycle):
		return codeCycle
	case errors.Is(err, domain.ErrRoomNameEmpty),
		errors.Is(err, domain.ErrRoomNameTooLong),
		errors.Is(err, domain.ErrUsernameEmpty),
		errors.Is(err, domain.ErrUsernameTooLong):
		return codeInvalidName
	default:
		return codeInternal
	}
}

func (ctl *SignalWSController) sendError(conn *WsSignalConn, code string) {
	ctl.sendJSON(conn, map[string]any{
		"type":  "error",
		"error": code,
	})
}

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}
