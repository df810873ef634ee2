package domain

import (
	"encoding/json"
	"fmt"
)

// Action names the navigation payload published to clients.
type Action string

const (
	ActionViewRoom     Action = "view_room"
	ActionViewHomePage Action = "view_home_page"
)

// NavigationTarget is either a room to view or the home page.
// The zero value is not a valid target; use ViewRoom or ViewHome.
type NavigationTarget struct {
	Action Action
	RoomID RoomID
}

func ViewRoom(id RoomID) NavigationTarget {
	return NavigationTarget{Action: ActionViewRoom, RoomID: id}
}

func ViewHome() NavigationTarget {
	return NavigationTarget{Action: ActionViewHomePage}
}

func (t NavigationTarget) IsHome() bool { return t.Action == ActionViewHomePage }

// Viewed returns the room a client displays after following t; empty for home.
func (t NavigationTarget) Viewed() RoomID {
	if t.Action == ActionViewRoom {
		return t.RoomID
	}
	return ""
}

func (t NavigationTarget) String() string {
	if t.Action == ActionViewRoom {
		return fmt.Sprintf("%s(%s)", t.Action, t.RoomID)
	}
	return string(t.Action)
}

type navigationPayload struct {
	Action Action `json:"action"`
	RoomID RoomID `json:"room_id,omitempty"`
}

func (t NavigationTarget) MarshalJSON() ([]byte, error) {
	p := navigationPayload{Action: t.Action}
	if t.Action == ActionViewRoom {
		p.RoomID = t.RoomID
	}
	return json.Marshal(p)
}

func (t *NavigationTarget) UnmarshalJSON(data []byte) error {
	var p navigationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	switch p.Action {
	case ActionViewRoom:
		if p.RoomID == "" {
			return fmt.Errorf("navigation: %s without room_id", p.Action)
		}
		*t = ViewRoom(p.RoomID)
	case ActionViewHomePage:
		*t = ViewHome()
	default:
		return fmt.Errorf("navigation: unknown action %q", p.Action)
	}
	return nil
}
