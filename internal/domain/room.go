package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const MaxRoomNameLen = 64

var (
	ErrRoomNameEmpty   = errors.New("room name empty")
	ErrRoomNameTooLong = errors.New("room name too long")
)

type (
	RoomName string
	RoomID   string
)

// HomeSpace is the active-space sentinel for "not browsing inside any space".
const HomeSpace RoomID = "home"

// IsHome reports whether id denotes the home context rather than a real space.
func (id RoomID) IsHome() bool { return id == "" || id == HomeSpace }

type RoomKind int

const (
	KindRoom RoomKind = iota
	KindSpace
)

func (k RoomKind) String() string {
	if k == KindSpace {
		return "space"
	}
	return "room"
}

func (k RoomKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *RoomKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "space":
		*k = KindSpace
	case "room", "":
		*k = KindRoom
	default:
		return fmt.Errorf("unknown room kind %q", text)
	}
	return nil
}

type Room struct {
	ID   RoomID   `json:"id"`
	Name RoomName `json:"name"`
	Kind RoomKind `json:"kind"`
}

// IsSpace reports whether the room groups other rooms.
func (r *Room) IsSpace() bool { return r.Kind == KindSpace }

// NewRoom validates the name and assigns a fresh id.
func NewRoom(name string, kind RoomKind) (*Room, error) {
	if err := validateRoomName(name); err != nil {
		return nil, err
	}
	return &Room{
		ID:   RoomID(uuid.NewString()),
		Name: RoomName(name),
		Kind: kind,
	}, nil
}

func (r *Room) SetName(name string) error {
	if err := validateRoomName(name); err != nil {
		return err
	}
	r.Name = RoomName(name)
	return nil
}

func validateRoomName(name string) error {
	if len(name) == 0 {
		return ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLen {
		return ErrRoomNameTooLong
	}
	return nil
}
