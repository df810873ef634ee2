package domain

// Member represents user's participation in a room.
// No transport or lifecycle logic here.
type Member struct {
	User *User  `json:"user"`
	Room RoomID `json:"room"`
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User, room RoomID) *Member {
	return &Member{User: user, Room: room}
}
