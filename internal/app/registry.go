package app

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrNotMember = errors.New("not a member")

// Session is one connected client: its transport, its view state and the
// bus its navigation targets travel on.
type Session struct {
	ID     core.SessionID
	User   *domain.User
	Signal core.SignalConnection
	View   *core.ViewStore
	Bus    *core.Dispatcher
	Cancel context.CancelFunc
}

// Registry tracks users, live sessions and room memberships. Users and
// memberships are keyed by client token and outlive a single connection.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[core.SessionID]*Session
	users       map[core.SessionID]*domain.User
	memberships map[core.SessionID]map[domain.RoomID]*domain.Member
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[core.SessionID]*Session),
		users:       make(map[core.SessionID]*domain.User),
		memberships: make(map[core.SessionID]map[domain.RoomID]*domain.Member),
	}
}

func (r *Registry) GetOrCreateUser(sid core.SessionID) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[sid]; ok {
		return u
	}
	u := domain.NewGuest(domain.UserID(sid))
	r.users[sid] = u
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("created new user")
	return u
}

// User returns a copy so callers never race with renames.
func (r *Registry) User(sid core.SessionID) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[sid]
	if !ok {
		return domain.User{}, false
	}
	return *u, true
}

func (r *Registry) UpdateUsername(sid core.SessionID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[sid]
	if !ok {
		u = domain.NewGuest(domain.UserID(sid))
	}
	if err := u.SetUsername(name); err != nil {
		return err
	}
	r.users[sid] = u
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("username", name).Msg("updated username")
	return nil
}

// BindSession registers s and returns the session it replaced, if any.
func (r *Registry) BindSession(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.sessions[s.ID]
	r.sessions[s.ID] = s
	log.Info().Str("module", "app.registry").Str("sid", string(s.ID)).Bool("replaced", prev != nil).Msg("bound session")
	return prev
}

func (r *Registry) GetSession(sid core.SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	return s, ok
}

// Sessions returns a snapshot of every bound session.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Unbind removes s only if it is still the bound session for its id.
func (r *Registry) Unbind(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.ID]; !ok || cur != s {
		return false
	}
	delete(r.sessions, s.ID)
	log.Info().Str("module", "app.registry").Str("sid", string(s.ID)).Msg("unbind session")
	return true
}

func (r *Registry) Join(sid core.SessionID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[sid]
	if !ok {
		u = domain.NewGuest(domain.UserID(sid))
		r.users[sid] = u
	}
	rooms, ok := r.memberships[sid]
	if !ok {
		rooms = make(map[domain.RoomID]*domain.Member)
		r.memberships[sid] = rooms
	}
	if _, ok := rooms[room]; !ok {
		rooms[room] = domain.NewMember(u, room)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("joined room")
}

// Leave drops the membership and reports whether there was one.
func (r *Registry) Leave(sid core.SessionID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rooms, ok := r.memberships[sid]
	if !ok {
		return false
	}
	if _, ok := rooms[room]; !ok {
		return false
	}
	delete(rooms, room)
	if len(rooms) == 0 {
		delete(r.memberships, sid)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("left room")
	return true
}

func (r *Registry) IsMember(sid core.SessionID, room domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.memberships[sid][room]
	return ok
}

func (r *Registry) RoomsOf(sid core.SessionID) []domain.RoomID {
	r.mu.RLock()
	out := make([]domain.RoomID, 0, len(r.memberships[sid]))
	for id := range r.memberships[sid] {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) MembersOfRoom(room domain.RoomID) []core.SessionID {
	r.mu.RLock()
	out := make([]core.SessionID, 0)
	for sid, rooms := range r.memberships {
		if _, ok := rooms[room]; ok {
			out = append(out, sid)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Members returns a snapshot of room's members ordered by user id.
func (r *Registry) Members(room domain.RoomID) []domain.User {
	r.mu.RLock()
	out := make([]domain.User, 0)
	for _, rooms := range r.memberships {
		if m, ok := rooms[room]; ok {
			out = append(out, *m.User)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) MemberCount(room domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, rooms := range r.memberships {
		if _, ok := rooms[room]; ok {
			n++
		}
	}
	return n
}
