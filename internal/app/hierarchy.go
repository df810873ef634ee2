package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrNotSpace       = errors.New("not a space")
	ErrHierarchyCycle = errors.New("hierarchy cycle")
)

type roomEntry struct {
	room      domain.Room
	parent    domain.RoomID
	children  map[domain.RoomID]struct{}
	forgotten bool
}

// Hierarchy is the threadsafe in-memory room directory and space graph.
// Forgotten rooms disappear from listings but keep answering
// CanonicalParent and IsSpace so navigation can still resolve them.
type Hierarchy struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomEntry
	store core.RoomStore
}

// NewHierarchy builds an empty hierarchy; store may be nil.
func NewHierarchy(store core.RoomStore) *Hierarchy {
	return &Hierarchy{rooms: make(map[domain.RoomID]*roomEntry), store: store}
}

// Load replaces the in-memory state with what the store holds.
func (h *Hierarchy) Load(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	rooms, edges, err := h.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load hierarchy: %w", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rooms = make(map[domain.RoomID]*roomEntry, len(rooms))
	for _, r := range rooms {
		h.rooms[r.ID] = &roomEntry{room: r, children: make(map[domain.RoomID]struct{})}
	}
	for _, e := range edges {
		parent, ok := h.rooms[e.Parent]
		if !ok {
			continue
		}
		parent.children[e.Child] = struct{}{}
		if child, ok := h.rooms[e.Child]; ok && e.Canonical {
			child.parent = e.Parent
		}
	}
	log.Info().Str("module", "app.hierarchy").Int("rooms", len(rooms)).Int("edges", len(edges)).Msg("hierarchy loaded")
	return nil
}

func (h *Hierarchy) CreateRoom(ctx context.Context, name string) (domain.Room, error) {
	return h.create(ctx, name, domain.KindRoom)
}

func (h *Hierarchy) CreateSpace(ctx context.Context, name string) (domain.Room, error) {
	return h.create(ctx, name, domain.KindSpace)
}

func (h *Hierarchy) create(ctx context.Context, name string, kind domain.RoomKind) (domain.Room, error) {
	r, err := domain.NewRoom(name, kind)
	if err != nil {
		return domain.Room{}, err
	}
	if h.store != nil {
		if err := h.store.PutRoom(ctx, *r); err != nil {
			return domain.Room{}, fmt.Errorf("persist %s: %w", kind, err)
		}
	}
	h.mu.Lock()
	h.rooms[r.ID] = &roomEntry{room: *r, children: make(map[domain.RoomID]struct{})}
	h.mu.Unlock()
	log.Info().Str("module", "app.hierarchy").Str("room", string(r.ID)).Str("kind", kind.String()).Str("name", string(r.Name)).Msg("created")
	return *r, nil
}

// Get returns a live (not forgotten) room.
func (h *Hierarchy) Get(id domain.RoomID) (domain.Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.rooms[id]
	if !ok || e.forgotten {
		return domain.Room{}, false
	}
	return e.room, true
}

// List returns live rooms sorted by name then id.
func (h *Hierarchy) List() []domain.Room {
	h.mu.RLock()
	out := make([]domain.Room, 0, len(h.rooms))
	for _, e := range h.rooms {
		if !e.forgotten {
			out = append(out, e.room)
		}
	}
	h.mu.RUnlock()
	sortRooms(out)
	return out
}

// AddChild links child under the space parent. When canonical is set the
// space becomes child's canonical parent, replacing any previous one.
func (h *Hierarchy) AddChild(ctx context.Context, parent, child domain.RoomID, canonical bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.rooms[parent]
	if !ok || p.forgotten {
		return fmt.Errorf("parent %s: %w", parent, ErrRoomNotFound)
	}
	if !p.room.IsSpace() {
		return fmt.Errorf("parent %s: %w", parent, ErrNotSpace)
	}
	c, ok := h.rooms[child]
	if !ok || c.forgotten {
		return fmt.Errorf("child %s: %w", child, ErrRoomNotFound)
	}
	if parent == child || h.isAncestorLocked(child, parent) {
		return fmt.Errorf("%s under %s: %w", child, parent, ErrHierarchyCycle)
	}
	if h.store != nil {
		if err := h.store.PutEdge(ctx, core.SpaceEdge{Parent: parent, Child: child, Canonical: canonical}); err != nil {
			return fmt.Errorf("persist edge: %w", err)
		}
	}
	p.children[child] = struct{}{}
	if canonical {
		c.parent = parent
	}
	log.Info().Str("module", "app.hierarchy").Str("space", string(parent)).Str("room", string(child)).Bool("canonical", canonical).Msg("child added")
	return nil
}

func (h *Hierarchy) RemoveChild(ctx context.Context, parent, child domain.RoomID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.rooms[parent]
	if !ok {
		return fmt.Errorf("parent %s: %w", parent, ErrRoomNotFound)
	}
	if _, ok := p.children[child]; !ok {
		return nil
	}
	if h.store != nil {
		if err := h.store.DeleteEdge(ctx, parent, child); err != nil {
			return fmt.Errorf("delete edge: %w", err)
		}
	}
	delete(p.children, child)
	if c, ok := h.rooms[child]; ok && c.parent == parent {
		c.parent = ""
	}
	log.Info().Str("module", "app.hierarchy").Str("space", string(parent)).Str("room", string(child)).Msg("child removed")
	return nil
}

// Children lists the live children of a space.
func (h *Hierarchy) Children(parent domain.RoomID) ([]domain.Room, error) {
	h.mu.RLock()
	p, ok := h.rooms[parent]
	if !ok || p.forgotten {
		h.mu.RUnlock()
		return nil, fmt.Errorf("space %s: %w", parent, ErrRoomNotFound)
	}
	if !p.room.IsSpace() {
		h.mu.RUnlock()
		return nil, fmt.Errorf("space %s: %w", parent, ErrNotSpace)
	}
	out := make([]domain.Room, 0, len(p.children))
	for id := range p.children {
		if c, ok := h.rooms[id]; ok && !c.forgotten {
			out = append(out, c.room)
		}
	}
	h.mu.RUnlock()
	sortRooms(out)
	return out, nil
}

func (h *Hierarchy) CanonicalParent(id domain.RoomID) (domain.RoomID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.rooms[id]
	if !ok || e.parent == "" {
		return "", false
	}
	return e.parent, true
}

func (h *Hierarchy) IsSpace(id domain.RoomID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.rooms[id]
	return ok && e.room.IsSpace()
}

// Forget drops a room from listings and storage, along with its edges to
// live rooms. Its last-known kind and canonical parent stay in memory for
// navigation.
func (h *Hierarchy) Forget(ctx context.Context, id domain.RoomID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.rooms[id]
	if !ok || e.forgotten {
		return fmt.Errorf("room %s: %w", id, ErrRoomNotFound)
	}
	if h.store != nil {
		if err := h.store.DeleteRoom(ctx, id); err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
	}
	e.forgotten = true
	for cid := range e.children {
		c, ok := h.rooms[cid]
		if !ok || c.forgotten {
			continue
		}
		if c.parent == id {
			c.parent = ""
		}
		delete(e.children, cid)
	}
	for _, p := range h.rooms {
		if !p.forgotten {
			delete(p.children, id)
		}
	}
	log.Info().Str("module", "app.hierarchy").Str("room", string(id)).Msg("forgotten")
	return nil
}

// isAncestorLocked reports whether candidate is reachable upwards from id
// through any parent edge. Caller holds h.mu.
func (h *Hierarchy) isAncestorLocked(candidate, id domain.RoomID) bool {
	seen := map[domain.RoomID]bool{}
	stack := []domain.RoomID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for pid, p := range h.rooms {
			if _, ok := p.children[cur]; !ok {
				continue
			}
			if pid == candidate {
				return true
			}
			stack = append(stack, pid)
		}
	}
	return false
}

func sortRooms(rooms []domain.Room) {
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name != rooms[j].Name {
			return rooms[i].Name < rooms[j].Name
		}
		return rooms[i].ID < rooms[j].ID
	})
}
