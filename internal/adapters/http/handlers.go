package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Spaces/internal/app"
	"github.com/dkeye/Spaces/internal/app/orch"
	"github.com/dkeye/Spaces/internal/domain"
	"github.com/gin-gonic/gin"
)

type handlers struct {
	orch *orch.Orchestrator
}

type roomView struct {
	domain.Room
	Parent  domain.RoomID `json:"parent,omitempty"`
	Members int           `json:"members"`
}

type createRequest struct {
	Name   string        `json:"name"`
	Parent domain.RoomID `json:"parent,omitempty"`
}

type childRequest struct {
	Room      domain.RoomID `json:"room"`
	Canonical bool          `json:"canonical"`
}

func (h *handlers) view(r domain.Room) roomView {
	parent, _ := h.orch.Rooms.CanonicalParent(r.ID)
	return roomView{Room: r, Parent: parent, Members: h.orch.Registry.MemberCount(r.ID)}
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) listRooms(c *gin.Context) {
	rooms := h.orch.Rooms.List()
	out := make([]roomView, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, h.view(r))
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

func (h *handlers) createRoom(c *gin.Context) {
	h.create(c, false)
}

func (h *handlers) createSpace(c *gin.Context) {
	h.create(c, true)
}

func (h *handlers) create(c *gin.Context, space bool) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	kind := domain.KindRoom
	if space {
		kind = domain.KindSpace
	}
	room, err := h.orch.CreateRoom(c.Request.Context(), req.Name, kind, req.Parent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.view(room))
}

func (h *handlers) evictRoom(c *gin.Context) {
	if err := h.orch.EvictRoom(c.Request.Context(), domain.RoomID(c.Param("id"))); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listChildren(c *gin.Context) {
	children, err := h.orch.Rooms.Children(domain.RoomID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]roomView, 0, len(children))
	for _, r := range children {
		out = append(out, h.view(r))
	}
	c.JSON(http.StatusOK, gin.H{"children": out})
}

func (h *handlers) addChild(c *gin.Context) {
	var req childRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Room == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid room"})
		return
	}
	if err := h.orch.Rooms.AddChild(c.Request.Context(), domain.RoomID(c.Param("id")), req.Room, req.Canonical); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) removeChild(c *gin.Context) {
	if err := h.orch.Rooms.RemoveChild(c.Request.Context(), domain.RoomID(c.Param("id")), domain.RoomID(c.Param("child"))); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrNotSpace),
		errors.Is(err, domain.ErrRoomNameEmpty),
		errors.Is(err, domain.ErrRoomNameTooLong):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrHierarchyCycle):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
