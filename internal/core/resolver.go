package core

import (
	"github.com/dkeye/Spaces/internal/domain"
	"github.com/rs/zerolog/log"
)

// Resolver decides where a client goes after leaving a room or space.
type Resolver struct {
	hierarchy SpaceHierarchy
	state     ViewState
	bus       Bus
}

func NewResolver(hierarchy SpaceHierarchy, state ViewState, bus Bus) *Resolver {
	return &Resolver{hierarchy: hierarchy, state: state, bus: bus}
}

// ResolveAfterLeave must only be called once the leave itself succeeded.
// It dispatches exactly once when left is the viewed room and not at all
// otherwise; the boolean reports which happened.
func (r *Resolver) ResolveAfterLeave(left domain.RoomID) (domain.NavigationTarget, bool) {
	if left == "" || r.state.ViewedRoom() != left {
		log.Debug().Str("module", "core.resolver").Str("room", string(left)).Msg("left room not viewed, nothing to do")
		return domain.NavigationTarget{}, false
	}

	target, nextActive, changeActive := r.decide(left)

	// A navigation that landed between the check above and here wins.
	var applied bool
	if changeActive {
		applied = r.state.NavigateInto(left, target, nextActive)
	} else {
		applied = r.state.Navigate(left, target)
	}
	if !applied {
		log.Debug().Str("module", "core.resolver").Str("room", string(left)).Msg("view changed during resolution")
		return domain.NavigationTarget{}, false
	}

	log.Info().
		Str("module", "core.resolver").
		Str("room", string(left)).
		Str("target", target.String()).
		Str("active_space", string(r.state.ActiveSpace())).
		Msg("resolved navigation after leave")
	r.bus.Dispatch(target)
	return target, true
}

func (r *Resolver) decide(left domain.RoomID) (target domain.NavigationTarget, nextActive domain.RoomID, changeActive bool) {
	parent, hasParent := r.hierarchy.CanonicalParent(left)
	if hasParent && parent.IsHome() {
		hasParent = false
	}
	active := r.state.ActiveSpace()

	if r.hierarchy.IsSpace(left) {
		wasActive := active == left
		if hasParent {
			return domain.ViewRoom(parent), parent, wasActive
		}
		return domain.ViewHome(), domain.HomeSpace, wasActive
	}

	if hasParent && parent == active {
		return domain.ViewRoom(parent), "", false
	}
	return domain.ViewHome(), "", false
}
