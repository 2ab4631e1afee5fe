// Package hooks adapts host-world events to the boost engine: farming
// activity feeds presence, disconnects purge per-agent state, and growth
// ticks draw against the local multiplier.
package hooks

import (
	"context"
	"log/slog"

	"github.com/talgya/harvest-boost/internal/boost"
	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/farm"
	"github.com/talgya/harvest-boost/internal/feedback"
	"github.com/talgya/harvest-boost/internal/world"
)

// ActionKind is what an agent did.
type ActionKind uint8

const (
	ActionPlace ActionKind = iota
	ActionBreak
	ActionHarvest
	ActionInteract
	ActionPickup
)

func (k ActionKind) String() string {
	switch k {
	case ActionPlace:
		return "place"
	case ActionBreak:
		return "break"
	case ActionHarvest:
		return "harvest"
	case ActionInteract:
		return "interact"
	case ActionPickup:
		return "pickup"
	default:
		return "unknown"
	}
}

// Action is one agent event reported by the host.
type Action struct {
	Kind  ActionKind
	Agent world.Agent
	Block world.Material // block acted on; empty for pickups
	Item  world.Material // held or picked-up item; may be empty
	At    world.Location
}

// XPSink receives bonus experience.
type XPSink interface {
	GiveXP(agent world.Agent, amount int)
}

// Activity turns agent actions into presence updates.
type Activity struct {
	boosts   *boost.Service
	notifier *feedback.Notifier
	xp       XPSink
	live     *config.Live
}

func NewActivity(boosts *boost.Service, notifier *feedback.Notifier, xp XPSink, live *config.Live) *Activity {
	return &Activity{boosts: boosts, notifier: notifier, xp: xp, live: live}
}

// IsFarming reports whether an action counts as farming activity.
func IsFarming(a Action) bool {
	switch a.Kind {
	case ActionPlace, ActionBreak:
		return farm.IsFarmingBlock(a.Block)
	case ActionHarvest:
		return true
	case ActionInteract:
		switch {
		case tillable(a.Block) && a.Item != "" && farm.IsFarmingTool(a.Item):
			return true
		case a.Item == world.BoneMeal && farm.IsFarmingBlock(a.Block):
			return true
		case a.Block == world.Composter:
			return true
		}
		return false
	case ActionPickup:
		return farm.IsFarmableItem(a.Item)
	}
	return false
}

func tillable(m world.Material) bool {
	return m == world.Farmland || m == world.Dirt || m == world.GrassBlock
}

// ReportActivity records a farming action and returns whether it counted.
// Breaking a farming block or harvesting also pays the cooperation XP bonus.
func (h *Activity) ReportActivity(ctx context.Context, a Action) bool {
	if !IsFarming(a) {
		return false
	}
	h.record(ctx, a.Agent, a.At)

	if a.Kind == ActionHarvest || a.Kind == ActionBreak {
		h.grantXP(ctx, a.Agent, a.At)
	}
	return true
}

func (h *Activity) record(ctx context.Context, agent world.Agent, at world.Location) {
	if h.live.Load().WorldDisabled(at.World) {
		return
	}
	h.boosts.Tracker.RecordActivity(agent.ID, at)
	if h.boosts.Cache.HasBoost(ctx, at) {
		h.notifier.ShowAll(ctx, agent)
	}
}

// grantXP pays (count-1) * per-level experience when several farmers are
// working together. Returns the amount paid.
func (h *Activity) grantXP(ctx context.Context, agent world.Agent, at world.Location) int {
	bonus := h.live.Load().Advanced.XPBonus
	if !bonus.Enabled || h.xp == nil {
		return 0
	}
	count := h.boosts.Cache.QualifyingCountAt(ctx, at)
	if count <= 1 {
		return 0
	}
	amount := (count - 1) * bonus.PerLevel
	h.xp.GiveXP(agent, amount)
	slog.Debug("cooperative farming xp", "agent", agent.Name, "xp", amount, "farmers", count)
	return amount
}

// ReportDisconnect purges everything held for an agent.
func (h *Activity) ReportDisconnect(id world.AgentID) {
	h.boosts.Forget(id)
	h.notifier.Remove(id)
}
