package feedback

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/world"
)

// ErrUnknownEffect is returned when a configured sound or particle name is
// not in the registry.
var ErrUnknownEffect = errors.New("unknown effect")

// pitchStep separates the rising and falling change sounds.
const pitchStep = 0.2

var knownSounds = map[string]bool{
	"ENTITY_EXPERIENCE_ORB_PICKUP": true,
	"ENTITY_PLAYER_LEVELUP":        true,
	"ENTITY_VILLAGER_YES":          true,
	"BLOCK_NOTE_BLOCK_CHIME":       true,
	"BLOCK_NOTE_BLOCK_BELL":        true,
	"BLOCK_NOTE_BLOCK_PLING":       true,
	"BLOCK_NOTE_BLOCK_HARP":        true,
	"BLOCK_AMETHYST_BLOCK_CHIME":   true,
	"BLOCK_COMPOSTER_FILL":         true,
	"ITEM_BONE_MEAL_USE":           true,
}

var knownParticles = map[string]bool{
	"HAPPY_VILLAGER":        true,
	"COMPOSTER":             true,
	"TOTEM_OF_UNDYING":      true,
	"END_ROD":               true,
	"GLOW":                  true,
	"HEART":                 true,
	"WAX_ON":                true,
	"CHERRY_LEAVES":         true,
	"SPORE_BLOSSOM_AIR":     true,
	"FALLING_SPORE_BLOSSOM": true,
}

// ResolveSound validates a sound name.
func ResolveSound(name string) (string, error) {
	if !knownSounds[name] {
		return "", fmt.Errorf("sound %q: %w", name, ErrUnknownEffect)
	}
	return name, nil
}

// ResolveParticle validates a particle name.
func ResolveParticle(name string) (string, error) {
	if !knownParticles[name] {
		return "", fmt.Errorf("particle %q: %w", name, ErrUnknownEffect)
	}
	return name, nil
}

// Surface is where rendered effects end up.
type Surface interface {
	PlaySound(agent world.Agent, sound string, volume, pitch float64)
	SendActionBar(agent world.Agent, text string)
	SpawnParticles(at world.Location, particle string, amount int)
}

// Renderer turns feedback events into effects on a Surface, honouring the
// effect switches of the live configuration.
type Renderer struct {
	surface Surface
	live    *config.Live
}

func NewRenderer(surface Surface, live *config.Live) *Renderer {
	return &Renderer{surface: surface, live: live}
}

// Handle implements Sink.
func (r *Renderer) Handle(e Event) {
	cfg := r.live.Load()
	sounds := cfg.Effects.Sounds

	switch e.Kind {
	case KindEntered:
		if sounds.Enabled {
			r.playSound(e.Agent, sounds.EnterBoostArea, sounds.Volume, sounds.Pitch)
		}
	case KindIncreased:
		if sounds.Enabled {
			r.playSound(e.Agent, sounds.BoostChange, sounds.Volume, sounds.Pitch+pitchStep)
		}
	case KindEnded:
		if sounds.Enabled {
			r.playSound(e.Agent, sounds.BoostChange, sounds.Volume, sounds.Pitch-pitchStep)
		}
	case KindInfo:
		if cfg.Effects.ActionBar.Enabled {
			r.surface.SendActionBar(e.Agent, FormatActionBar(cfg.Effects.ActionBar.Format, e.Percent, e.Count))
		}
	}
}

func (r *Renderer) playSound(agent world.Agent, name string, volume, pitch float64) {
	sound, err := ResolveSound(name)
	if err != nil {
		slog.Warn("skipping sound", "agent", agent.Name, "error", err)
		return
	}
	r.surface.PlaySound(agent, sound, volume, pitch)
}

// CropParticles shows growth particles just above a block.
func (r *Renderer) CropParticles(worldName string, pos world.BlockPos) {
	p := r.live.Load().Effects.Particles
	if !p.Enabled {
		return
	}
	particle, err := ResolveParticle(p.Type)
	if err != nil {
		slog.Warn("skipping particles", "block", pos, "error", err)
		return
	}
	r.surface.SpawnParticles(pos.Center(worldName), particle, p.Amount)
}

// FormatActionBar fills the %boost% and %players% placeholders.
func FormatActionBar(format string, percent, players int) string {
	return strings.NewReplacer(
		"%boost%", strconv.Itoa(percent),
		"%players%", strconv.Itoa(players),
	).Replace(format)
}
