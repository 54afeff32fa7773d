// Package leaderboard turns reconstructed lap state into display rows.
package leaderboard

import (
	"fmt"

	"github.com/okian/f1replay/internal/domain/gaps"
	"github.com/okian/f1replay/internal/domain/model"
)

// Builder merges lap state with the roster and the gap calculator's order.
// It is a pure function of its inputs.
type Builder struct {
	calc *gaps.Calculator
}

// New returns a Builder. A nil calculator uses the defaults.
func New(calc *gaps.Calculator) *Builder {
	if calc == nil {
		calc = gaps.New()
	}
	return &Builder{calc: calc}
}

// Build returns one row per car in the tick, in the calculator's order.
// Slots absent from the roster get a placeholder name and team 0.
func (b *Builder) Build(cars []model.CarLapState, roster []model.Participant, playerCarIndex int) []model.LeaderboardEntry {
	bySlot := make(map[int]model.Participant, len(roster))
	for _, p := range roster {
		if _, dup := bySlot[p.SlotIndex]; !dup {
			bySlot[p.SlotIndex] = p
		}
	}

	ordered := b.calc.Compute(cars)
	out := make([]model.LeaderboardEntry, 0, len(ordered))
	for _, g := range ordered {
		c := g.State
		p, known := bySlot[c.SlotIndex]
		name, team := PlaceholderName(c.SlotIndex), 0
		if known {
			name, team = p.Name, p.TeamID
		}
		out = append(out, model.LeaderboardEntry{
			Position:    c.CarPosition,
			DriverName:  name,
			TeamID:      team,
			CurrentLap:  c.CurrentLapNum,
			LastLapTime: c.LastLapTime,
			BestLapTime: c.BestLapTime,
			Sector1Time: c.Sector1Time,
			Sector2Time: c.Sector2Time,
			Penalties:   c.Penalties,
			PitStatus:   c.PitStatus,
			SlotIndex:   c.SlotIndex,
			IsPlayer:    c.SlotIndex == playerCarIndex,
			Classified:  g.Classified,
			GapToLeader: g.GapToLeader,
			GapToAhead:  g.GapToAhead,
		})
	}
	return out
}

// PlaceholderName is the display name of a slot with no roster entry.
func PlaceholderName(slot int) string {
	return fmt.Sprintf("Driver %d", slot+1)
}
