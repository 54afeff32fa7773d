// Package gaps derives time gaps between cars from their lap progress.
//
// Distances are converted to seconds with a fixed average speed. Cars on
// the leader's lap are compared by distance into the lap, others by total
// race distance. Interval gaps are differences of consecutive leader gaps,
// so they always add up to the leader gap of the car at the end of the run.
package gaps

import (
	"math"
	"sort"

	"github.com/okian/f1replay/internal/domain/model"
)

// Defaults.
const (
	DefaultAverageSpeed          = 70.0 // meters per second
	DefaultMaxClassifiedPosition = 20
)

// Gap is one car in leaderboard order with its derived gaps. Unclassified
// cars carry zero gaps.
type Gap struct {
	State       model.CarLapState
	Classified  bool
	GapToLeader float64
	GapToAhead  float64
}

// Calculator computes gaps. It holds only configuration and is safe for
// concurrent use.
type Calculator struct {
	averageSpeed float64
	maxPosition  int
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithAverageSpeed sets the distance-to-time calibration in meters per
// second. Non-positive values are ignored.
func WithAverageSpeed(mps float64) Option {
	return func(c *Calculator) {
		if mps > 0 && !math.IsInf(mps, 0) {
			c.averageSpeed = mps
		}
	}
}

// WithMaxClassifiedPosition sets the highest position treated as
// classified. Non-positive values are ignored.
func WithMaxClassifiedPosition(n int) Option {
	return func(c *Calculator) {
		if n > 0 {
			c.maxPosition = n
		}
	}
}

// New returns a Calculator.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		averageSpeed: DefaultAverageSpeed,
		maxPosition:  DefaultMaxClassifiedPosition,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classified reports whether a position is within 1..max.
func (c *Calculator) Classified(position int) bool {
	return position >= 1 && position <= c.maxPosition
}

// Compute orders the cars and attaches gaps. Classified cars come first by
// position, ties keeping input order; unclassified cars follow in input
// order. The input is not modified.
func (c *Calculator) Compute(states []model.CarLapState) []Gap {
	out := make([]Gap, 0, len(states))
	var tail []Gap
	for _, s := range states {
		if c.Classified(s.CarPosition) {
			out = append(out, Gap{State: s, Classified: true})
		} else {
			tail = append(tail, Gap{State: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].State.CarPosition < out[j].State.CarPosition
	})

	if len(out) > 0 {
		leader := out[0].State
		for i := 1; i < len(out); i++ {
			out[i].GapToLeader = c.gapToLeader(leader, out[i].State)
			out[i].GapToAhead = out[i].GapToLeader - out[i-1].GapToLeader
		}
	}
	return append(out, tail...)
}

func (c *Calculator) gapToLeader(leader, car model.CarLapState) float64 {
	d := leader.TotalDistance - car.TotalDistance
	if car.CurrentLapNum == leader.CurrentLapNum {
		d = leader.LapDistance - car.LapDistance
	}
	gap := d / c.averageSpeed
	if !(gap > 0) || math.IsInf(gap, 0) {
		return 0
	}
	return gap
}
