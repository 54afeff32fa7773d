package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/okian/f1replay/internal/adapters/repository"
	"github.com/okian/f1replay/internal/domain/model"
	"github.com/okian/f1replay/internal/telemetry"
)

const (
	synthTrackLength = 5000.0
	synthTopSpeed    = 72.0
	synthSpeedStep   = 0.25
)

// synthConfig describes a generated race: every car runs a constant speed,
// slower by synthSpeedStep per slot, so the order and gaps are predictable.
type synthConfig struct {
	cars int
	laps int
	hz   int
}

func runSynth(ctx context.Context, dir, ext string, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("synth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg := synthConfig{}
	fs.IntVar(&cfg.cars, "cars", 20, "number of cars")
	fs.IntVar(&cfg.laps, "laps", 3, "race laps for the leader")
	fs.IntVar(&cfg.hz, "hz", 2, "lap data ticks per second")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := replayArg(fs.Args())
	if err != nil {
		return err
	}
	if err := repository.ValidateReplayID(id); err != nil {
		return err
	}
	if cfg.cars < 1 || cfg.cars > 22 || cfg.laps < 1 || cfg.hz < 1 {
		return errors.New("synth: cars must be 1..22, laps and hz positive")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("synth: %w", err)
	}
	path := filepath.Join(dir, id+ext)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("synth: %s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("synth: %w", err)
	}

	ticks, err := writeSynth(ctx, path, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s: %d cars, %d lap ticks\n", path, cfg.cars, ticks)
	return nil
}

func writeSynth(ctx context.Context, path string, cfg synthConfig) (int, error) {
	w, err := repository.CreateReplay(ctx, path)
	if err != nil {
		return 0, err
	}
	ticks, werr := synthesize(ctx, w, cfg)
	return ticks, errors.Join(werr, w.Close())
}

func synthesize(ctx context.Context, w *repository.ReplayWriter, cfg synthConfig) (int, error) {
	header := func(ts float64) telemetry.Header {
		return telemetry.Header{PacketFormat: telemetry.Format2020, SessionTime: ts, SessionUID: 1}
	}
	put := func(kind repository.Kind, ts float64, b []byte, err error) error {
		if err != nil {
			return err
		}
		return w.Write(ctx, kind, ts, b)
	}

	b, err := telemetry.EncodeSession(header(0), model.SessionInfo{TrackID: 7, SessionType: 10, TrackLength: synthTrackLength})
	if err := put(repository.KindSession, 0, b, err); err != nil {
		return 0, err
	}
	roster := make([]model.Participant, cfg.cars)
	for i := range roster {
		roster[i] = model.Participant{SlotIndex: i, DriverID: i, Name: fmt.Sprintf("Synthetic %02d", i+1), TeamID: i / 2}
	}
	b, err = telemetry.EncodeParticipants(header(0), roster)
	if err := put(repository.KindParticipants, 0, b, err); err != nil {
		return 0, err
	}

	duration := float64(cfg.laps) * synthTrackLength / synthTopSpeed
	step := 1 / float64(cfg.hz)
	n := 0
	for ts := 0.0; ts <= duration; ts += step {
		cars, tel := synthTick(cfg.cars, ts)
		b, err := telemetry.EncodeLapData(header(ts), cars)
		if err := put(repository.KindLapData, ts, b, err); err != nil {
			return n, err
		}
		b, err = telemetry.EncodeCarTelemetry(header(ts), tel)
		if err := put(repository.KindCarTelemetry, ts, b, err); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// synthTick returns the lap state and telemetry of every car at ts.
func synthTick(cars int, ts float64) ([]model.CarLapState, []model.CarTelemetry) {
	states := make([]model.CarLapState, cars)
	tel := make([]model.CarTelemetry, cars)
	for i := range states {
		v := synthTopSpeed - synthSpeedStep*float64(i)
		total := v * ts
		lapTime := synthTrackLength / v
		lap := int(total / synthTrackLength)
		s := model.CarLapState{
			SlotIndex:      i,
			CurrentLapNum:  lap + 1,
			CurrentLapTime: ts - float64(lap)*lapTime,
			TotalDistance:  total,
			LapDistance:    math.Mod(total, synthTrackLength),
		}
		if lap > 0 {
			s.LastLapTime = lapTime
			s.BestLapTime = lapTime
		}
		if s.LapDistance >= synthTrackLength/3 {
			s.Sector1Time = lapTime / 3
		}
		if s.LapDistance >= 2*synthTrackLength/3 {
			s.Sector2Time = lapTime / 3
		}
		states[i] = s
		tel[i] = model.CarTelemetry{Speed: int(v * 3.6), Throttle: 1, Gear: 7, EngineRPM: 11000}
	}

	order := make([]int, cars)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return states[order[a]].TotalDistance > states[order[b]].TotalDistance
	})
	for pos, slot := range order {
		states[slot].CarPosition = pos + 1
	}
	return states, tel
}
