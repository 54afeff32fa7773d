package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/okian/f1replay/internal/adapters/repository"
	"github.com/okian/f1replay/internal/domain/model"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	return t
}

func renderList(w io.Writer, list []model.ReplaySummary) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Replay"})
	for i, r := range list {
		t.AppendRow(table.Row{i + 1, r.DisplayName})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d replays", len(list))})
	t.Render()
}

func renderInfo(w io.Writer, info model.ReplayInfo) {
	t := newTable(w)
	t.SetTitle(info.ID)
	t.AppendRow(table.Row{"Start", sessionClock(info.MinTime)})
	t.AppendRow(table.Row{"End", sessionClock(info.MaxTime)})
	t.AppendRow(table.Row{"Duration", sessionClock(info.Duration)})
	if s := info.SessionInfo; s != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Track", s.TrackID})
		t.AppendRow(table.Row{"Track length", fmt.Sprintf("%.0f m", s.TrackLength)})
		t.AppendRow(table.Row{"Session type", s.SessionType})
		t.AppendRow(table.Row{"Weather", s.Weather})
	}

	kinds := make([]int, 0, len(info.PacketCounts))
	for k := range info.PacketCounts {
		kinds = append(kinds, k)
	}
	sort.Ints(kinds)
	t.AppendSeparator()
	for _, k := range kinds {
		t.AppendRow(table.Row{repository.Kind(k).String(), info.PacketCounts[k]})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}

func renderLeaderboard(w io.Writer, b model.Leaderboard) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("%s @ %s (%.1f%%)", b.ReplayID, sessionClock(b.CurrentTime), b.ProgressPercent))
	t.AppendHeader(table.Row{"Pos", "Driver", "Lap", "Last", "Best", "Leader", "Ahead", "Pit"})
	for _, e := range b.Entries {
		pos := fmt.Sprint(e.Position)
		if !e.Classified {
			pos = "NC"
		}
		name := e.DriverName
		if e.IsPlayer {
			name = text.Bold.Sprint(name)
		}
		t.AppendRow(table.Row{
			pos, name, e.CurrentLap,
			lapTime(e.LastLapTime), lapTime(e.BestLapTime),
			gap(e.GapToLeader), gap(e.GapToAhead),
			e.PitStatus,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.Render()
}

// lapTime prints seconds as mm:ss.mmm, or "-" when unset.
func lapTime(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	minutes := int(seconds / 60)
	rest := seconds - float64(minutes*60)
	return fmt.Sprintf("%02d:%06.3f", minutes, rest)
}

func gap(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return fmt.Sprintf("+%.3fs", seconds)
}

func sessionClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, total/60%60, total%60)
}
