// Command replay-dump inspects a replays directory from the terminal.
//
//	replay-dump [-dir DIR] list
//	replay-dump [-dir DIR] info ID
//	replay-dump [-dir DIR] snapshot [-time S] ID
//	replay-dump [-dir DIR] synth [-cars N] [-laps N] [-hz N] ID
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	app "github.com/okian/f1replay/internal/app"
	"github.com/okian/f1replay/pkg/logger"
)

var errUsage = errors.New("usage: replay-dump [-dir DIR] [-log-level LEVEL] list | info ID | snapshot [-time S] ID | synth [-cars N] [-laps N] [-hz N] ID")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("replay-dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", "./replays", "replays directory")
	ext := fs.String("ext", ".sqlite3", "replay file extension")
	level := fs.String("log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := logger.Init(logger.WithOutput(stderr)); err != nil {
		return err
	}
	if err := logger.SetLevelString(*level); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "synth" {
		return runSynth(ctx, *dir, *ext, rest, stdout)
	}

	svc := app.New(app.WithReplaysDir(*dir), app.WithReplayExtension(*ext))
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	switch cmd {
	case "list":
		list, err := svc.ListReplays(ctx)
		if err != nil {
			return err
		}
		renderList(stdout, list)
		return nil
	case "info":
		id, err := replayArg(rest)
		if err != nil {
			return err
		}
		info, err := svc.GetReplayInfo(ctx, id)
		if err != nil {
			return err
		}
		renderInfo(stdout, info)
		return nil
	case "snapshot":
		sfs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
		sfs.SetOutput(stderr)
		t := sfs.Float64("time", 0, "session time in seconds")
		if err := sfs.Parse(rest); err != nil {
			return err
		}
		id, err := replayArg(sfs.Args())
		if err != nil {
			return err
		}
		board, err := svc.GetSnapshot(ctx, id, *t)
		if err != nil {
			return err
		}
		renderLeaderboard(stdout, board)
		return nil
	default:
		return errUsage
	}
}

func replayArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", errUsage
	}
	return args[0], nil
}
