// Command boardwatch runs one session over an ordered list of board snapshots
// and reports the move inferred between each consecutive pair.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/park285/boardwatch/internal/boardbuilder"
	appcfg "github.com/park285/boardwatch/internal/config"
	"github.com/park285/boardwatch/internal/detect"
	"github.com/park285/boardwatch/internal/obslog"
	"github.com/park285/boardwatch/internal/report"
	"go.uber.org/zap"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout))
}

// execute runs the CLI and returns the process exit code. Deferred cleanup
// has finished by the time it returns.
func execute(args []string, stdout io.Writer) int {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Printf("config error: %v", err)
		return 1
	}

	fs := flag.NewFlagSet("boardwatch", flag.ContinueOnError)
	showBoard := fs.Bool("board", false, "print the board after every snapshot")
	out := fs.String("out", "", "write the final board as PNG to this path")
	fs.Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "similarity below which a cell counts as changed")
	fs.BoolVar(&cfg.PenalizeIllegal, "penalize", cfg.PenalizeIllegal, "rejected moves give the turn back")
	fs.BoolVar(&cfg.PositionalCapture, "positional-capture", cfg.PositionalCapture, "first changed square captures the second regardless of side")
	fs.StringVar(&cfg.Lang, "lang", cfg.Lang, "message language (ko, en)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: boardwatch [flags] c1.png c2.png ...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return 2
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("config error: %v", err)
		return 1
	}

	logger, err := obslog.Init(boardbuilder.LogOptions(cfg.Log))
	if err != nil {
		log.Printf("logger init error: %v", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	// a CLI run never outlives the process
	cfg.RedisURL, cfg.DatabaseURL = "", ""
	ctx := context.Background()
	deps, err := boardbuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("init_failed", zap.Error(err))
		return 1
	}
	defer func() { _ = deps.Close() }()

	if err := run(ctx, deps, fs.Args(), *showBoard, *out, stdout, logger); err != nil {
		logger.Error("run_failed", zap.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, deps *boardbuilder.Deps, paths []string, showBoard bool, out string, w io.Writer, logger *zap.Logger) error {
	rep, err := deps.Service.Start(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, deps.Formatter.Started(rep))

	for _, path := range paths {
		img, err := detect.Load(path)
		if err != nil {
			return err
		}
		rep, err = deps.Service.Advance(ctx, rep.SessionUUID, img)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		text, err := deps.Presenter.Publish(ctx, rep)
		if err != nil {
			logger.Warn("publish_failed", zap.Error(err))
		}
		fmt.Fprintf(w, "[%s] %s\n", path, text)
		if showBoard {
			fmt.Fprintln(w, rep.Board.String())
		}
	}

	if out != "" {
		raw, err := report.BoardPNG(ctx, rep)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, raw, 0o644); err != nil {
			return fmt.Errorf("write board image: %w", err)
		}
		logger.Info("board_written", zap.String("path", out))
	}
	return nil
}
