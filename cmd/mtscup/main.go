// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

// Package main is the mtscup command line.
//
// Each pipeline stage is a subcommand; stages hand over through files named
// in the configuration:
//
//	mtscup [-config path] vocab
//	mtscup [-config path] features
//	mtscup [-config path] train
//	mtscup [-config path] predict [-fold n]
//	mtscup [-config path] oof
//	mtscup [-config path] importance [-task sex|age]
//
// # Configuration
//
// Configuration is loaded via koanf with layered sources (highest priority
// wins):
//   - Environment variables with the MTSCUP_ prefix
//   - Config file (-config, MTSCUP_CONFIG, or config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the running stage. A cancelled training run
// discards every fold and writes no snapshot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/tomtom215/mtscup/internal/catboost"
	"github.com/tomtom215/mtscup/internal/config"
	"github.com/tomtom215/mtscup/internal/database"
	"github.com/tomtom215/mtscup/internal/logging"
	"github.com/tomtom215/mtscup/internal/metrics"
	"github.com/tomtom215/mtscup/internal/modeling"
	"github.com/tomtom215/mtscup/internal/pipeline"
)

// errUsage is returned for malformed command lines.
var errUsage = errors.New("usage")

// command is one subcommand. needsModel commands get a classifier factory.
type command struct {
	summary    string
	needsModel bool
	run        func(ctx context.Context, p *pipeline.Pipeline, args []string) error
}

var commands = map[string]command{
	"vocab": {
		summary: "build the categorical mapping tables from train and test sessions",
		run: func(ctx context.Context, p *pipeline.Pipeline, _ []string) error {
			_, err := p.BuildVocab(ctx)
			return err
		},
	},
	"features": {
		summary: "build and write the train and test feature matrices",
		run: func(ctx context.Context, p *pipeline.Pipeline, _ []string) error {
			_, err := p.BuildFeatures(ctx)
			return err
		},
	},
	"train": {
		summary:    "fit the fold models and save the snapshot",
		needsModel: true,
		run: func(ctx context.Context, p *pipeline.Pipeline, _ []string) error {
			_, err := p.Train(ctx)
			return err
		},
	},
	"predict": {
		summary:    "write the averaged test predictions",
		needsModel: true,
		run:        runPredict,
	},
	"oof": {
		summary:    "write out-of-fold predictions of the training users",
		needsModel: true,
		run: func(ctx context.Context, p *pipeline.Pipeline, _ []string) error {
			_, err := p.PredictOOF(ctx)
			return err
		},
	},
	"importance": {
		summary:    "print fold-averaged feature importances",
		needsModel: true,
		run:        runImportance,
	},
}

func runPredict(ctx context.Context, p *pipeline.Pipeline, args []string) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fold := fs.Int("fold", -1, "use only this fold's models (debugging)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	var selected *int
	if *fold >= 0 {
		selected = fold
	}
	_, err := p.Predict(ctx, selected)
	return err
}

func runImportance(ctx context.Context, p *pipeline.Pipeline, args []string) error {
	fs := flag.NewFlagSet("importance", flag.ContinueOnError)
	name := fs.String("task", "sex", "task whose models are inspected: sex or age")
	top := fs.Int("top", 20, "number of features to log")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	task, err := modeling.ParseTask(*name)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	fi, err := p.Importance(ctx, task)
	if err != nil {
		return err
	}
	logger := logging.Ctx(ctx)
	for i, imp := range fi {
		if i >= *top {
			break
		}
		logger.Info().Int("rank", i+1).Str("feature", imp.Feature).Float64("importance", imp.Value).Msg("Feature importance")
	}
	return nil
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("usage: mtscup [-config path] <command> [flags]\n\ncommands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-11s %s\n", name, commands[name].summary)
	}
	_, _ = io.WriteString(w, b.String())
}

// parseArgs splits the global flags from the command and its arguments.
func parseArgs(args []string, stderr io.Writer) (configPath, name string, rest []string, err error) {
	fs := flag.NewFlagSet("mtscup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&configPath, "config", "", "config file path")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return "", "", nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() == 0 {
		usage(stderr)
		return "", "", nil, fmt.Errorf("%w: no command given", errUsage)
	}
	name = fs.Arg(0)
	if _, ok := commands[name]; !ok {
		usage(stderr)
		return "", "", nil, fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	return configPath, name, fs.Args()[1:], nil
}

func run(ctx context.Context, args []string, stderr io.Writer) (err error) {
	configPath, name, rest, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	cmd := commands[name]

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Init(cfg.LoggerConfig())

	ctx = logging.ContextWithLogger(ctx, logging.WithComponent("cli").With().Str("command", name).Logger())
	ctx = logging.ContextWithRunID(ctx, logging.GenerateRunID())
	logger := *logging.Ctx(ctx)

	start := time.Now()
	defer func() {
		metrics.RecordCommand(name, time.Since(start), err)
		if cfg.Metrics.Textfile == "" {
			return
		}
		if werr := metrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logger.Warn().Err(werr).Str("path", cfg.Metrics.Textfile).Msg("Failed to write metrics textfile")
		}
	}()

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("Error closing database")
		}
	}()

	var factory modeling.Factory
	if cmd.needsModel {
		runner := catboost.PythonRunner{Binary: cfg.Model.Python, Stdout: stderr, Stderr: stderr}
		f, err := catboost.NewFactory(cfg.Model, runner, logger)
		if err != nil {
			return err
		}
		factory = f
	}

	logger.Info().Msg("Starting")
	if err := cmd.run(ctx, pipeline.New(cfg, db, factory, logger), rest); err != nil {
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Command failed")
		return err
	}
	logger.Info().Dur("duration", time.Since(start)).Msg("Done")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stderr)
	stop()

	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("mtscup failed")
	}
}
