// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package catboost

import (
	"context"
	"io"
	"os/exec"

	"github.com/xh3b4sd/tracer"
)

// Job is one rendered script run.
type Job struct {
	// Mode is fit, predict or importance.
	Mode string
	// Dir is the work directory the script reads from and writes to.
	Dir string
	// Script is the path of the rendered script.
	Script string
	// Model is the model file the script saves or loads.
	Model string
}

// Runner executes rendered scripts.
type Runner interface {
	Run(ctx context.Context, job Job) error
}

// PythonRunner runs scripts with a Python interpreter in a child process.
// Training has no cancellation point inside the interpreter; a cancelled
// context kills the process and the fold is abandoned.
type PythonRunner struct {
	Binary string
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements Runner.
func (r PythonRunner) Run(ctx context.Context, job Job) error {
	binary := r.Binary
	if binary == "" {
		binary = "python3"
	}

	cmd := exec.CommandContext(ctx, binary, job.Script) //nolint:gosec // binary comes from trusted config
	cmd.Dir = job.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	{
		err := cmd.Start()
		if err != nil {
			return tracer.Mask(err)
		}
	}

	{
		err := cmd.Wait()
		if err != nil {
			return tracer.Mask(err)
		}
	}

	return nil
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, job Job) error

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, job Job) error {
	return f(ctx, job)
}
