// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type testConfig struct {
	Folds  int     `validate:"min=2,max=20"`
	Level  string  `validate:"loglevel"`
	Output string  `validate:"omitempty,tabular"`
	Task   string  `validate:"omitempty,oneof=CPU GPU"`
	Rate   float64 `validate:"gt=0,lte=1"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   testConfig
		wantTag string
	}{
		{
			name:  "valid config",
			input: testConfig{Folds: 5, Level: "info", Output: "submission.csv", Rate: 0.05},
		},
		{
			name:  "parquet output accepted",
			input: testConfig{Folds: 5, Level: "debug", Output: "preds.PARQUET", Rate: 1},
		},
		{
			name:    "too few folds",
			input:   testConfig{Folds: 1, Level: "info", Rate: 0.1},
			wantTag: "min",
		},
		{
			name:    "unknown log level",
			input:   testConfig{Folds: 5, Level: "chatty", Rate: 0.1},
			wantTag: "loglevel",
		},
		{
			name:    "unsupported output extension",
			input:   testConfig{Folds: 5, Level: "info", Output: "preds.json", Rate: 0.1},
			wantTag: "tabular",
		},
		{
			name:    "task type outside enum",
			input:   testConfig{Folds: 5, Level: "info", Task: "TPU", Rate: 0.1},
			wantTag: "oneof",
		},
		{
			name:    "zero learning rate",
			input:   testConfig{Folds: 5, Level: "info", Rate: 0},
			wantTag: "gt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateStruct(&tt.input)
			if tt.wantTag == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var se *StructError
			if !errors.As(err, &se) {
				t.Fatalf("expected *StructError, got %T (%v)", err, err)
			}
			if len(se.Errors()) != 1 {
				t.Fatalf("expected 1 field error, got %d: %v", len(se.Errors()), se)
			}
			if got := se.Errors()[0].Tag(); got != tt.wantTag {
				t.Errorf("tag = %q, want %q", got, tt.wantTag)
			}
		})
	}
}

func TestStructError_Message(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&testConfig{Folds: 50, Level: "nope", Rate: 0.1})
	if err == nil {
		t.Fatal("expected error")
	}

	msg := err.Error()
	if !strings.Contains(msg, "testConfig.Folds must be at most 20") {
		t.Errorf("missing folds message: %s", msg)
	}
	if !strings.Contains(msg, "testConfig.Level must be a valid log level") {
		t.Errorf("missing level message: %s", msg)
	}
	if !strings.Contains(msg, "; ") {
		t.Errorf("expected messages joined with '; ': %s", msg)
	}
}
