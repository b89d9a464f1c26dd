// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package modeling

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/mtscup/internal/evaluation"
	"github.com/tomtom215/mtscup/internal/folds"
)

// Snapshot file names.
const (
	foldDirPrefix = "fold-"
	sexModelFile  = "sex.cbm"
	ageModelFile  = "age.cbm"
	metricsFile   = "metrics.json"
	manifestFile  = "manifest.json"
)

// manifestEntry records the files of one fold.
type manifestEntry struct {
	Fold        int    `json:"fold"`
	SexModel    string `json:"sex_model"`
	SexChecksum string `json:"sex_sha256"`
	AgeModel    string `json:"age_model"`
	AgeChecksum string `json:"age_sha256"`
}

// manifest describes a saved snapshot.
type manifest struct {
	SavedAt time.Time       `json:"saved_at"`
	Folds   []manifestEntry `json:"folds"`
}

// Save writes every fold model pair to dir/fold-<i>/ together with
// metrics.json and manifest.json, and marks the folds as saved.
func (cv *CrossValidator) Save(dir string) error {
	selected, err := cv.selectFolds(nil)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	m := manifest{SavedAt: time.Now().UTC()}
	for _, f := range selected {
		foldDir := filepath.Join(dir, foldDirPrefix+strconv.Itoa(f.Index))
		if err := os.MkdirAll(foldDir, 0o750); err != nil {
			return fmt.Errorf("create fold directory: %w", err)
		}

		entry := manifestEntry{
			Fold:     f.Index,
			SexModel: filepath.Join(filepath.Base(foldDir), sexModelFile),
			AgeModel: filepath.Join(filepath.Base(foldDir), ageModelFile),
		}
		if entry.SexChecksum, err = saveModel(f.Sex, filepath.Join(dir, entry.SexModel)); err != nil {
			return fmt.Errorf("fold %d: save sex model: %w", f.Index, err)
		}
		if entry.AgeChecksum, err = saveModel(f.Age, filepath.Join(dir, entry.AgeModel)); err != nil {
			return fmt.Errorf("fold %d: save age model: %w", f.Index, err)
		}
		m.Folds = append(m.Folds, entry)
	}

	if err := writeJSON(filepath.Join(dir, metricsFile), cv.Metrics()); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, manifestFile), m); err != nil {
		return err
	}

	for _, f := range selected {
		f.State = FoldSaved
	}
	cv.logger.Info().Str("dir", dir).Int("folds", len(selected)).Msg("Fold models saved")
	return nil
}

func saveModel(clf Classifier, path string) (string, error) {
	if err := clf.Save(path); err != nil {
		return "", err
	}
	return fileChecksum(path)
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the snapshot directory
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Restore loads a snapshot written by Save without retraining. The fold
// directories must be numbered 0 through k-1, where k is both the
// splitter's fold count and the number of recorded metric records,
// otherwise ErrFoldMismatch is returned. When a manifest is present
// every model file is verified against its checksum.
//
//nolint:gocritic // zerolog.Logger is passed by value per zerolog convention
func Restore(dir string, cfg Config, factory Factory, splitter folds.Splitter, logger zerolog.Logger) (*CrossValidator, error) {
	indices, err := foldIndices(dir)
	if err != nil {
		return nil, err
	}
	if want := splitter.NumFolds(); len(indices) != want {
		return nil, fmt.Errorf("%w: snapshot has %d folds, configuration wants %d", ErrFoldMismatch, len(indices), want)
	}
	for i, idx := range indices {
		if idx != i {
			return nil, fmt.Errorf("%w: snapshot has %s%d where %s%d is expected", ErrFoldMismatch, foldDirPrefix, idx, foldDirPrefix, i)
		}
	}

	var recorded []evaluation.Metrics
	if err := readJSON(filepath.Join(dir, metricsFile), &recorded); err != nil {
		return nil, err
	}
	if len(recorded) != len(indices) {
		return nil, fmt.Errorf("%w: snapshot has %d folds, %s has %d records", ErrFoldMismatch, len(indices), metricsFile, len(recorded))
	}

	checksums, err := readChecksums(dir)
	if err != nil {
		return nil, err
	}

	cv := NewCrossValidator(cfg, factory, splitter, logger)
	restored := make([]*FoldModel, len(indices))
	for i, idx := range indices {
		foldDir := foldDirPrefix + strconv.Itoa(idx)
		sex, err := loadModel(factory, TaskSex, dir, filepath.Join(foldDir, sexModelFile), checksums)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", idx, err)
		}
		age, err := loadModel(factory, TaskAge, dir, filepath.Join(foldDir, ageModelFile), checksums)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", idx, err)
		}
		restored[i] = &FoldModel{Index: idx, Sex: sex, Age: age, Metrics: recorded[i], State: FoldSaved}
	}

	cv.folds = restored
	cv.logger.Info().Str("dir", dir).Int("folds", len(restored)).Msg("Fold models restored")
	return cv, nil
}

// foldIndices returns the indices of the fold-<i> directories, ascending.
func foldIndices(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot directory: %w", err)
	}
	var indices []int
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), foldDirPrefix) {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(e.Name(), foldDirPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: unexpected directory %s", ErrFoldMismatch, e.Name())
		}
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from the snapshot directory
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readChecksums returns the recorded checksum of every model file, or nil
// when the snapshot has no manifest.
func readChecksums(dir string) (map[string]string, error) {
	var m manifest
	err := readJSON(filepath.Join(dir, manifestFile), &m)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sums := make(map[string]string, 2*len(m.Folds))
	for _, e := range m.Folds {
		sums[filepath.ToSlash(e.SexModel)] = e.SexChecksum
		sums[filepath.ToSlash(e.AgeModel)] = e.AgeChecksum
	}
	return sums, nil
}

func loadModel(factory Factory, task Task, dir, rel string, checksums map[string]string) (Classifier, error) {
	path := filepath.Join(dir, rel)
	if want, ok := checksums[filepath.ToSlash(rel)]; ok {
		got, err := fileChecksum(path)
		if err != nil {
			return nil, fmt.Errorf("checksum %s: %w", rel, err)
		}
		if got != want {
			return nil, fmt.Errorf("%w: %s", ErrChecksum, rel)
		}
	}
	clf, err := factory.Load(task, path)
	if err != nil {
		return nil, fmt.Errorf("load %s model: %w", task, err)
	}
	return clf, nil
}
