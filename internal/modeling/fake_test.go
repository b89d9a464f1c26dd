// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package modeling

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mtscup/internal/features"
	"github.com/tomtom215/mtscup/internal/folds"
	"github.com/tomtom215/mtscup/internal/models"
)

// fakeClassifier predicts constant probabilities.
type fakeClassifier struct {
	Task     Task               `json:"task"`
	SexP     float64            `json:"sex_p"`
	AgeProba []float64          `json:"age_proba"`
	Weights  map[string]float64 `json:"weights"`

	trainUsers []uint32
	evalUsers  []uint32
	fitErr     error
}

func (f *fakeClassifier) Fit(_ context.Context, train, eval *Pool) error {
	if f.fitErr != nil {
		return f.fitErr
	}
	f.trainUsers = append([]uint32(nil), train.Users...)
	f.evalUsers = append([]uint32(nil), eval.Users...)
	return nil
}

func (f *fakeClassifier) PredictProba(_ context.Context, pool *Pool) ([][]float64, error) {
	out := make([][]float64, pool.Len())
	for i := range out {
		if f.Task == TaskSex {
			out[i] = []float64{1 - f.SexP, f.SexP}
		} else {
			out[i] = append([]float64(nil), f.AgeProba...)
		}
	}
	return out, nil
}

func (f *fakeClassifier) Predict(ctx context.Context, pool *Pool) ([]int, error) {
	proba, err := f.PredictProba(ctx, pool)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, row := range proba {
		out[i] = argmaxBucket(row)
		if f.Task == TaskSex {
			out[i]--
		}
	}
	return out, nil
}

func (f *fakeClassifier) Save(path string) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (f *fakeClassifier) FeatureImportances(context.Context) (map[string]float64, error) {
	return f.Weights, nil
}

// fakeFactory hands out fake classifiers and remembers them.
type fakeFactory struct {
	mu      sync.Mutex
	created []*fakeClassifier
	failAge bool
}

func (f *fakeFactory) New(task Task) (Classifier, error) {
	clf := &fakeClassifier{
		Task:     task,
		SexP:     0.7,
		AgeProba: []float64{0.1, 0.1, 0.5, 0.1, 0.1, 0.1},
		Weights:  map[string]float64{"x": 2, "code": 1},
	}
	if task == TaskAge && f.failAge {
		clf.fitErr = errors.New("trainer diverged")
	}
	f.mu.Lock()
	f.created = append(f.created, clf)
	f.mu.Unlock()
	return clf, nil
}

func (f *fakeFactory) Load(task Task, path string) (Classifier, error) {
	data, err := os.ReadFile(path) //nolint:gosec // test fixture path
	if err != nil {
		return nil, err
	}
	var clf fakeClassifier
	if err := json.Unmarshal(data, &clf); err != nil {
		return nil, err
	}
	if clf.Task != task {
		return nil, errors.New("task mismatch")
	}
	return &clf, nil
}

// stripes assigns row position p to validation fold p%K.
type stripes struct{ K int }

func (s stripes) NumFolds() int { return s.K }

func (s stripes) Split(users []uint32) ([]folds.Fold, error) {
	out := make([]folds.Fold, s.K)
	for i := range out {
		out[i].Index = i
	}
	for p := range users {
		for i := range out {
			if p%s.K == i {
				out[i].Validation = append(out[i].Validation, p)
			} else {
				out[i].Train = append(out[i].Train, p)
			}
		}
	}
	return out, nil
}

// testDataset builds n labeled users 1..n. Sex alternates in pairs so every
// stripe of two folds holds both classes; ages cycle over all buckets.
func testDataset(n int, opts PoolOptions) (*Dataset, []models.Label) {
	columns := []features.Column{
		features.NumericColumn("x", features.Int(0)),
		features.CategoricalColumn("code", features.Null),
		features.TextColumn("blob"),
	}
	tbl := features.NewTable("test", columns)
	users := make([]uint32, n)
	labels := make([]models.Label, n)
	for i := range n {
		u := uint32(i + 1)
		users[i] = u
		_ = tbl.Set(u, []features.Cell{features.Int(i), features.Str("c"), features.Str("a b")})
		labels[i] = models.NewLabel(models.RawLabel{
			UserID: u,
			IsMale: sql.NullBool{Bool: i%4 < 2, Valid: true},
			Age:    sql.NullInt32{Int32: int32(17 + 8*(i%7)), Valid: true},
		})
	}
	m, err := features.Join(users, tbl)
	if err != nil {
		panic(err)
	}
	ds, err := NewDataset(m, labels, opts)
	if err != nil {
		panic(err)
	}
	return ds, labels
}
