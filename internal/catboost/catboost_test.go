// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package catboost

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/mtscup/internal/features"
	"github.com/tomtom215/mtscup/internal/logging"
	"github.com/tomtom215/mtscup/internal/modeling"
)

var _ modeling.Factory = (*Factory)(nil)
var _ modeling.Classifier = (*Classifier)(nil)

func testPool(labels []int) *modeling.Pool {
	return &modeling.Pool{
		Columns: []features.Column{
			features.NumericColumn("price", features.Null),
			features.CategoricalColumn("region", features.Null),
			features.TextColumn("urls"),
		},
		Users: []uint32{1, 2, 3},
		Rows: [][]features.Cell{
			{features.Num(1.5), features.Str("7"), features.Str("a b")},
			{features.Null, features.Null, features.Str("tab\there")},
			{features.Int(3), features.Str("2"), features.Str("")},
		},
		Labels: labels,
	}
}

func countRows(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	n := -1 // header
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	return n
}

// fakeScript plays the part of the Python script for a given job.
func fakeScript(t *testing.T, header string, row string, calls *[]string) Runner {
	return RunnerFunc(func(_ context.Context, job Job) error {
		*calls = append(*calls, job.Mode)
		if _, err := os.Stat(job.Script); err != nil {
			t.Errorf("script not written: %v", err)
		}
		switch job.Mode {
		case modeFit:
			for _, name := range []string{trainPoolFile, evalPoolFile, columnDescriptionFile} {
				if _, err := os.Stat(filepath.Join(job.Dir, name)); err != nil {
					t.Errorf("fit without %s", name)
				}
			}
			if err := os.WriteFile(job.Model, []byte("model"), 0o600); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(job.Dir, importancesFile), []byte(`{"price": 60, "region": 40}`), 0o600)
		case modePredict:
			n := countRows(t, filepath.Join(job.Dir, predictPoolFile))
			lines := []string{header}
			for range n {
				lines = append(lines, row)
			}
			return os.WriteFile(filepath.Join(job.Dir, probaFile), []byte(strings.Join(lines, "\n")+"\n"), 0o600)
		case modeImportance:
			return os.WriteFile(filepath.Join(job.Dir, importancesFile), []byte(`{"price": 1}`), 0o600)
		}
		return errors.New("unknown mode")
	})
}

func newTestFactory(t *testing.T, runner Runner) *Factory {
	t.Helper()
	opts := DefaultOptions()
	opts.WorkDir = t.TempDir()
	f, err := NewFactory(opts, runner, logging.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestClassifier_AgeFitPredict(t *testing.T) {
	t.Parallel()

	var calls []string
	// The model only saw buckets 2, 3 and 5.
	f := newTestFactory(t, fakeScript(t, "2\t3\t5", "0.2\t0.5\t0.3", &calls))
	clf, err := f.New(modeling.TaskAge)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := clf.PredictProba(context.Background(), testPool(nil)); !errors.Is(err, modeling.ErrNotFitted) {
		t.Errorf("PredictProba() before Fit: err = %v", err)
	}

	if err := clf.Fit(context.Background(), testPool([]int{2, 3, 5}), testPool([]int{2, 3, 5})); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	proba, err := clf.PredictProba(context.Background(), testPool(nil))
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0.2, 0.5, 0, 0.3, 0}
	for i, row := range proba {
		for j := range want {
			if row[j] != want[j] {
				t.Errorf("row %d = %v, want %v", i, row, want)
				break
			}
		}
	}

	labels, err := clf.Predict(context.Background(), testPool(nil))
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range labels {
		if l != 3 {
			t.Errorf("Predict() = %d, want bucket 3", l)
		}
	}

	fi, err := clf.FeatureImportances(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if fi["price"] != 60 || fi["region"] != 40 {
		t.Errorf("FeatureImportances() = %v", fi)
	}
	if got := strings.Join(calls, ","); got != "fit,predict,predict" {
		t.Errorf("script runs = %s", got)
	}
}

func TestClassifier_SexSaveLoad(t *testing.T) {
	t.Parallel()

	var calls []string
	f := newTestFactory(t, fakeScript(t, "0\t1", "0.25\t0.75", &calls))
	clf, err := f.New(modeling.TaskSex)
	if err != nil {
		t.Fatal(err)
	}
	if err := clf.Save(filepath.Join(t.TempDir(), "x.cbm")); !errors.Is(err, modeling.ErrNotFitted) {
		t.Errorf("Save() before Fit: err = %v", err)
	}
	if err := clf.Fit(context.Background(), testPool([]int{0, 1, 1}), testPool([]int{1, 0, 0})); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "sex.cbm")
	if err := clf.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := f.Load(modeling.TaskSex, path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	labels, err := loaded.Predict(context.Background(), testPool(nil))
	if err != nil {
		t.Fatal(err)
	}
	if labels[0] != 1 {
		t.Errorf("Predict() = %v, want label 1", labels)
	}
	fi, err := loaded.FeatureImportances(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if fi["price"] != 1 {
		t.Errorf("loaded importances = %v", fi)
	}

	if _, err := f.Load(modeling.TaskSex, filepath.Join(t.TempDir(), "missing.cbm")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestClassifier_RunnerFailure(t *testing.T) {
	t.Parallel()

	f := newTestFactory(t, RunnerFunc(func(context.Context, Job) error {
		return errors.New("exit status 1")
	}))
	clf, err := f.New(modeling.TaskSex)
	if err != nil {
		t.Fatal(err)
	}
	if err := clf.Fit(context.Background(), testPool([]int{0, 1, 0}), testPool([]int{0, 1, 0})); err == nil {
		t.Fatal("Fit() should surface the runner failure")
	}
}

func TestWritePool(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pool := testPool([]int{1, 0, 1})
	if err := writeColumnDescription(dir, pool); err != nil {
		t.Fatal(err)
	}
	if err := writePool(filepath.Join(dir, "p.tsv"), pool); err != nil {
		t.Fatal(err)
	}

	cd, err := os.ReadFile(filepath.Join(dir, columnDescriptionFile))
	if err != nil {
		t.Fatal(err)
	}
	wantCD := "0\tLabel\n1\tNum\tprice\n2\tCateg\tregion\n3\tText\turls\n"
	if string(cd) != wantCD {
		t.Errorf("column description = %q, want %q", cd, wantCD)
	}

	data, err := os.ReadFile(filepath.Join(dir, "p.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	want := "label\tprice\tregion\turls\n" +
		"1\t1.5\t7\ta b\n" +
		"0\tnan\t\ttab here\n" +
		"1\t3\t2\t\n"
	if string(data) != want {
		t.Errorf("pool file = %q, want %q", data, want)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	script, err := render(newScriptData(modeFit, "/work", "/work/model.cbm", "MultiClass", opts))
	if err != nil {
		t.Fatal(err)
	}
	s := string(script)
	for _, want := range []string{
		`"loss_function": "MultiClass"`,
		`"iterations": 10000`,
		`get_gpu_device_count`,
		`params["early_stopping_rounds"] = 300`,
		`model.save_model(MODEL)`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("fit script missing %q", want)
		}
	}

	opts.TaskType = TaskTypeCPU
	opts.EarlyStoppingRounds = 0
	script, err = render(newScriptData(modePredict, "/work", "/snap/age.cbm", "MultiClass", opts))
	if err != nil {
		t.Fatal(err)
	}
	s = string(script)
	if !strings.Contains(s, `params["task_type"] = "CPU"`) || strings.Contains(s, "early_stopping_rounds") {
		t.Errorf("predict script options not rendered:\n%s", s)
	}
	if !strings.Contains(s, "predict_proba") || strings.Contains(s, "save_model") {
		t.Errorf("predict script has the wrong body:\n%s", s)
	}
}

func TestOptions_Validate(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if err := opts.Validate(); err != nil {
		t.Fatalf("default options invalid: %v", err)
	}
	opts.TaskType = "TPU"
	if err := opts.Validate(); err == nil {
		t.Error("unknown task type should fail validation")
	}
	opts = DefaultOptions()
	opts.LearningRate = 0
	if err := opts.Validate(); err == nil {
		t.Error("zero learning rate should fail validation")
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	if _, err := expand([]int{7}, [][]float64{{1}}, 6, 1); !errors.Is(err, modeling.ErrShapeMismatch) {
		t.Errorf("out of range class: err = %v", err)
	}
	got, err := expand([]int{1}, [][]float64{{1}}, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got[0][0] != 0 || got[0][1] != 1 {
		t.Errorf("expand() = %v", got)
	}
}
