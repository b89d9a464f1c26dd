// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package catboost

import (
	"bytes"
	"text/template"

	"github.com/xh3b4sd/tracer"
)

// Script modes.
const (
	modeFit        = "fit"
	modePredict    = "predict"
	modeImportance = "importance"
)

// Files exchanged with the script inside a work directory.
const (
	columnDescriptionFile = "pool.cd"
	trainPoolFile         = "train.tsv"
	evalPoolFile          = "eval.tsv"
	predictPoolFile       = "predict.tsv"
	probaFile             = "proba.tsv"
	importancesFile       = "importances.json"
	modelFile             = "model.cbm"
	scriptFile            = "run.py"
)

const deftem = `
import json

import catboost as cb
import pandas as pd

################################################################################

WORK = "{{ .Dir }}"
MODEL = "{{ .Model }}"

################################################################################

def load_pool(name):
  return cb.Pool(
    data=WORK + "/" + name,
    column_description=WORK + "/{{ .ColumnDescription }}",
    delimiter="\t",
    has_header=True,
  )

################################################################################

def model_params():
  params = {
    "loss_function": "{{ .Loss }}",
    "eval_metric": "{{ .Loss }}",
    "iterations": {{ .Options.Iterations }},
    "learning_rate": {{ .Options.LearningRate }},
    "depth": {{ .Options.Depth }},
    "l2_leaf_reg": {{ .Options.L2LeafReg }},
    "random_seed": {{ .Options.RandomSeed }},
    "thread_count": {{ .Options.ThreadCount }},
    "allow_writing_files": False,
  }
{{- if eq .Options.TaskType "auto" }}
  from catboost.utils import get_gpu_device_count
  params["task_type"] = "GPU" if get_gpu_device_count() > 0 else "CPU"
{{- else }}
  params["task_type"] = "{{ .Options.TaskType }}"
{{- end }}
{{- if gt .Options.EarlyStoppingRounds 0 }}
  params["early_stopping_rounds"] = {{ .Options.EarlyStoppingRounds }}
{{- end }}
  return params

################################################################################

def write_importances(model):
  with open(WORK + "/{{ .Importances }}", "w") as f:
    json.dump(dict(zip(model.feature_names_, [float(v) for v in model.feature_importances_])), f)

################################################################################
{{ if eq .Mode "fit" }}
model = cb.CatBoostClassifier(**model_params())
model.fit(load_pool("{{ .Train }}"), eval_set=load_pool("{{ .Eval }}"), verbose={{ .Options.Verbose }})
model.save_model(MODEL)
write_importances(model)
{{- else if eq .Mode "predict" }}
model = cb.CatBoostClassifier()
model.load_model(MODEL)
proba = model.predict_proba(load_pool("{{ .Predict }}"))
pd.DataFrame(proba, columns=[str(c) for c in model.classes_]).to_csv(WORK + "/{{ .Proba }}", sep="\t", index=False)
{{- else if eq .Mode "importance" }}
model = cb.CatBoostClassifier()
model.load_model(MODEL)
write_importances(model)
{{- end }}
`

var scriptTemplate = template.Must(template.New("catboost").Parse(deftem))

// scriptData is the template input of one script run.
type scriptData struct {
	Mode    string
	Dir     string
	Model   string
	Loss    string
	Options Options

	ColumnDescription string
	Train             string
	Eval              string
	Predict           string
	Proba             string
	Importances       string
}

func newScriptData(mode, dir, model, loss string, opts Options) scriptData {
	return scriptData{
		Mode:              mode,
		Dir:               dir,
		Model:             model,
		Loss:              loss,
		Options:           opts,
		ColumnDescription: columnDescriptionFile,
		Train:             trainPoolFile,
		Eval:              evalPoolFile,
		Predict:           predictPoolFile,
		Proba:             probaFile,
		Importances:       importancesFile,
	}
}

// render executes the script template.
//
//nolint:gocritic // scriptData is passed by value to the template
func render(data scriptData) ([]byte, error) {
	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, data); err != nil {
		return nil, tracer.Mask(err)
	}
	return buf.Bytes(), nil
}
