// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

/*
Package modeling trains and applies the per-fold sex and age classifiers.

The gradient boosting model itself is an external collaborator reached
through the Classifier and Factory interfaces. This package owns everything
around it: building training and evaluation pools from the joined feature
matrix, running the cross-validation loop, averaging fold models into an
ensemble prediction, and persisting fold artifacts.

# Cross-Validation

CrossValidator.Fit splits the labeled dataset with a folds.Splitter and,
for every fold, walks the fold state machine:

	not started -> training sex -> training age -> evaluated -> saved | discarded

The validation pool of a fold is only handed to the classifier as its
evaluation set and is never merged into training. Models are committed only
when every fold succeeds; a failing fold discards the whole fit.

# Ensemble Prediction

Predict averages the positive class probability of every sex model and the
probability vector of every age model, without weights. The predicted age
bucket is the arg-max position plus one, since buckets are 1-indexed.
PredictOOF predicts each fold's validation rows with that fold's models only
and tags each row with its fold.

# Snapshot Layout

	<dir>/fold-0/sex.cbm
	<dir>/fold-0/age.cbm
	...
	<dir>/metrics.json   ordered list of per-fold metric records
	<dir>/manifest.json  fold files with SHA-256 checksums
*/
package modeling
