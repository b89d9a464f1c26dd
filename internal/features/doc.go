// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

/*
Package features compresses the per-session event log into a fixed-width
per-user feature matrix.

Each Aggregator reads a Corpus (sessions grouped by user) and returns one
Table with at most one row per user. Aggregators share no state, so the
Builder runs them concurrently and left joins their tables on the user id.

# Conventions

Every aggregator follows the same reduction rules:

  - Shares divide by the user's total and resolve to 0 when the total is 0.
  - The dominant ("main", "top") category is the one with the largest
    request count; equal counts resolve to the larger code. NoCode sorts
    before every valid code, so an unmapped category only wins when it is
    the sole maximum.
  - Distinct counts include NoCode as one value.
  - Distribution columns are filled with 0 for unobserved categories.
  - Ranked lists order by count descending then key ascending, and pad with
    the empty string.

# Fill Policy

Users of the requested universe that have no row in a table receive each
column's Fill: 0 for counts and shares, "" for ranked and text columns, and
null for codes, prices and census statistics.

# Aggregators

  - Device: dominant device codes, canonical brand and model, imputed price
  - Geo: region and city coverage and main region and city
  - Demographics: census profile of the user's main region
  - Time: activity period and part-of-day request profile
  - PartOfDay: day, host and request shares per part of day
  - Usage: activity totals and per group averages
  - URL: host statistics, top hosts and host text blobs
  - URLText: cleaned host and token blobs
  - History: host and usage statistics over cleaned hosts
*/
package features
