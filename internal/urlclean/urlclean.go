// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

// Package urlclean provides host name normalization steps that can be
// composed into a Cleaner and injected into the text aggregators.
//
// Every step is a pure string transform. Chain applies steps in order and
// stops as soon as the value is one of the protected hosts.
package urlclean

import (
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

// Cleaner normalizes one host name.
type Cleaner func(string) string

// Step is one transform in a Chain.
type Step func(string) string

// Identity returns hosts unchanged.
func Identity(host string) string {
	return host
}

// Chain composes steps. A value found in protected is returned as is,
// whether it was protected on input or became protected after a step.
func Chain(protected []string, steps ...Step) Cleaner {
	keep := make(map[string]struct{}, len(protected))
	for _, p := range protected {
		keep[p] = struct{}{}
	}
	return func(host string) string {
		for _, step := range steps {
			if _, ok := keep[host]; ok {
				break
			}
			host = step(host)
		}
		return host
	}
}

// Default returns the idempotent chain used for text features.
func Default(accelerators, protected []string) Cleaner {
	return Chain(protected,
		Lower,
		Punycode,
		StripAccelerator(accelerators),
		DropOneCharDomains,
	)
}

var punycode = idna.New()

// Punycode decodes IDNA labels. Hosts that fail to decode pass through.
func Punycode(host string) string {
	decoded, err := punycode.ToUnicode(host)
	if err != nil {
		return host
	}
	return decoded
}

// Lower lower-cases the host.
func Lower(host string) string {
	return strings.ToLower(host)
}

// HyphensToDots replaces hyphens with dots, dropping empty parts.
func HyphensToDots(host string) string {
	return joinNonEmpty(strings.Split(host, "-"), func(string) bool { return true })
}

// StripAccelerator removes a trailing page accelerator suffix and restores
// the dotted host encoded in its hyphenated prefix.
func StripAccelerator(accelerators []string) Step {
	return func(host string) string {
		for _, a := range accelerators {
			if strings.HasSuffix(host, a) {
				return strings.ReplaceAll(strings.TrimSuffix(host, a), "-", ".")
			}
		}
		return host
	}
}

// RemoveChars deletes every occurrence of chars.
func RemoveChars(chars []string) Step {
	return func(host string) string {
		for _, c := range chars {
			host = strings.ReplaceAll(host, c, "")
		}
		return host
	}
}

// KeepSuffix replaces the host by the first suffix it ends with.
func KeepSuffix(suffixes []string) Step {
	return func(host string) string {
		for _, s := range suffixes {
			if strings.HasSuffix(host, s) {
				return s
			}
		}
		return host
	}
}

// DropFirstLevelDomain removes the last dotted label. It is not idempotent.
func DropFirstLevelDomain(host string) string {
	i := strings.LastIndex(host, ".")
	if i < 0 {
		return host
	}
	return host[:i]
}

// DropOneCharDomains removes labels shorter than two characters.
func DropOneCharDomains(host string) string {
	return joinNonEmpty(strings.Split(host, "."), func(label string) bool {
		return len([]rune(label)) > 1
	})
}

// RemoveDomains removes the listed labels.
func RemoveDomains(domains []string) Step {
	drop := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		drop[d] = struct{}{}
	}
	return func(host string) string {
		labels := strings.Split(host, ".")
		kept := labels[:0]
		for _, l := range labels {
			if _, ok := drop[l]; !ok {
				kept = append(kept, l)
			}
		}
		return strings.Join(kept, ".")
	}
}

// KeepEntry replaces the host by the first entry it contains.
func KeepEntry(entries []string) Step {
	return func(host string) string {
		for _, e := range entries {
			if strings.Contains(host, e) {
				return e
			}
		}
		return host
	}
}

// Map replaces hosts found in mapping. Empty targets are ignored.
func Map(mapping map[string]string) Step {
	return func(host string) string {
		if v := mapping[host]; v != "" {
			return v
		}
		return host
	}
}

var letters = regexp.MustCompile(`[a-zA-Zа-яА-Я]+`)

// KeepLetters concatenates the Latin and Cyrillic letter runs of host.
func KeepLetters(host string) string {
	return strings.Join(letters.FindAllString(host, -1), "")
}

func joinNonEmpty(parts []string, keep func(string) bool) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" && keep(p) {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}
