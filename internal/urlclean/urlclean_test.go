// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package urlclean

import "testing"

func TestSteps(t *testing.T) {
	t.Parallel()

	accelerators := []string{".turbopages.org", ".cdn.ampproject.org"}

	tests := []struct {
		name string
		step Step
		in   string
		want string
	}{
		{name: "punycode", step: Punycode, in: "xn--e1afmkfd.xn--p1ai", want: "пример.рф"},
		{name: "punycode plain", step: Punycode, in: "ya.ru", want: "ya.ru"},
		{name: "lower", step: Lower, in: "Mail.RU", want: "mail.ru"},
		{name: "hyphens", step: HyphensToDots, in: "my--site-name", want: "my.site.name"},
		{name: "accelerator", step: StripAccelerator(accelerators), in: "www-rbc-ru.turbopages.org", want: "www.rbc.ru"},
		{name: "amp", step: StripAccelerator(accelerators), in: "lenta-ru.cdn.ampproject.org", want: "lenta.ru"},
		{name: "no accelerator", step: StripAccelerator(accelerators), in: "turbopages.org", want: "turbopages.org"},
		{name: "remove chars", step: RemoveChars([]string{"www.", "_"}), in: "www.a_b.ru", want: "ab.ru"},
		{name: "keep suffix", step: KeepSuffix([]string{"googlevideo.com"}), in: "r3.sn-abc.googlevideo.com", want: "googlevideo.com"},
		{name: "first level", step: DropFirstLevelDomain, in: "news.mail.ru", want: "news.mail"},
		{name: "first level single", step: DropFirstLevelDomain, in: "localhost", want: "localhost"},
		{name: "one char", step: DropOneCharDomains, in: "m.vk.a.com", want: "vk.com"},
		{name: "remove domains", step: RemoveDomains([]string{"www", "m"}), in: "www.m.ok.ru", want: "ok.ru"},
		{name: "keep entry", step: KeepEntry([]string{"avito"}), in: "stat.avito.st", want: "avito"},
		{name: "map", step: Map(map[string]string{"vk.com": "vkontakte", "x": ""}), in: "vk.com", want: "vkontakte"},
		{name: "map empty target", step: Map(map[string]string{"x": ""}), in: "x", want: "x"},
		{name: "letters", step: KeepLetters, in: "sport-24.рф", want: "sportрф"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.step(tt.in); got != tt.want {
				t.Errorf("step(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestChain_Protected(t *testing.T) {
	t.Parallel()

	clean := Chain([]string{"news.mail", "ok.ru"}, Lower, DropFirstLevelDomain, DropFirstLevelDomain)

	if got := clean("NEWS.MAIL.RU"); got != "news.mail" {
		t.Errorf("clean() = %q, want chain to stop at protected news.mail", got)
	}
	if got := clean("ok.ru"); got != "ok.ru" {
		t.Errorf("clean() = %q, want protected input untouched", got)
	}
	if got := clean("a.b.c.d"); got != "a.b" {
		t.Errorf("clean() = %q, want a.b", got)
	}
}

func TestDefault_Idempotent(t *testing.T) {
	t.Parallel()

	clean := Default([]string{".turbopages.org"}, nil)
	hosts := []string{
		"XN--E1AFMKFD.XN--P1AI",
		"www-rbc-ru.turbopages.org",
		"m.vk.com",
		"Yandex.RU",
		"a.b",
		"",
	}
	for _, h := range hosts {
		once := clean(h)
		if twice := clean(once); twice != once {
			t.Errorf("clean(%q) = %q, clean twice = %q", h, once, twice)
		}
	}
}

func TestIdentity(t *testing.T) {
	t.Parallel()

	if Identity("Ya.ru") != "Ya.ru" {
		t.Error("Identity should not change input")
	}
}
