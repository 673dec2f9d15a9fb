// Package classify turns raw message text into typed transaction attributes.
//
// Every classifier is an ordered table of (predicate, result) rules evaluated
// first-match-wins. Classifiers hold no mutable state and are safe for concurrent use.
package classify

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Overrides looks up user corrections. Implementations are backed by the override store.
type Overrides interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// rule is one entry of an ordered rule table. match reports the detail that triggered it.
type rule[In, Out any] struct {
	result Out
	match  func(In) (string, bool)
	name   string
}

// firstMatch evaluates rules in order and returns the first match with its detail.
func firstMatch[In, Out any](rules []rule[In, Out], in In) (rule[In, Out], string, bool) {
	for _, r := range rules {
		if detail, ok := r.match(in); ok {
			return r, detail, true
		}
	}
	var zero rule[In, Out]
	return zero, "", false
}

// reason formats the explanation for a matched rule.
func reason(name, detail string) string {
	if detail == "" {
		return name
	}
	return fmt.Sprintf("%s %q", name, detail)
}

// phraseList matches any of a set of words or phrases on word boundaries.
type phraseList struct {
	re    *regexp.Regexp
	words []string
}

func newPhraseList(words ...string) phraseList {
	alts := make([]string, 0, len(words))
	for _, w := range words {
		p := regexp.QuoteMeta(w)
		if isWordChar(firstRune(w)) {
			p = `\b` + p
		}
		if isWordChar(lastRune(w)) {
			p += `\b`
		}
		alts = append(alts, p)
	}
	return phraseList{
		re:    regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`),
		words: words,
	}
}

// find returns the first phrase occurring in text, lowercased.
func (p phraseList) find(text string) (string, bool) {
	m := p.re.FindString(text)
	if m == "" {
		return "", false
	}
	return strings.ToLower(m), true
}

func (p phraseList) matches(text string) bool {
	return p.re.MatchString(text)
}

// matcher adapts a phrase list to a rule predicate over a text projection.
func matcher[In any](p phraseList, text func(In) string) func(In) (string, bool) {
	return func(in In) (string, bool) {
		return p.find(text(in))
	}
}

func isWordChar(r rune) bool {
	return r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func lastRune(s string) rune {
	var last rune
	for _, r := range s {
		last = r
	}
	return last
}

func lookup(ctx context.Context, o Overrides, key string) (string, bool, error) {
	if o == nil {
		return "", false, nil
	}
	v, ok, err := o.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("failed to look up override %s: %w", key, err)
	}
	if !ok || strings.TrimSpace(v) == "" {
		return "", false, nil
	}
	return v, true, nil
}
