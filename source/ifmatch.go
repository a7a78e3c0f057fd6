package source

import (
	"fmt"
	"strings"
)

// Matcher resolves an interface name against the names a counter facility
// reports. Implementations return the first candidate they accept.
type Matcher interface {
	Name() string
	Match(want string, candidates []string) (string, bool)
}

type matcherFunc struct {
	name string
	fn   func(want string, candidates []string) (string, bool)
}

func (m matcherFunc) Name() string { return m.name }

func (m matcherFunc) Match(want string, candidates []string) (string, bool) {
	return m.fn(want, candidates)
}

// NewMatcher wraps fn as a named Matcher.
func NewMatcher(name string, fn func(want string, candidates []string) (string, bool)) Matcher {
	return matcherFunc{name: name, fn: fn}
}

var (
	// ExactMatcher accepts a case-insensitive equal name.
	ExactMatcher = NewMatcher("exact", func(want string, candidates []string) (string, bool) {
		for _, c := range candidates {
			if strings.EqualFold(c, want) {
				return c, true
			}
		}
		return "", false
	})

	// SubstringMatcher accepts a candidate containing want, or contained in it.
	SubstringMatcher = NewMatcher("substring", func(want string, candidates []string) (string, bool) {
		w := strings.ToLower(want)
		for _, c := range candidates {
			lc := strings.ToLower(c)
			if lc == "" || w == "" {
				continue
			}
			if strings.Contains(lc, w) || strings.Contains(w, lc) {
				return c, true
			}
		}
		return "", false
	})

	// NormalizedMatcher compares names with punctuation folded away, so
	// "Intel(R) Wi-Fi 6 #2" matches "Intel[R] Wi-Fi 6 2".
	NormalizedMatcher = NewMatcher("normalized", func(want string, candidates []string) (string, bool) {
		w := normalizeIfName(want)
		if w == "" {
			return "", false
		}
		for _, c := range candidates {
			nc := normalizeIfName(c)
			if nc == "" {
				continue
			}
			if strings.Contains(nc, w) || strings.Contains(w, nc) {
				return c, true
			}
		}
		return "", false
	})

	// KeywordMatcher ignores want and picks the first candidate that looks
	// like a physical wired or wireless adapter.
	KeywordMatcher = NewMatcher("keyword", func(_ string, candidates []string) (string, bool) {
		for _, c := range candidates {
			if AdapterKind(c) != "" {
				return c, true
			}
		}
		return "", false
	})
)

// DefaultMatchers is the order interface names are resolved in.
var DefaultMatchers = []Matcher{ExactMatcher, SubstringMatcher, NormalizedMatcher, KeywordMatcher}

// MatchInterface tries each matcher in order and returns the first hit
// together with the name of the strategy that produced it. When nothing
// matches the error wraps ErrNoInterface.
func MatchInterface(want string, candidates []string, matchers ...Matcher) (string, string, error) {
	if len(matchers) == 0 {
		matchers = DefaultMatchers
	}
	for _, m := range matchers {
		if got, ok := m.Match(want, candidates); ok {
			return got, m.Name(), nil
		}
	}
	return "", "", fmt.Errorf("source: match interface %q among %d candidates: %w", want, len(candidates), ErrNoInterface)
}

var ifNameFolder = strings.NewReplacer("(", "", ")", "", "[", "", "]", "", "#", "", "_", " ", "-", " ")

func normalizeIfName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(ifNameFolder.Replace(s))), " ")
}

var (
	wiredKeywords    = []string{"ethernet", "eth", "en"}
	wirelessKeywords = []string{"wi-fi", "wifi", "wireless", "wlan", "wl"}
)

// AdapterKind guesses "Wi-Fi" or "Ethernet" from an interface name, or ""
// when the name matches neither family.
func AdapterKind(name string) string {
	n := strings.ToLower(name)
	for _, k := range wirelessKeywords {
		if strings.HasPrefix(n, k) || (len(k) > 3 && strings.Contains(n, k)) {
			return "Wi-Fi"
		}
	}
	for _, k := range wiredKeywords {
		if strings.HasPrefix(n, k) || (len(k) > 3 && strings.Contains(n, k)) {
			return "Ethernet"
		}
	}
	return ""
}
