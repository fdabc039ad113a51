// Package symbols offers ticker suggestions from a bundled list of widely
// traded stocks.
package symbols

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

const DefaultLimit = 10

// Symbol is one listed security.
type Symbol struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s - %s", s.Symbol, s.Name)
}

//go:embed symbols.json
var symbolsJSON []byte

var (
	loadOnce sync.Once
	all      []Symbol
	loadErr  error
)

// All returns the bundled list in its original order.
func All() ([]Symbol, error) {
	loadOnce.Do(func() {
		loadErr = json.Unmarshal(symbolsJSON, &all)
		if loadErr != nil {
			loadErr = fmt.Errorf("parse bundled symbols: %w", loadErr)
		}
	})
	return all, loadErr
}

// Search matches query against symbols and company names, case
// insensitively. Results are ranked: exact symbol, symbol prefix, name
// prefix, symbol substring, name substring. A non-positive limit means
// DefaultLimit.
func Search(query string, limit int) []Symbol {
	list, err := All()
	if err != nil {
		return nil
	}
	return searchIn(list, query, limit)
}

func searchIn(list []Symbol, query string, limit int) []Symbol {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	matchers := []func(sym, name string) bool{
		func(sym, _ string) bool { return sym == q },
		func(sym, _ string) bool { return strings.HasPrefix(sym, q) },
		func(_, name string) bool { return strings.HasPrefix(name, q) },
		func(sym, _ string) bool { return strings.Contains(sym, q) },
		func(_, name string) bool { return strings.Contains(name, q) },
	}

	seen := make(map[string]bool)
	var results []Symbol
	for _, match := range matchers {
		for _, s := range list {
			if seen[s.Symbol] {
				continue
			}
			if match(strings.ToUpper(s.Symbol), strings.ToUpper(s.Name)) {
				seen[s.Symbol] = true
				results = append(results, s)
				if len(results) == limit {
					return results
				}
			}
		}
	}
	return results
}

// Suggest returns "SYMBOL - Name" strings for interactive completion.
func Suggest(query string) []string {
	matches := Search(query, DefaultLimit)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.String())
	}
	return out
}

// TickerFromSuggestion extracts the ticker from a Suggest entry or returns
// the input upper-cased when it is a bare ticker.
func TickerFromSuggestion(s string) string {
	if i := strings.Index(s, " - "); i >= 0 {
		s = s[:i]
	}
	return strings.ToUpper(strings.TrimSpace(s))
}
