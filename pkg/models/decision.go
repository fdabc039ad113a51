package models

import "strings"

// DecisionClass is the coarse trading signal shown for a finished job.
type DecisionClass string

const (
	DecisionBuy  DecisionClass = "buy"
	DecisionSell DecisionClass = "sell"
	DecisionHold DecisionClass = "hold"
)

var (
	buyKeywords  = []string{"kaufen", "buy"}
	sellKeywords = []string{"verkaufen", "sell"}
)

// ClassifyDecision maps free-form decision text to buy, sell or hold using
// case-insensitive substring matches. Buy keywords are checked first, so
// "verkaufen" (which contains "kaufen") classifies as buy.
func ClassifyDecision(text string) DecisionClass {
	lower := strings.ToLower(text)
	if lower == "" {
		return DecisionHold
	}
	for _, kw := range buyKeywords {
		if strings.Contains(lower, kw) {
			return DecisionBuy
		}
	}
	for _, kw := range sellKeywords {
		if strings.Contains(lower, kw) {
			return DecisionSell
		}
	}
	return DecisionHold
}

// Label is the badge text for the class.
func (c DecisionClass) Label() string {
	switch c {
	case DecisionBuy:
		return "BUY"
	case DecisionSell:
		return "SELL"
	default:
		return "HOLD"
	}
}
