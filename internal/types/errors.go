package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInsufficientData is matched by errors.Is when no score category
	// had usable data.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidInput is matched by errors.Is for malformed price series.
	ErrInvalidInput = errors.New("invalid input")
)

type Category string

const (
	CategoryTechnical   Category = "technical"
	CategoryFundamental Category = "fundamental"
	CategorySentiment   Category = "sentiment"
)

// Categories lists score categories in their fixed evaluation order.
var Categories = []Category{CategoryTechnical, CategoryFundamental, CategorySentiment}

// DataUnavailable records a category that was skipped. It is carried on the
// Recommendation, never returned as an error.
type DataUnavailable struct {
	Category Category `json:"category"`
	Reason   string   `json:"reason"`
}

type InsufficientDataError struct {
	Symbol      string
	Unavailable []DataUnavailable
}

func (e *InsufficientDataError) Error() string {
	parts := make([]string, 0, len(e.Unavailable))
	for _, u := range e.Unavailable {
		parts = append(parts, fmt.Sprintf("%s: %s", u.Category, u.Reason))
	}
	msg := "insufficient data: no score category available"
	if e.Symbol != "" {
		msg = e.Symbol + ": " + msg
	}
	if len(parts) > 0 {
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return msg
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

type InvalidInputError struct {
	Symbol string
	Index  int
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("invalid input at candle %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid input for %s at candle %d: %s", e.Symbol, e.Index, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }
