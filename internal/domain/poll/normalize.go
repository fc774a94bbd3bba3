package poll

import (
	"sort"
	"strings"
)

// MinDates is the smallest candidate set a poll may have.
const MinDates = 3

// Input is what an owner submits on create and update.
type Input struct {
	Title       string
	Description *string
	Dates       []string
}

// NormalizeDates trims, drops empties, de-duplicates and sorts ascending.
func NormalizeDates(dates []string) []string {
	seen := make(map[string]struct{}, len(dates))
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func normalizeInput(in Input) (Input, error) {
	out := Input{
		Title: strings.TrimSpace(in.Title),
		Dates: NormalizeDates(in.Dates),
	}
	if in.Description != nil {
		if d := strings.TrimSpace(*in.Description); d != "" {
			out.Description = &d
		}
	}

	if out.Title == "" {
		return Input{}, Invalidf("title is required")
	}
	if len(out.Dates) < MinDates {
		return Input{}, Invalidf("at least %d dates are required", MinDates)
	}
	return out, nil
}
