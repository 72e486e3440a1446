// Package dates infers calendar dates from free Portuguese text.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"EditaisScanner/internal/text"
)

// Policy bounds which inferred dates are believable and how far the fallback deadline lies.
type Policy struct {
	MinYear             int
	MaxYear             int
	DefaultDeadlineDays int
}

// DefaultPolicy mirrors the window the scanner has always used: 2020 to 2030, 30-day fallback.
func DefaultPolicy() Policy {
	return Policy{MinYear: 2020, MaxYear: 2030, DefaultDeadlineDays: 30}
}

// Plausible reports whether t falls inside the year window.
func (p Policy) Plausible(t time.Time) bool {
	y := t.Year()
	return y >= p.MinYear && y <= p.MaxYear
}

// DefaultDeadline is used when no other deadline source produced a date.
func (p Policy) DefaultDeadline(now time.Time) time.Time {
	days := p.DefaultDeadlineDays
	if days <= 0 {
		days = DefaultPolicy().DefaultDeadlineDays
	}
	return now.AddDate(0, 0, days)
}

var months = map[string]time.Month{
	"janeiro": time.January, "fevereiro": time.February, "marco": time.March,
	"abril": time.April, "maio": time.May, "junho": time.June, "julho": time.July,
	"agosto": time.August, "setembro": time.September, "outubro": time.October,
	"novembro": time.November, "dezembro": time.December,
	"jan": time.January, "fev": time.February, "mar": time.March, "abr": time.April,
	"mai": time.May, "jun": time.June, "jul": time.July, "ago": time.August,
	"set": time.September, "out": time.October, "nov": time.November, "dez": time.December,
}

// MonthFromName maps a Portuguese month name or abbreviation to its number.
func MonthFromName(name string) (time.Month, bool) {
	m, ok := months[text.Fold(strings.TrimSuffix(strings.TrimSpace(name), "."))]
	return m, ok
}

type layout int

const (
	numeric layout = iota
	spelled
)

type pattern struct {
	re     *regexp.Regexp
	layout layout
}

const (
	deadlinePrefix = `(?:até|prazo|encerramento|vencimento)[^\d]{0,40}?`
	numericCore    = `\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})\b`
	spelledCore    = `\b(\d{1,2})(?:º|°)?\s+de\s+(\p{L}+)\.?\s+de\s+(\d{4})\b`
	compactCore    = `\b(\d{1,2})\s+(\p{L}{3,})\.?\s+(\d{4})\b`
)

// Ordered by priority: phrase-anchored deadlines beat bare dates wherever they sit in the text.
var patterns = []pattern{
	{re: regexp.MustCompile(`(?i)` + deadlinePrefix + numericCore), layout: numeric},
	{re: regexp.MustCompile(`(?i)` + deadlinePrefix + spelledCore), layout: spelled},
	{re: regexp.MustCompile(`(?i)` + numericCore), layout: numeric},
	{re: regexp.MustCompile(`(?i)` + spelledCore), layout: spelled},
	{re: regexp.MustCompile(`(?i)` + compactCore), layout: spelled},
}

// Inferencer extracts the first plausible date from text.
type Inferencer struct {
	policy Policy
}

// NewInferencer builds an inferencer bound to the plausibility policy.
func NewInferencer(policy Policy) *Inferencer {
	if policy.MinYear == 0 && policy.MaxYear == 0 {
		def := DefaultPolicy()
		policy.MinYear, policy.MaxYear = def.MinYear, def.MaxYear
	}
	return &Inferencer{policy: policy}
}

// Policy returns the active policy.
func (i *Inferencer) Policy() Policy {
	return i.policy
}

// Infer returns the first plausible date found by the highest-priority matching pattern.
func (i *Inferencer) Infer(s string) *time.Time {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	for _, p := range patterns {
		for _, m := range p.re.FindAllStringSubmatch(s, -1) {
			t, ok := build(m[1], m[2], m[3], p.layout)
			if !ok || !i.policy.Plausible(t) {
				continue
			}
			return &t
		}
	}
	return nil
}

// ParseLenient accepts both free text and machine formats (RFC 3339, RFC 1123, ISO dates).
// Ambiguous numeric dates are always read day-first, also outside the plausibility window.
func (i *Inferencer) ParseLenient(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t := i.Infer(s); t != nil {
		return t
	}
	t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(false))
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func build(dayStr, monthStr, yearStr string, l layout) (time.Time, bool) {
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, false
	}

	var month time.Month
	switch l {
	case numeric:
		n, err := strconv.Atoi(monthStr)
		if err != nil || n < 1 || n > 12 {
			return time.Time{}, false
		}
		month = time.Month(n)
	case spelled:
		m, ok := MonthFromName(monthStr)
		if !ok {
			return time.Time{}, false
		}
		month = m
	}

	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalises 31/02 into March; reject instead
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
