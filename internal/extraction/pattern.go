package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Pattern families.  The families are matched in a fixed order and share one
// claimed-span set per pass, so no two rules ever claim the same characters.
// ─────────────────────────────────────────────────────────────────────────────

var (
	// Symbol-prefixed amounts ("$1,234.56 million") or code-suffixed
	// amounts ("1200 USD").  Group layout: 1 symbol, 2 amount, 3 magnitude,
	// 4 amount, 5 code.
	moneyRe = regexp.MustCompile(`(?i)([$£€¥])\s?(\d[\d,]*(?:\.\d+)?)(\s?(?:thousand|million|billion|trillion))?|\b(\d[\d,]*(?:\.\d+)?)\s?(USD|EUR|GBP|JPY|CAD|AUD)\b`)

	percentRe = regexp.MustCompile(`(?i)\b(\d{1,3}(?:\.\d+)?)\s?(%|percent\b)`)

	dateISORe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dateMonthRe = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(?:(\d{1,2})(?:st|nd|rd|th)?,?\s+)?(\d{4})\b`)
	// Slash dates are ambiguous (03/04/2025 could be March 4 or April 3);
	// emitted with reduced confidence and a raw-surface fallback.
	dateSlashRe = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)

	timeRangeRe = regexp.MustCompile(`(?i)\b(?:Q[1-4]\s*\d{4}|\d+\s+(?:day|week|month|year)s?|next\s+(?:quarter|year)|past\s+\d+\s+(?:months|years))\b`)
	temporalRe  = regexp.MustCompile(`(?i)\b(?:pre|post|mid)-(?:launch|merger|acquisition|pandemic)\b`)
)

var currencyBySymbol = map[string]string{
	"$": "USD",
	"£": "GBP",
	"€": "EUR",
	"¥": "JPY",
}

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
}

// PatternMatcher is the second tier: deterministic regex extraction of
// MONEY, PERCENT and DATE values plus the time-range and temporal-context
// pattern families.
type PatternMatcher struct {
	conf   config.ConfidenceConfig
	logger logging.Logger
}

func NewPatternMatcher(conf config.ConfidenceConfig, logger logging.Logger) *PatternMatcher {
	return &PatternMatcher{conf: conf, logger: logger.Named("extraction.patterns")}
}

func (m *PatternMatcher) Tier() entity.Tier { return entity.TierRegex }

func (m *PatternMatcher) Generate(_ context.Context, req Request) ([]entity.Candidate, error) {
	text := req.Chunk.Text
	seq := req.Chunk.Seq

	var out []entity.Candidate
	var taken []entity.Span

	emit := func(start, end int, typ entity.Type, norm entity.Normalized, conf float64) {
		span := entity.Span{ChunkSeq: seq, Start: start, End: end}
		if claimed(span, taken) {
			return
		}
		cand, err := entity.NewCandidate(span, text, typ, norm, conf, entity.TierRegex)
		if err != nil {
			m.logger.Warn("dropping pattern candidate", logging.String("type", string(typ)), logging.Err(err))
			return
		}
		out = append(out, cand)
		taken = append(taken, span)
	}

	for _, loc := range moneyRe.FindAllStringSubmatchIndex(text, -1) {
		norm, ok := m.normalizeMoney(text, loc)
		if !ok {
			continue
		}
		emit(loc[0], loc[1], entity.TypeMoney, norm, m.conf.Money)
	}

	for _, loc := range percentRe.FindAllStringSubmatchIndex(text, -1) {
		value, err := strconv.ParseFloat(text[loc[2]:loc[3]], 64)
		if err != nil {
			continue
		}
		emit(loc[0], loc[1], entity.TypePercent, entity.Normalized{"value": value / 100}, m.conf.Percent)
	}

	for _, loc := range dateISORe.FindAllStringIndex(text, -1) {
		emit(loc[0], loc[1], entity.TypeDate,
			entity.Normalized{"iso": text[loc[0]:loc[1]]}, m.conf.DateUnambiguous)
	}
	for _, loc := range dateMonthRe.FindAllStringSubmatchIndex(text, -1) {
		iso, ok := m.normalizeMonthDate(text, loc)
		if !ok {
			continue
		}
		emit(loc[0], loc[1], entity.TypeDate, entity.Normalized{"iso": iso}, m.conf.DateUnambiguous)
	}
	for _, loc := range dateSlashRe.FindAllStringIndex(text, -1) {
		emit(loc[0], loc[1], entity.TypeDate,
			entity.Normalized{"raw": text[loc[0]:loc[1]], "ambiguous": true}, m.conf.DateAmbiguous)
	}

	for _, loc := range timeRangeRe.FindAllStringIndex(text, -1) {
		emit(loc[0], loc[1], entity.TypeTimeRange,
			entity.Normalized{"raw": text[loc[0]:loc[1]]}, m.conf.TimeRange)
	}
	for _, loc := range temporalRe.FindAllStringIndex(text, -1) {
		emit(loc[0], loc[1], entity.TypeTemporalContext,
			entity.Normalized{"raw": text[loc[0]:loc[1]]}, m.conf.TemporalDescriptor)
	}

	return out, nil
}

// normalizeMoney builds {amount, currency[, magnitude]} from a money match.
// loc is the submatch index vector from FindAllStringSubmatchIndex.
func (m *PatternMatcher) normalizeMoney(text string, loc []int) (entity.Normalized, bool) {
	group := func(n int) string {
		if loc[2*n] < 0 {
			return ""
		}
		return text[loc[2*n]:loc[2*n+1]]
	}

	var rawAmount, currency, magnitude string
	if symbol := group(1); symbol != "" {
		rawAmount = group(2)
		currency = currencyBySymbol[symbol]
		magnitude = strings.ToLower(strings.TrimSpace(group(3)))
	} else {
		rawAmount = group(4)
		currency = strings.ToUpper(group(5))
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(rawAmount, ",", ""), 64)
	if err != nil {
		return nil, false
	}

	norm := entity.Normalized{"amount": amount, "currency": currency}
	if magnitude != "" {
		norm["magnitude"] = magnitude
	}
	return norm, true
}

func (m *PatternMatcher) normalizeMonthDate(text string, loc []int) (string, bool) {
	group := func(n int) string {
		if loc[2*n] < 0 {
			return ""
		}
		return text[loc[2*n]:loc[2*n+1]]
	}

	month, ok := monthNumbers[strings.ToLower(group(1))]
	if !ok {
		return "", false
	}
	year := group(3)

	if day := group(2); day != "" {
		d, err := strconv.Atoi(day)
		if err != nil || d < 1 || d > 31 {
			return "", false
		}
		return fmt.Sprintf("%s-%02d-%02d", year, month, d), true
	}
	// Month-year only, ISO 8601 reduced precision.
	return fmt.Sprintf("%s-%02d", year, month), true
}
