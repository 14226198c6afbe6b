// Package classify assigns a content-type label to a document from the
// rule set carried in the heuristics store.  The classifier is rule based:
// URL, title and body regex patterns plus weighted structural signals are
// scored per label, and the highest-scoring label wins when it clears the
// rule's minimum score.  Documents that score below threshold are labelled
// Other and flagged for review.
package classify

import (
	"regexp"
	"strings"

	"github.com/bpointel/docintel/internal/heuristics"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
)

// LabelOther is assigned when no rule clears its threshold.
const LabelOther = "Other"

// Signal names accepted in a rule's signals list.
const (
	SignalMetrics          = "metrics"
	SignalQuotes           = "quotes"
	SignalCodeBlocks       = "code_blocks"
	SignalCTA              = "cta"
	SignalForm             = "form"
	SignalDate             = "date"
	SignalRegistration     = "registration"
	SignalPricingTable     = "pricing_table"
	SignalCurrency         = "currency"
	SignalRequirementsList = "requirements_list"
	SignalNames            = "names"
	SignalList             = "list"
	SignalSteps            = "steps"
)

const (
	urlWeight     = 10.0
	titleWeight   = 5.0
	patternWeight = 1.0

	defaultMinScore    = 30.0
	defaultReviewBelow = 0.65
)

// ─────────────────────────────────────────────────────────────────────────────
// Signal detectors
// ─────────────────────────────────────────────────────────────────────────────

var signalPatterns = map[string]*regexp.Regexp{
	SignalMetrics:          regexp.MustCompile(`\d+\s*(%|percent|percentage|bps)`),
	SignalQuotes:           regexp.MustCompile(`["“”]`),
	SignalCTA:              regexp.MustCompile(`\b(get started|sign up|try free|request demo|contact (us|sales))\b`),
	SignalForm:             regexp.MustCompile(`<form|\bfill out\b`),
	SignalDate:             regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december|\d{1,2}/\d{1,2}/\d{2,4}|20\d{2})\b`),
	SignalRegistration:     regexp.MustCompile(`\b(register|registration|rsvp|save your spot)\b`),
	SignalPricingTable:     regexp.MustCompile(`<table|\b(per month|per user|pricing plan|pricing tier)\b`),
	SignalCurrency:         regexp.MustCompile(`[$£€¥]\s?\d|\b(usd|eur|gbp|cad|aud)\b`),
	SignalRequirementsList: regexp.MustCompile(`\b(requirements|qualifications|responsibilities):`),
	SignalNames:            regexp.MustCompile(`\b(ceo|cfo|cto|coo|vp|vice president|manager|director)\b`),
	SignalList:             regexp.MustCompile(`(?m)^\s*([-*•]|\d+\.)\s`),
	SignalSteps:            regexp.MustCompile(`\bstep\s+\d+`),
}

var signalWeights = map[string]float64{
	SignalMetrics:          3.0,
	SignalQuotes:           2.0,
	SignalCodeBlocks:       3.0,
	SignalCTA:              2.0,
	SignalForm:             1.5,
	SignalDate:             2.0,
	SignalRegistration:     2.0,
	SignalPricingTable:     2.5,
	SignalCurrency:         1.5,
	SignalRequirementsList: 2.0,
	SignalNames:            1.5,
	SignalList:             2.0,
	SignalSteps:            1.5,
}

// ─────────────────────────────────────────────────────────────────────────────
// Classifier
// ─────────────────────────────────────────────────────────────────────────────

// Result is the classification verdict stored in document metadata.
type Result struct {
	// Label is the assigned content type, LabelOther when below threshold.
	Label string `json:"label"`
	// RawLabel is the best-scoring rule label regardless of threshold.
	RawLabel    string             `json:"raw_label"`
	Score       float64            `json:"score"`
	Confidence  float64            `json:"confidence"`
	NeedsReview bool               `json:"needs_review"`
	Threshold   float64            `json:"threshold"`
	Scores      map[string]float64 `json:"scores"`
}

type compiledRule struct {
	label       string
	urlRes      []*regexp.Regexp
	titleRes    []*regexp.Regexp
	bodyRes     []*regexp.Regexp
	signals     []string
	minScore    float64
	reviewBelow float64
}

// Classifier scores documents against the content-type rules.  Enabled
// reports false when the rule file was absent; Classify then returns nil.
type Classifier struct {
	rules  []compiledRule
	logger logging.Logger
}

// New compiles the rule set.  Invalid regex patterns are logged and dropped
// rather than failing the whole rule, matching how curated pattern files
// degrade in production.
func New(rules []heuristics.ContentTypeRule, logger logging.Logger) *Classifier {
	c := &Classifier{logger: logger.Named("classify")}
	for _, r := range rules {
		cr := compiledRule{
			label:       r.Label,
			signals:     r.Signals,
			minScore:    r.MinScore,
			reviewBelow: r.ReviewBelow,
		}
		if cr.minScore <= 0 {
			cr.minScore = defaultMinScore
		}
		if cr.reviewBelow <= 0 {
			cr.reviewBelow = defaultReviewBelow
		}
		cr.urlRes = c.compile(r.Label, r.URLPatterns)
		cr.titleRes = c.compile(r.Label, r.TitlePatterns)
		cr.bodyRes = c.compile(r.Label, r.BodyPatterns)
		c.rules = append(c.rules, cr)
	}
	return c
}

func (c *Classifier) compile(label string, patterns []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			c.logger.Warn("dropping invalid classifier pattern",
				logging.String("label", label),
				logging.String("pattern", p),
				logging.Err(err))
			continue
		}
		res = append(res, re)
	}
	return res
}

// Enabled reports whether any rules were loaded.
func (c *Classifier) Enabled() bool { return len(c.rules) > 0 }

// Classify scores the document against every rule and returns the verdict,
// or nil when the classifier is disabled.
func (c *Classifier) Classify(url, title, body string) *Result {
	if !c.Enabled() {
		return nil
	}

	urlLower := strings.ToLower(url)
	titleLower := strings.ToLower(title)
	bodyLower := strings.ToLower(body)

	scores := make(map[string]float64, len(c.rules))
	var best *compiledRule
	bestScore := -1.0

	for i := range c.rules {
		r := &c.rules[i]
		score := r.score(urlLower, titleLower, body, bodyLower)
		scores[r.label] = score
		if score > bestScore {
			bestScore = score
			best = r
		}
	}

	threshold := best.minScore
	meets := bestScore >= threshold

	denom := threshold
	if denom < defaultMinScore {
		denom = defaultMinScore
	}
	confidence := bestScore / denom
	if meets {
		if confidence > 1.0 {
			confidence = 1.0
		}
	} else if confidence > 0.6 {
		confidence = 0.6
	}

	label := best.label
	if !meets {
		label = LabelOther
	}

	return &Result{
		Label:       label,
		RawLabel:    best.label,
		Score:       bestScore,
		Confidence:  confidence,
		NeedsReview: !meets || confidence < best.reviewBelow,
		Threshold:   threshold,
		Scores:      scores,
	}
}

func (r *compiledRule) score(urlLower, titleLower, body, bodyLower string) float64 {
	var score float64

	for _, re := range r.urlRes {
		if re.MatchString(urlLower) {
			score += urlWeight
			break
		}
	}
	for _, re := range r.titleRes {
		if re.MatchString(titleLower) {
			score += titleWeight
			break
		}
	}
	for _, re := range r.bodyRes {
		if re.MatchString(body) {
			score += patternWeight
		}
	}

	for _, name := range r.signals {
		switch name {
		case SignalCodeBlocks:
			if strings.Contains(bodyLower, "```") || strings.Contains(bodyLower, "<code") {
				score += signalWeights[name]
			}
		default:
			re, ok := signalPatterns[name]
			if !ok {
				continue
			}
			if re.MatchString(bodyLower) {
				score += signalWeights[name]
			}
		}
	}
	return score
}
