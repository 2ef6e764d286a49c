// Package command turns free-form utterances into structured inventory
// commands. Parsing runs in three stages: normalisation (lowercase, filler
// removal, number-word conversion), keyword-based intent scoring, and
// per-intent entity extraction with validation. The parser keeps a short
// history of successful results as conversational context.
package command

import "regexp"

// Intent identifies what an utterance asks the system to do. The zero
// value means no intent could be detected.
type Intent string

const (
	IntentNone        Intent = ""
	IntentAddItem     Intent = "add_item"
	IntentUpdateStock Intent = "update_stock"
	IntentRemoveItem  Intent = "remove_item"
	IntentQuery       Intent = "query"
	IntentReport      Intent = "report"
)

// Result is the outcome of parsing one utterance. OK reports whether the
// command is executable; when it is false, Reason explains what was wrong
// in words safe to show the user.
type Result struct {
	Raw        string
	Normalized string
	Intent     Intent
	Entities   Entities
	Confidence float64
	OK         bool
	Reason     string
}

const (
	// DefaultConfidenceThreshold is the minimum intent score accepted.
	DefaultConfidenceThreshold = 0.6

	// DefaultHistorySize bounds the conversational context.
	DefaultHistorySize = 5
)

// Parser converts utterances into Results. Safe for concurrent use.
type Parser struct {
	threshold float64
	history   *History
}

// Option configures a Parser.
type Option func(*Parser)

// WithConfidenceThreshold overrides the minimum accepted intent score.
// Values outside (0, 1] are ignored.
func WithConfidenceThreshold(t float64) Option {
	return func(p *Parser) {
		if t > 0 && t <= 1 {
			p.threshold = t
		}
	}
}

// WithHistorySize overrides how many successful results are retained as
// context.
func WithHistorySize(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.history = NewHistory(n)
		}
	}
}

// NewParser builds a Parser with the default threshold and history size
// unless overridden by options.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		threshold: DefaultConfidenceThreshold,
		history:   NewHistory(DefaultHistorySize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// History exposes the parser's conversational context.
func (p *Parser) History() *History {
	return p.history
}

// Threshold reports the configured confidence threshold.
func (p *Parser) Threshold() float64 {
	return p.threshold
}

// Parse analyses one utterance. It never returns an error: failures are
// reported through Result.OK and Result.Reason so callers can speak them
// back. Only successful results enter the history.
func (p *Parser) Parse(text string) Result {
	res := Result{Raw: text}
	res.Normalized = Normalize(text)

	intent, confidence := p.detectIntent(res.Normalized)
	if intent == IntentNone {
		res.Reason = "Could not understand the command intent"
		return res
	}
	res.Intent = intent
	res.Confidence = confidence

	res.Entities = extractEntities(res.Normalized, intent)
	if reason := validateEntities(intent, res.Entities); reason != "" {
		res.Reason = reason
		return res
	}

	res.OK = true
	p.history.Add(res)
	return res
}

// intentRule binds an intent to the keyword patterns that signal it.
type intentRule struct {
	intent   Intent
	patterns []*regexp.Regexp
}

// intentRules in priority order. Each intent scores matched/total across
// its patterns and the first intent reaching the highest score wins ties,
// so add_item beats update_stock for "update stock add 5 rice".
var intentRules = []intentRule{
	{
		intent:   IntentAddItem,
		patterns: compile(`\b(add|insert|store|put|create|new)\b`),
	},
	{
		intent:   IntentUpdateStock,
		patterns: compile(`\b(update|change|modify|increase|decrease|reduce)\b`),
	},
	{
		intent:   IntentRemoveItem,
		patterns: compile(`\b(delete|remove|drop|eliminate)\b`),
	},
	{
		intent: IntentQuery,
		patterns: compile(
			`\b(how many|how much|what|show|display|find|search|get|check)\b`,
			`\b(left|remaining|available|in stock)\b`,
		),
	},
	{
		intent:   IntentReport,
		patterns: compile(`\b(report|summary|list|show all|display all)\b`),
	},
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// detectIntent scores every intent against the normalised text and returns
// the winner. When the best score falls below the threshold no intent is
// returned, but the score still comes back for diagnostics.
func (p *Parser) detectIntent(text string) (Intent, float64) {
	best := IntentNone
	bestScore := 0.0

	for _, rule := range intentRules {
		matched := 0
		for _, pat := range rule.patterns {
			if pat.MatchString(text) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := float64(matched) / float64(len(rule.patterns))
		if score > bestScore {
			best, bestScore = rule.intent, score
		}
	}

	if best == IntentNone || bestScore < p.threshold {
		return IntentNone, bestScore
	}
	return best, bestScore
}
