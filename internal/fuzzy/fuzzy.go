// Package fuzzy implements similarity scoring and catalog name resolution
// for noisy spoken or typed item names.
//
// Scores are integers in [0, 100], 100 meaning identical. The default scorer
// is a normalized Levenshtein ratio; a Jaro-Winkler scorer is available as a
// drop-in alternative. Comparison is case-sensitive, so callers that want
// case-insensitive behaviour must lowercase both sides first.
//
// The [Resolver] ranks a candidate list against a query and returns the best
// match at or above a configurable threshold (default 80). Resolution is
// deterministic: the same query, candidate order, and threshold always yield
// the same result, and score ties keep the earliest candidate.
//
// An optional phonetic stage (Double Metaphone code overlap) can narrow
// ranking to candidates that sound like the query. It is off by default; the
// contract behaviour is pure string similarity.
package fuzzy

import (
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// DefaultThreshold is the minimum score for a candidate to be considered a
// match when no explicit threshold is configured.
const DefaultThreshold = 80

// Scorer computes a similarity score in [0, 100] between two strings.
type Scorer func(a, b string) int

// Ratio is the normalized Levenshtein similarity between a and b:
// 100 when both are empty, 0 when exactly one is empty, otherwise
// round(100 * (1 - distance/longerLength)).
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	dist := matchr.Levenshtein(a, b)
	return int(math.Round(100 * (1 - float64(dist)/float64(maxLen))))
}

// PartialRatio is the best [Ratio] between the shorter string and any
// equal-length contiguous window of the longer one. "berry" scores 100
// against "strawberry".
func PartialRatio(a, b string) int {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		if len(longer) == 0 {
			return 100
		}
		return 0
	}
	if len(shorter) == len(longer) {
		return Ratio(string(shorter), string(longer))
	}

	best := 0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		window := string(longer[i : i+len(shorter)])
		if s := Ratio(string(shorter), window); s > best {
			best = s
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio compares a and b with their whitespace-separated tokens
// sorted, making the score independent of word order: "red apples" and
// "apples red" score 100.
func TokenSortRatio(a, b string) int {
	return Ratio(sortTokens(a), sortTokens(b))
}

// sortTokens splits s into fields, sorts them, and rejoins with single
// spaces.
func sortTokens(s string) string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

// LevenshteinScorer is the default [Scorer], identical to [Ratio].
func LevenshteinScorer(a, b string) int {
	return Ratio(a, b)
}

// JaroWinklerScorer scores with Jaro-Winkler similarity scaled to [0, 100].
// More forgiving of suffix noise than the Levenshtein ratio; useful when the
// recognizer tends to clip word endings.
func JaroWinklerScorer(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	return int(math.Round(matchr.JaroWinkler(a, b, false) * 100))
}

// Match is one scored candidate returned by the [Resolver].
type Match struct {
	// Value is the matched candidate exactly as it appeared in the list.
	Value string

	// Score is the similarity score in [0, 100].
	Score int

	// Index is the candidate's position in the original list.
	Index int
}

// ─── Resolver ────────────────────────────────────────────────────────────────

// Option is a functional option for [NewResolver].
type Option func(*Resolver)

// WithThreshold sets the minimum score for a match. Values are clamped to
// [0, 100]. Default: [DefaultThreshold].
func WithThreshold(threshold int) Option {
	return func(r *Resolver) {
		if threshold < 0 {
			threshold = 0
		}
		if threshold > 100 {
			threshold = 100
		}
		r.threshold = threshold
	}
}

// WithScorer replaces the similarity function. Default: [LevenshteinScorer].
func WithScorer(s Scorer) Option {
	return func(r *Resolver) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithPhonetic enables the Double Metaphone pre-filter: when at least one
// candidate shares a phonetic code with the query, ranking is restricted to
// those candidates. Candidates still need to reach the score threshold.
func WithPhonetic(enabled bool) Option {
	return func(r *Resolver) {
		r.phonetic = enabled
	}
}

// Resolver ranks candidate names against a query string. It is read-only
// after construction and safe for concurrent use.
type Resolver struct {
	threshold int
	scorer    Scorer
	phonetic  bool
}

// NewResolver returns a Resolver configured with the supplied options.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		threshold: DefaultThreshold,
		scorer:    LevenshteinScorer,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Threshold returns the configured minimum match score.
func (r *Resolver) Threshold() int {
	return r.threshold
}

// Score computes the pairwise similarity of a and b using the configured
// scorer.
func (r *Resolver) Score(a, b string) int {
	return r.scorer(a, b)
}

// Best returns the highest-scoring candidate at or above the threshold.
// On tied scores the earliest candidate wins. ok is false when no candidate
// reaches the threshold or the candidate list is empty.
func (r *Resolver) Best(query string, candidates []string) (best Match, ok bool) {
	for _, m := range r.rank(query, candidates) {
		if !ok || m.Score > best.Score {
			best = m
			ok = true
		}
	}
	return best, ok
}

// Top returns up to k matches at or above the threshold, ordered by score
// descending; candidates with equal scores keep their original relative
// order. k <= 0 returns nil.
func (r *Resolver) Top(query string, candidates []string, k int) []Match {
	if k <= 0 {
		return nil
	}
	matches := r.rank(query, candidates)
	slices.SortStableFunc(matches, func(a, b Match) int {
		return b.Score - a.Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// rank scores every eligible candidate and keeps those at or above the
// threshold, in candidate-list order.
func (r *Resolver) rank(query string, candidates []string) []Match {
	if len(candidates) == 0 {
		return nil
	}

	eligible := candidates
	indexOf := func(i int) int { return i }
	if r.phonetic {
		if filtered, idx := phoneticFilter(query, candidates); len(filtered) > 0 {
			eligible = filtered
			indexOf = func(i int) int { return idx[i] }
		}
	}

	var matches []Match
	for i, c := range eligible {
		if s := r.scorer(query, c); s >= r.threshold {
			matches = append(matches, Match{Value: c, Score: s, Index: indexOf(i)})
		}
	}
	return matches
}

// ─── Phonetic pre-filter ─────────────────────────────────────────────────────

// phoneticFilter returns the candidates whose Double Metaphone codes overlap
// with the query's, along with their original indices. An empty result means
// no candidate is phonetically plausible and the caller should rank the full
// list instead.
func phoneticFilter(query string, candidates []string) ([]string, []int) {
	queryCodes := codesForTokens(strings.Fields(query))
	if len(queryCodes) == 0 {
		return nil, nil
	}

	var (
		filtered []string
		indices  []int
	)
	for i, c := range candidates {
		if codesOverlap(queryCodes, codesForTokens(strings.Fields(c))) {
			filtered = append(filtered, c)
			indices = append(indices, i)
		}
	}
	return filtered, indices
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
