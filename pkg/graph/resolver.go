package graph

import (
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"
)

// Match kinds, in decreasing order of trust. Callers reduce intent
// confidence for fuzzy and pattern matches.
const (
	MatchExact   = "exact"
	MatchFuzzy   = "fuzzy"
	MatchPattern = "pattern"
)

// Match is a successful resolution of a business phrase to a table.
type Match struct {
	Canonical string
	Kind      string
	Score     float64
}

// Resolver maps business phrases and abbreviations to canonical table
// identifiers. It is read-only: alias learning happens only during
// knowledge-graph construction, never during resolution.
type Resolver struct {
	g         *Graph
	threshold float64
	logger    *zap.Logger
}

// NewResolver creates a resolver over a built graph. threshold is the
// minimum fuzzy similarity accepted, in [0,1].
func NewResolver(g *Graph, threshold float64, logger *zap.Logger) *Resolver {
	if threshold <= 0 {
		threshold = 0.72
	}
	return &Resolver{
		g:         g,
		threshold: threshold,
		logger:    logger.Named("resolver"),
	}
}

// qualifier suffixes stripped during pattern matching, e.g. "ops_excel"
// resolving to the ops table.
var strippableSuffixes = []string{
	"_excel", "_gpu", "_table", "_tbl", "_sheet", "_file", "_data", "_export",
}

var strippablePrefixes = []string{"tbl_", "t_", "the "}

// Resolve maps a term to a canonical table identifier. Tiers run in order,
// first hit wins: exact alias match, fuzzy similarity, pattern stemming.
// A miss is a soft outcome; callers treat it as confidence-reducing.
func (r *Resolver) Resolve(term string) (Match, bool) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Match{}, false
	}

	if canonical, ok := r.g.Aliases().Lookup(term); ok {
		if o, isOverride := r.g.Aliases().OverrideFor(term); isOverride {
			r.logger.Debug("alias override applied",
				zap.String("term", term),
				zap.String("table", o.Table),
				zap.String("reason", o.Reason))
		}
		return Match{Canonical: canonical, Kind: MatchExact, Score: 1.0}, true
	}

	if m, ok := r.fuzzyMatch(term); ok {
		return m, true
	}

	if m, ok := r.patternMatch(term); ok {
		return m, true
	}

	r.logger.Debug("table resolution failed", zap.String("term", term))
	return Match{}, false
}

// fuzzyMatch scores the term against every known alias and canonical name.
// Ties break by shortest canonical name, then by most recently learned alias.
func (r *Resolver) fuzzyMatch(term string) (Match, bool) {
	normalized := normalizeAlias(term)

	entries := r.g.Aliases().Entries()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Alias < entries[j].Alias })

	const epsilon = 1e-9
	best := Match{}
	bestSeq := -1
	found := false

	for _, e := range entries {
		score := similarity(normalized, e.Alias)
		if score < r.threshold {
			continue
		}
		switch {
		case !found, score > best.Score+epsilon:
		case score > best.Score-epsilon:
			// Tied score: shortest canonical wins, then latest learned.
			if len(e.Canonical) > len(best.Canonical) {
				continue
			}
			if len(e.Canonical) == len(best.Canonical) && e.Seq < bestSeq {
				continue
			}
		default:
			continue
		}
		best = Match{Canonical: e.Canonical, Kind: MatchFuzzy, Score: score}
		bestSeq = e.Seq
		found = true
	}

	return best, found
}

// patternMatch strips common qualifier suffixes/prefixes and retries exact
// matching on the stem, including its singular form.
func (r *Resolver) patternMatch(term string) (Match, bool) {
	stem := normalizeAlias(term)

	for _, prefix := range strippablePrefixes {
		stem = strings.TrimPrefix(stem, prefix)
	}
	for _, suffix := range strippableSuffixes {
		stem = strings.TrimSuffix(stem, suffix)
	}
	stem = strings.Trim(stem, "_ ")
	if stem == "" || stem == normalizeAlias(term) {
		return Match{}, false
	}

	spaced := strings.ReplaceAll(stem, "_", " ")
	candidates := []string{stem, inflection.Singular(stem), spaced, inflection.Singular(spaced)}
	for _, candidate := range candidates {
		if canonical, ok := r.g.Aliases().Lookup(candidate); ok {
			return Match{Canonical: canonical, Kind: MatchPattern, Score: 0.8}, true
		}
	}
	return Match{}, false
}

// similarity combines normalized edit distance with token overlap so both
// "rbp_product" vs "rbp_products" and "active ops excel" vs "ops_excel"
// score usefully.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	lev := levenshteinSimilarity(a, b)
	tok := tokenOverlap(a, b)
	if tok > lev {
		return tok
	}
	return lev
}

func levenshteinSimilarity(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func tokenOverlap(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	union := make(map[string]bool)
	inA := make(map[string]bool)
	for _, t := range ta {
		union[t] = true
		inA[t] = true
	}
	matched := 0
	for _, t := range tb {
		if !union[t] {
			union[t] = true
		} else if inA[t] {
			matched++
			inA[t] = false
		}
	}
	return float64(matched) / float64(len(union))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
