// Package normalizer resolves raw cell text from imported files against
// catalog entries. Resolution runs a fixed ladder: manual overrides, exact
// canonical match, substring containment, then edit-distance similarity.
// Identifier fields only ever receive catalog IDs; raw text that cannot be
// resolved stays unresolved and surfaces as an incompatibility.
package normalizer

import (
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/construlink/obra-tracker/internal/domain/catalog"
	"github.com/construlink/obra-tracker/internal/domain/import/record"
	"github.com/construlink/obra-tracker/pkg/normtext"
)

// Placeholder values that mean "no value" regardless of field. Comparison
// happens on canonicalized text.
var nullPlaceholders = map[string]bool{
	"":                  true,
	"sin asignar":       true,
	"empty-placeholder": true,
}

// Strategy identifies which rung of the resolution ladder produced a match.
type Strategy string

const (
	StrategyOverride   Strategy = "override"
	StrategyExact      Strategy = "exact"
	StrategySubstring  Strategy = "substring"
	StrategySimilarity Strategy = "similarity"
)

// Outcome classifies a resolution attempt.
type Outcome string

const (
	// OutcomeEmpty means the raw text was a null placeholder; the field is
	// simply unpopulated.
	OutcomeEmpty Outcome = "empty"
	// OutcomeUnset means a manual override says leave this field blank.
	OutcomeUnset Outcome = "unset"
	// OutcomeMatched means a catalog entry was found.
	OutcomeMatched Outcome = "matched"
	// OutcomeUnresolved means nothing matched; the raw text must go through
	// incompatibility resolution before the batch can be submitted.
	OutcomeUnresolved Outcome = "unresolved"
)

// Result is the outcome of resolving one raw value for one field.
type Result struct {
	Outcome  Outcome
	ID       uuid.UUID
	Key      string // catalog key that matched
	Score    float64
	Strategy Strategy
}

// Config tunes the similarity rung.
type Config struct {
	// SimilarityCutoff is the minimum score, exclusive. A candidate scoring
	// exactly the cutoff is rejected.
	SimilarityCutoff float64
	// MinSimilarKeyChars excludes short catalog keys from similarity
	// scoring: keys of this length or less match only exactly or by
	// substring.
	MinSimilarKeyChars int
}

// DefaultConfig mirrors the values the import endpoints use when the
// environment does not override them.
func DefaultConfig() Config {
	return Config{SimilarityCutoff: 0.6, MinSimilarKeyChars: 3}
}

// Normalizer resolves raw values against one catalog snapshot. It is not
// safe for concurrent mutation; sessions rebuild it after catalog changes.
type Normalizer struct {
	cfg       Config
	catalog   *catalog.Catalog
	overrides *Overrides

	// substring matchers per field, built over the catalog keys
	matchers map[record.Field]*fieldMatcher
}

type fieldMatcher struct {
	keys []string
	trie *ahocorasick.Matcher
}

// New builds a normalizer over a catalog snapshot and override set.
func New(cfg Config, c *catalog.Catalog, overrides *Overrides) *Normalizer {
	n := &Normalizer{cfg: cfg, catalog: c, overrides: overrides}
	n.Rebuild(c)
	return n
}

// Rebuild swaps in a new catalog snapshot and reconstructs the substring
// tries. Called after a category or subcategory is created mid-session.
func (n *Normalizer) Rebuild(c *catalog.Catalog) {
	n.catalog = c
	n.matchers = make(map[record.Field]*fieldMatcher, len(record.IdentifierFields()))
	for _, f := range record.IdentifierFields() {
		keys := c.Keys(f)
		n.matchers[f] = &fieldMatcher{
			keys: keys,
			trie: ahocorasick.NewStringMatcher(keys),
		}
	}
}

// IsNull reports whether the raw text is a null placeholder.
func IsNull(raw string) bool {
	return nullPlaceholders[normtext.Canonicalize(raw)]
}

// Resolve runs the resolution ladder for one identifier field value.
func (n *Normalizer) Resolve(f record.Field, raw string) Result {
	canon := normtext.Canonicalize(raw)
	if nullPlaceholders[canon] {
		return Result{Outcome: OutcomeEmpty}
	}

	// Manual overrides win over every automatic rung, including exact
	// catalog matches.
	if n.overrides != nil {
		if res, ok := n.overrides.Get(f, canon); ok {
			if res.Unset {
				return Result{Outcome: OutcomeUnset, Strategy: StrategyOverride}
			}
			return Result{Outcome: OutcomeMatched, ID: res.ID, Strategy: StrategyOverride}
		}
	}

	if id, ok := n.catalog.Lookup(f, canon); ok {
		return Result{Outcome: OutcomeMatched, ID: id, Key: canon, Score: 1, Strategy: StrategyExact}
	}

	if r, ok := n.resolveSubstring(f, canon); ok {
		return r
	}
	if r, ok := n.resolveSimilar(f, canon); ok {
		return r
	}
	return Result{Outcome: OutcomeUnresolved}
}

// resolveSubstring checks containment in both directions: catalog keys
// occurring inside the raw text (via the Aho-Corasick trie) and raw text
// occurring inside a catalog key. Among candidates the longest key wins,
// ties broken lexicographically, so the outcome never depends on map order.
func (n *Normalizer) resolveSubstring(f record.Field, canon string) (Result, bool) {
	m := n.matchers[f]
	if m == nil || len(m.keys) == 0 {
		return Result{}, false
	}

	seen := make(map[string]bool)
	var candidates []string
	for _, idx := range m.trie.Match([]byte(canon)) {
		key := m.keys[idx]
		if !seen[key] {
			seen[key] = true
			candidates = append(candidates, key)
		}
	}
	for _, key := range m.keys {
		if !seen[key] && len(canon) < len(key) && strings.Contains(key, canon) {
			seen[key] = true
			candidates = append(candidates, key)
		}
	}
	if len(candidates) == 0 {
		return Result{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) > len(candidates[j])
		}
		return candidates[i] < candidates[j]
	})
	best := candidates[0]
	id, _ := n.catalog.Lookup(f, best)
	return Result{Outcome: OutcomeMatched, ID: id, Key: best, Score: 1, Strategy: StrategySubstring}, true
}

// resolveSimilar scores every eligible key by normalized edit distance,
// score = 1 - distance/len(longer), and accepts only scores strictly above
// the cutoff. Short keys are skipped entirely so "iva" never absorbs
// arbitrary three-letter typos.
func (n *Normalizer) resolveSimilar(f record.Field, canon string) (Result, bool) {
	m := n.matchers[f]
	if m == nil {
		return Result{}, false
	}

	bestKey := ""
	bestScore := 0.0
	for _, key := range m.keys {
		if len([]rune(key)) <= n.cfg.MinSimilarKeyChars {
			continue
		}
		score := similarity(canon, key)
		if score <= n.cfg.SimilarityCutoff {
			continue
		}
		if score > bestScore ||
			(score == bestScore && bestKey != "" && betterKey(key, bestKey)) {
			bestScore = score
			bestKey = key
		}
	}
	if bestKey == "" {
		return Result{}, false
	}
	id, _ := n.catalog.Lookup(f, bestKey)
	return Result{Outcome: OutcomeMatched, ID: id, Key: bestKey, Score: bestScore, Strategy: StrategySimilarity}, true
}

// betterKey breaks exact score ties: shorter key first, then lexicographic.
func betterKey(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// similarity converts Levenshtein distance to a 0..1 score relative to the
// longer string. Identical strings score 1, disjoint strings approach 0.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	if longer == 0 {
		return 0
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(dist)/float64(longer)
}
