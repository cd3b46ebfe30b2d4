package ranking

import (
	"sort"

	"github.com/hyperjump/storefront/internal/models"
)

// Ranker combines the analyzer, feature extractor, scorer, and reason composer for
// one call-site profile. A Ranker holds no per-call state and is safe to share.
type Ranker struct {
	profile  *Profile
	analyzer *QueryAnalyzer
	scorer   *Scorer
	jitter   JitterFunc
}

// NewRanker creates a Ranker for a copy of the given profile; nil means the search
// profile.
func NewRanker(profile *Profile) *Ranker {
	if profile == nil {
		profile = DefaultProfile(ProfileSearch)
	}
	cp := *profile
	profile = &cp
	profile.ApplyDefaults()

	return &Ranker{
		profile:  profile,
		analyzer: NewQueryAnalyzer(),
		scorer:   NewScorer(profile),
		jitter:   IDJitter,
	}
}

// WithJitter sets the jitter source. It must be deterministic for repeatable output.
func (r *Ranker) WithJitter(jitter JitterFunc) *Ranker {
	r.jitter = jitter
	return r
}

// Profile returns the ranking profile.
func (r *Ranker) Profile() *Profile {
	return r.profile
}

// AnalyzeQuery parses and analyzes a query string.
func (r *Ranker) AnalyzeQuery(query string) *AnalyzedQuery {
	return r.analyzer.Analyze(query)
}

// ScoreProduct returns the full scoring record of one product, ignoring exclusions.
func (r *Ranker) ScoreProduct(p *models.Product, q Query) *ScoreBreakdown {
	analyzed := r.analyzer.Analyze(q.Text)
	return r.score(p, analyzed, q.Context)
}

func (r *Ranker) score(p *models.Product, analyzed *AnalyzedQuery, rc *RecommendationContext) *ScoreBreakdown {
	sig := ExtractSignals(p, analyzed, rc, r.jitter)
	score, contribs := r.scorer.Score(&sig, rc)
	return &ScoreBreakdown{Signals: sig, Contributions: contribs, Score: score}
}

type candidate struct {
	product   *models.Product
	breakdown *ScoreBreakdown
}

// Rank scores products against the query and returns at most opts.MaxItems results,
// best first. Excluded products (opts.Exclude, the context's cart and current product)
// are never scored or returned. Equal scores keep catalog order. When the profile
// backfills and fewer than MaxItems products score above zero, the best rated
// remaining candidates are appended.
func (r *Ranker) Rank(products []*models.Product, q Query, opts Options) []ScoredResult {
	results := make([]ScoredResult, 0)
	if opts.MaxItems <= 0 || len(products) == 0 {
		return results
	}

	analyzed := r.analyzer.Analyze(q.Text)
	excluded := exclusionSet(opts.Exclude, q.Context)

	candidates := make([]candidate, 0, len(products))
	seen := make(map[string]bool, len(products))
	for _, p := range products {
		if p == nil || excluded[p.ID] || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		if r.profile.StrictConstraints && ViolatesConstraints(p, analyzed) {
			continue
		}
		candidates = append(candidates, candidate{product: p, breakdown: r.score(p, analyzed, q.Context)})
	}

	positive := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.breakdown.Score > 0 {
			positive = append(positive, c)
		}
	}
	sort.SliceStable(positive, func(i, j int) bool {
		return positive[i].breakdown.Score > positive[j].breakdown.Score
	})

	selected := make(map[string]bool, opts.MaxItems)
	for _, c := range TopN(positive, opts.MaxItems) {
		tags, reason := ComposeReason(c.breakdown.Contributions, r.profile.MaxReasons, r.profile.DefaultReason)
		results = append(results, ScoredResult{
			Product: c.product,
			Score:   c.breakdown.Score,
			Tags:    tags,
			Reason:  reason,
		})
		selected[c.product.ID] = true
	}

	if r.profile.Backfill && len(results) < opts.MaxItems {
		results = append(results, r.backfill(candidates, selected, opts.MaxItems-len(results))...)
	}

	return results
}

// backfill returns up to n unselected candidates ordered by rating, best first.
func (r *Ranker) backfill(candidates []candidate, selected map[string]bool, n int) []ScoredResult {
	remaining := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if !selected[c.product.ID] {
			remaining = append(remaining, c)
		}
	}
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].product.Rating > remaining[j].product.Rating
	})

	out := make([]ScoredResult, 0, n)
	for _, c := range TopN(remaining, n) {
		out = append(out, ScoredResult{
			Product:    c.product,
			Score:      c.breakdown.Score,
			Reason:     r.profile.DefaultReason,
			Backfilled: true,
		})
	}
	return out
}

// exclusionSet merges explicit exclusions with the context's cart and current product.
func exclusionSet(exclude []string, rc *RecommendationContext) map[string]bool {
	set := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		set[id] = true
	}
	if rc == nil {
		return set
	}
	for _, p := range rc.Cart {
		if p != nil {
			set[p.ID] = true
		}
	}
	if rc.Current != nil {
		set[rc.Current.ID] = true
	}
	return set
}

// TopN returns the first n elements.
func TopN[T any](items []T, n int) []T {
	if n >= len(items) {
		return items
	}
	if n <= 0 {
		return nil
	}
	return items[:n]
}

// CountBackfilled returns how many results came from the rating fallback.
func CountBackfilled(results []ScoredResult) int {
	n := 0
	for _, r := range results {
		if r.Backfilled {
			n++
		}
	}
	return n
}

// Paginate returns a page of results.
func Paginate(results []ScoredResult, offset, limit int) []ScoredResult {
	if offset >= len(results) || offset < 0 {
		return nil
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
