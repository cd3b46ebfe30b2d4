// Package search runs the storefront's ranking call sites (search, chat, personalized
// recommendations, related products) over the current catalog snapshot.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/storefront/internal/catalog"
	"github.com/hyperjump/storefront/internal/keyword"
	"github.com/hyperjump/storefront/internal/metrics"
	"github.com/hyperjump/storefront/internal/models"
	"github.com/hyperjump/storefront/internal/ranking"
	"github.com/hyperjump/storefront/internal/session"
)

const (
	// DefaultRecommendationLimit is used when a recommendation call passes no limit.
	DefaultRecommendationLimit = 4
	// MaxRecommendationLimit caps recommendation calls.
	MaxRecommendationLimit = 50
	// MaxChatProducts is how many products one chat answer shows.
	MaxChatProducts = 6
)

// Engine serves ranking requests. It is safe for concurrent use.
type Engine struct {
	catalog  *catalog.Store
	sessions *session.Store
	rankers  map[string]*ranking.Ranker
	metrics  *metrics.Metrics
	logger   *zap.Logger

	spellMu       sync.Mutex
	spellSnapshot *catalog.Snapshot
	spellDict     *keyword.BleveDictionary
	spell         *keyword.SpellChecker
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine. Profiles missing from profiles use the built-in ones.
func NewEngine(cat *catalog.Store, sessions *session.Store, profiles map[string]*ranking.Profile, opts ...Option) *Engine {
	e := &Engine{
		catalog:  cat,
		sessions: sessions,
		rankers:  make(map[string]*ranking.Ranker),
		logger:   zap.NewNop(),
	}
	for name, def := range ranking.DefaultProfiles() {
		p, ok := profiles[name]
		if !ok || p == nil {
			p = def
		}
		e.rankers[name] = ranking.NewRanker(p)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Profile returns the profile used for a call site.
func (e *Engine) Profile(name string) *ranking.Profile {
	if r, ok := e.rankers[name]; ok {
		return r.Profile()
	}
	return nil
}

// rank runs one ranking call and records it.
func (e *Engine) rank(profile string, products []*models.Product, q ranking.Query, opts ranking.Options) []ranking.ScoredResult {
	start := time.Now()
	results := e.rankers[profile].Rank(products, q, opts)
	elapsed := time.Since(start)

	backfilled := ranking.CountBackfilled(results)
	e.metrics.ObserveRank(profile, elapsed, backfilled)
	e.logger.Debug("ranked products",
		zap.String("profile", profile),
		zap.String("query", q.Text),
		zap.Int("candidates", len(products)),
		zap.Int("results", len(results)),
		zap.Int("backfilled", backfilled),
		zap.Duration("elapsed", elapsed))
	return results
}

// Search ranks the catalog against a free-text query. When nothing matches, the
// response carries fallback suggestions and spelling corrections instead.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := e.catalog.Snapshot()
	q := ranking.TextQuery(query.Query)
	results := e.rank(ranking.ProfileSearch, snap.Products(), q, ranking.Options{MaxItems: snap.Len()})

	page := toRankedProducts(ranking.Paginate(results, query.Offset, query.Limit))
	for _, r := range page {
		r.Rank += query.Offset
	}
	if query.Explain {
		e.explain(ranking.ProfileSearch, page, q)
	}
	response := &models.SearchResponse{
		Results: page,
		Total:   len(results),
		Query:   query.Query,
	}
	if len(results) == 0 {
		e.metrics.ZeroResults()
		response.Suggestions = ranking.FallbackSuggestions(query.Query)
		if sc := e.spellChecker(snap); sc != nil {
			if corrected := sc.DidYouMean(query.Query); corrected != "" {
				response.DidYouMean = []string{corrected}
			}
		}
		e.logger.Info("search returned no results",
			zap.String("query", query.Query),
			zap.Strings("did_you_mean", response.DidYouMean))
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

// explain attaches the per-signal contributions behind each result's score.
func (e *Engine) explain(profile string, results []*models.RankedProduct, q ranking.Query) {
	ranker := e.rankers[profile]
	for _, r := range results {
		breakdown := ranker.ScoreProduct(r.Product, q)
		r.Explanation = make([]models.ScoreContribution, len(breakdown.Contributions))
		for i, c := range breakdown.Contributions {
			r.Explanation[i] = models.ScoreContribution{Signal: c.Signal, Points: c.Points, Phrase: c.Phrase}
		}
	}
}

// spellChecker returns a spell checker over the term dictionary of snap, rebuilding
// it when the catalog has been replaced. It returns nil when the dictionary cannot
// be built.
func (e *Engine) spellChecker(snap *catalog.Snapshot) *keyword.SpellChecker {
	e.spellMu.Lock()
	defer e.spellMu.Unlock()
	if e.spell != nil && e.spellSnapshot == snap {
		return e.spell
	}

	dict, err := keyword.NewBleveDictionary(snap.Products())
	if err != nil {
		e.logger.Warn("failed to build term dictionary", zap.Error(err))
		return nil
	}
	docs, _ := dict.DocCount()
	e.logger.Debug("term dictionary built", zap.Int("terms", dict.Len()), zap.Uint64("products", docs))
	e.closeSpellLocked()
	e.spellDict = dict
	e.spell = keyword.NewSpellChecker(dict)
	e.spellSnapshot = snap
	return e.spell
}

func (e *Engine) closeSpellLocked() {
	if e.spellDict != nil {
		if err := e.spellDict.Close(); err != nil {
			e.logger.Warn("failed to close term dictionary", zap.Error(err))
		}
	}
	e.spellDict, e.spell, e.spellSnapshot = nil, nil, nil
}

// Close releases the cached term dictionary.
func (e *Engine) Close() {
	e.spellMu.Lock()
	defer e.spellMu.Unlock()
	e.closeSpellLocked()
}

// Chat answers a shopping-assistant message: support questions get a canned answer,
// anything else is a product lookup that honors stated price, category, and sale
// constraints.
func (e *Engine) Chat(ctx context.Context, query *models.ChatQuery) (*models.ChatResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if topic, ok := MatchSupportTopic(query.Message); ok {
		e.logger.Debug("chat support answer", zap.String("topic", topic.Name))
		return &models.ChatResponse{Message: topic.Answer, SupportTopic: topic.Name}, nil
	}

	var exclude []string
	if query.SessionID != "" {
		sess, err := e.sessions.Get(query.SessionID)
		if err != nil {
			return nil, err
		}
		exclude = sess.CartProductIDs()
	}

	ranker := e.rankers[ranking.ProfileChat]
	results := e.rank(ranking.ProfileChat, e.catalog.Products(), ranking.TextQuery(query.Message),
		ranking.Options{MaxItems: MaxChatProducts, Exclude: exclude})

	return &models.ChatResponse{
		Message:  chatSummary(len(results), ranker.AnalyzeQuery(query.Message)),
		Products: toRankedProducts(results),
	}, nil
}

// Recommend returns personalized recommendations for a session, driven by its cohort
// preferences and history. Cart items are never recommended.
func (e *Engine) Recommend(ctx context.Context, sessionID string, limit int) (*models.RecommendationResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := e.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	cohort, err := session.LookupCohort(sess.Cohort)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sess.ID, err)
	}

	snap := e.catalog.Snapshot()
	rc := &ranking.RecommendationContext{
		ViewHistory:         snap.GetMany(sess.ViewHistory),
		PurchaseHistory:     snap.GetMany(sess.PurchaseHistory),
		Cart:                snap.GetMany(sess.CartProductIDs()),
		PreferredCategories: cohort.PreferredCategories,
		Budget:              cohort.MaxPrice,
		SalePreference:      cohort.SalePreference,
		RatingThreshold:     cohort.RatingThreshold,
	}
	results := e.rank(ranking.ProfilePersonalized, snap.Products(), ranking.ContextQuery(rc),
		ranking.Options{MaxItems: normalizeLimit(limit)})

	return &models.RecommendationResponse{
		Results:   toRankedProducts(results),
		Profile:   ranking.ProfilePersonalized,
		SessionID: sess.ID,
		Cohort:    sess.Cohort,
	}, nil
}

// Related returns products related to productID. sessionID is optional; when set, the
// session's cart is excluded and its view history informs the ranking.
func (e *Engine) Related(ctx context.Context, productID, sessionID string, limit int) (*models.RecommendationResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := e.catalog.Snapshot()
	current, err := snap.Get(productID)
	if err != nil {
		return nil, err
	}

	rc := &ranking.RecommendationContext{Current: current}
	if sessionID != "" {
		sess, err := e.sessions.Get(sessionID)
		if err != nil {
			return nil, err
		}
		rc.ViewHistory = snap.GetMany(sess.ViewHistory)
		rc.Cart = snap.GetMany(sess.CartProductIDs())
	}
	results := e.rank(ranking.ProfileRelated, snap.Products(), ranking.ContextQuery(rc),
		ranking.Options{MaxItems: normalizeLimit(limit)})

	return &models.RecommendationResponse{
		Results:   toRankedProducts(results),
		Profile:   ranking.ProfileRelated,
		SessionID: sessionID,
		ProductID: productID,
	}, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecommendationLimit
	}
	if limit > MaxRecommendationLimit {
		return MaxRecommendationLimit
	}
	return limit
}

func toRankedProducts(results []ranking.ScoredResult) []*models.RankedProduct {
	out := make([]*models.RankedProduct, len(results))
	for i, r := range results {
		out[i] = &models.RankedProduct{
			Product:    r.Product,
			Score:      r.Score,
			Reason:     r.Reason,
			Reasons:    r.Tags,
			Backfilled: r.Backfilled,
			Rank:       i + 1,
		}
	}
	return out
}
