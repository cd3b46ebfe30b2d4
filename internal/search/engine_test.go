package search

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hyperjump/storefront/internal/catalog"
	"github.com/hyperjump/storefront/internal/metrics"
	"github.com/hyperjump/storefront/internal/models"
	"github.com/hyperjump/storefront/internal/ranking"
	"github.com/hyperjump/storefront/internal/session"
)

type testEnv struct {
	engine   *Engine
	catalog  *catalog.Store
	sessions *session.Store
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cat, err := catalog.NewStore(catalog.DefaultProducts())
	if err != nil {
		t.Fatal(err)
	}
	sessions := session.NewStore(rand.New(rand.NewSource(1)))
	m := metrics.New(prometheus.NewRegistry())
	engine := NewEngine(cat, sessions, nil, WithMetrics(m))
	t.Cleanup(engine.Close)
	return &testEnv{
		engine:   engine,
		catalog:  cat,
		sessions: sessions,
		metrics:  m,
	}
}

func productIDs(results []*models.RankedProduct) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Product.ID
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestNewEngine_Profiles(t *testing.T) {
	custom := ranking.DefaultProfile(ranking.ProfileRelated)
	custom.Weights.JitterMax = 0
	env := newTestEnv(t)
	engine := NewEngine(env.catalog, env.sessions, map[string]*ranking.Profile{ranking.ProfileRelated: custom})

	if got := engine.Profile(ranking.ProfileRelated).Weights.JitterMax; got != 0 {
		t.Errorf("expected custom related profile, got jitter %v", got)
	}
	for _, name := range []string{ranking.ProfileSearch, ranking.ProfileChat, ranking.ProfilePersonalized} {
		if engine.Profile(name) == nil {
			t.Errorf("missing built-in profile %s", name)
		}
	}
	if engine.Profile("unknown") != nil {
		t.Error("expected nil for unknown profile")
	}
}

func TestEngine_Search(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.engine.Search(ctx, &models.SearchQuery{Query: "electronics under $100"})
	if err != nil {
		t.Fatal(err)
	}
	ids := productIDs(resp.Results)
	if len(ids) == 0 || ids[0] != "1" {
		t.Fatalf("expected headphones first, got %v", ids)
	}
	if contains(ids, "2") {
		t.Errorf("t-shirt should not match, got %v", ids)
	}
	if resp.Total != len(resp.Results) {
		t.Errorf("Total = %d, want %d", resp.Total, len(resp.Results))
	}
	for i, r := range resp.Results {
		if r.Rank != i+1 {
			t.Errorf("result %d has rank %d", i, r.Rank)
		}
		if r.Score <= 0 || r.Reason == "" {
			t.Errorf("expected a scored, explained result, got %+v", r)
		}
	}
	if len(resp.Suggestions) != 0 {
		t.Errorf("expected no suggestions when results exist, got %v", resp.Suggestions)
	}
	if got := testutil.ToFloat64(env.metrics.RankRequests.WithLabelValues(ranking.ProfileSearch)); got != 1 {
		t.Errorf("search requests = %v, want 1", got)
	}
}

func TestEngine_Search_Limit(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.engine.Search(context.Background(), &models.SearchQuery{Query: "sports", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("expected 1 result, got %d", len(resp.Results))
	}
}

func TestEngine_Search_ZeroResults(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.engine.Search(context.Background(), &models.SearchQuery{Query: "headphnes"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 {
		t.Fatalf("expected no results, got %v", productIDs(resp.Results))
	}
	if !reflect.DeepEqual(resp.Suggestions, ranking.FallbackSuggestions("headphnes")) {
		t.Errorf("Suggestions = %v", resp.Suggestions)
	}
	if !reflect.DeepEqual(resp.DidYouMean, []string{"headphones"}) {
		t.Errorf("DidYouMean = %v, want [headphones]", resp.DidYouMean)
	}
	if got := testutil.ToFloat64(env.metrics.SearchZeroResults); got != 1 {
		t.Errorf("zero results = %v, want 1", got)
	}
}

func TestEngine_Search_DictionaryFollowsCatalog(t *testing.T) {
	env := newTestEnv(t)
	err := env.catalog.Replace([]*models.Product{
		{ID: "b1", Name: "Bamboo Cutting Board", Category: "Home & Garden", Price: 19.99, Rating: 4.1},
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := env.engine.Search(context.Background(), &models.SearchQuery{Query: "cuting"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(resp.DidYouMean, []string{"cutting"}) {
		t.Errorf("DidYouMean = %v, want [cutting]", resp.DidYouMean)
	}
}

func TestEngine_Search_DictionaryRebuiltAfterClose(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		resp, err := env.engine.Search(ctx, &models.SearchQuery{Query: "headphnes"})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(resp.DidYouMean, []string{"headphones"}) {
			t.Errorf("run %d: DidYouMean = %v, want [headphones]", i, resp.DidYouMean)
		}
		env.engine.Close()
	}
}

func TestEngine_Search_Offset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	full, err := env.engine.Search(ctx, &models.SearchQuery{Query: "sports electronics", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(full.Results) < 3 {
		t.Fatalf("expected at least 3 results, got %v", productIDs(full.Results))
	}

	page, err := env.engine.Search(ctx, &models.SearchQuery{Query: "sports electronics", Limit: 2, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := productIDs(page.Results), productIDs(full.Results[1:3]); !reflect.DeepEqual(got, want) {
		t.Errorf("page = %v, want %v", got, want)
	}
	if page.Results[0].Rank != 2 || page.Results[1].Rank != 3 {
		t.Errorf("expected ranks 2 and 3, got %d and %d", page.Results[0].Rank, page.Results[1].Rank)
	}
	if page.Total != full.Total {
		t.Errorf("Total = %d, want %d", page.Total, full.Total)
	}

	past, err := env.engine.Search(ctx, &models.SearchQuery{Query: "sports electronics", Offset: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(past.Results) != 0 || past.Total != full.Total || len(past.DidYouMean) != 0 {
		t.Errorf("expected an empty page past the end, got %+v", past)
	}

	if _, err := env.engine.Search(ctx, &models.SearchQuery{Query: "yoga", Offset: -1}); !errors.Is(err, models.ErrInvalidOffset) {
		t.Errorf("expected ErrInvalidOffset, got %v", err)
	}
}

func TestEngine_Search_Explain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.engine.Search(ctx, &models.SearchQuery{Query: "wireless headphones under $100", Explain: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	for _, r := range resp.Results {
		if len(r.Explanation) == 0 {
			t.Fatalf("expected an explanation for %s", r.Product.ID)
		}
		sum := 0.0
		for _, c := range r.Explanation {
			sum += c.Points
		}
		if math.Abs(sum-r.Score) > 1e-9 {
			t.Errorf("%s: contributions sum to %v, score is %v", r.Product.ID, sum, r.Score)
		}
	}
	if got := resp.Results[0].Explanation[0]; got.Signal != "keyword" || got.Phrase != `matches "wireless"` {
		t.Errorf("unexpected first contribution %+v", got)
	}

	plain, err := env.engine.Search(ctx, &models.SearchQuery{Query: "wireless headphones under $100"})
	if err != nil {
		t.Fatal(err)
	}
	if plain.Results[0].Explanation != nil {
		t.Error("expected no explanation unless asked for")
	}
}

func TestEngine_Search_Errors(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.engine.Search(context.Background(), &models.SearchQuery{Query: "  "}); !errors.Is(err, models.ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := env.engine.Search(ctx, &models.SearchQuery{Query: "yoga"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEngine_Chat_Support(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.engine.Chat(context.Background(), &models.ChatQuery{Message: "What's your return policy?"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.SupportTopic != "returns" || resp.Message == "" {
		t.Errorf("expected returns answer, got %+v", resp)
	}
	if len(resp.Products) != 0 {
		t.Errorf("support answers carry no products, got %d", len(resp.Products))
	}
}

func TestEngine_Chat_Products(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		message     string
		wantIDs     []string
		wantMessage string
	}{
		{"show me deals under $50", []string{"4"}, "I found 1 product that matches your search under $50 on sale."},
		{"electronics under $100", []string{"1"}, "I found 1 product that matches your search under $100 in electronics."},
		{"running shoes under $100", []string{}, "I couldn't find any products matching your criteria under $100. Try adjusting your search or browse our categories."},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			resp, err := env.engine.Chat(ctx, &models.ChatQuery{Message: tt.message})
			if err != nil {
				t.Fatal(err)
			}
			if got := productIDs(resp.Products); !reflect.DeepEqual(got, tt.wantIDs) {
				t.Errorf("products = %v, want %v", got, tt.wantIDs)
			}
			if resp.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMessage)
			}
			if resp.SupportTopic != "" {
				t.Errorf("unexpected support topic %q", resp.SupportTopic)
			}
		})
	}
}

func TestEngine_Chat_ExcludesCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess, err := env.sessions.Create(session.CohortBudgetConscious)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.sessions.AddToCart(sess.ID, "4", 1); err != nil {
		t.Fatal(err)
	}

	resp, err := env.engine.Chat(ctx, &models.ChatQuery{Message: "show me deals under $50", SessionID: sess.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Products) != 0 {
		t.Errorf("expected cart item to be excluded, got %v", productIDs(resp.Products))
	}

	_, err = env.engine.Chat(ctx, &models.ChatQuery{Message: "yoga", SessionID: "missing"})
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestEngine_Recommend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess, err := env.sessions.Create(session.CohortTechLover)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := env.engine.Recommend(ctx, sess.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	ids := productIDs(resp.Results)
	if len(ids) != 2 || !contains(ids, "1") || !contains(ids, "3") {
		t.Errorf("expected the electronics first for a tech lover, got %v", ids)
	}
	if resp.Cohort != session.CohortTechLover || resp.Profile != ranking.ProfilePersonalized || resp.SessionID != sess.ID {
		t.Errorf("unexpected response metadata %+v", resp)
	}

	if _, err := env.sessions.AddToCart(sess.ID, "1", 1); err != nil {
		t.Fatal(err)
	}
	resp, err = env.engine.Recommend(ctx, sess.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	ids = productIDs(resp.Results)
	if contains(ids, "1") {
		t.Errorf("cart item recommended: %v", ids)
	}
	if len(ids) != DefaultRecommendationLimit {
		t.Errorf("expected %d results with backfill, got %v", DefaultRecommendationLimit, ids)
	}

	first, _ := env.engine.Recommend(ctx, sess.ID, 5)
	second, _ := env.engine.Recommend(ctx, sess.ID, 5)
	if !reflect.DeepEqual(productIDs(first.Results), productIDs(second.Results)) {
		t.Error("recommendations should be repeatable for the same state")
	}

	if _, err := env.engine.Recommend(ctx, "missing", 4); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestEngine_Related(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.engine.Related(ctx, "1", "", 3)
	if err != nil {
		t.Fatal(err)
	}
	ids := productIDs(resp.Results)
	if len(ids) != 3 {
		t.Fatalf("expected 3 results, got %v", ids)
	}
	if ids[0] != "3" {
		t.Errorf("expected the other electronics product first, got %v", ids)
	}
	if contains(ids, "1") {
		t.Errorf("current product returned: %v", ids)
	}
	if resp.ProductID != "1" || resp.Profile != ranking.ProfileRelated {
		t.Errorf("unexpected response metadata %+v", resp)
	}

	sess, _ := env.sessions.Create(session.CohortPremiumBuyer)
	if _, err := env.sessions.AddToCart(sess.ID, "3", 1); err != nil {
		t.Fatal(err)
	}
	resp, err = env.engine.Related(ctx, "1", sess.ID, 3)
	if err != nil {
		t.Fatal(err)
	}
	if ids := productIDs(resp.Results); contains(ids, "3") || contains(ids, "1") {
		t.Errorf("cart or current product returned: %v", ids)
	}
}

func TestEngine_Related_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Related(ctx, "nope", "", 3); !errors.Is(err, catalog.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := env.engine.Related(ctx, "1", "missing", 3); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestNormalizeLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultRecommendationLimit},
		{-3, DefaultRecommendationLimit},
		{7, 7},
		{1000, MaxRecommendationLimit},
	}
	for _, tt := range tests {
		if got := normalizeLimit(tt.in); got != tt.want {
			t.Errorf("normalizeLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
