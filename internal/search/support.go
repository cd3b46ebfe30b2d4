package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/storefront/internal/ranking"
)

// SupportTopic is a canned assistant answer and the phrases that trigger it.
type SupportTopic struct {
	Name    string
	Answer  string
	pattern *regexp.Regexp
}

func phrasePattern(phrases ...string) *regexp.Regexp {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// supportTopics are checked in order; the first match answers the message.
var supportTopics = []SupportTopic{
	{
		Name:    "shipping",
		Answer:  "We offer free standard shipping on orders over $50. Standard delivery takes 3-5 business days, and express shipping (2-3 days) costs $9.99. You'll get tracking information as soon as your order ships.",
		pattern: phrasePattern("shipping", "ship", "ships", "shipped", "delivery", "deliver", "arrive", "when will", "how long"),
	},
	{
		Name:    "returns",
		Answer:  "We have a 30-day return policy. Any item in original condition can be returned for a full refund from Account > Orders > Return Item, or through our support team. Return shipping is free for defective items.",
		pattern: phrasePattern("return", "returns", "refund", "refunds", "exchange", "money back", "not satisfied"),
	},
	{
		Name:    "sizing",
		Answer:  "Every product page has a detailed sizing chart. If you're unsure, order your usual size; exchanges are free within 30 days if the fit isn't right.",
		pattern: phrasePattern("size", "sizes", "sizing", "fit", "fits", "too small", "too big"),
	},
	{
		Name:    "payment",
		Answer:  "We accept all major credit cards, PayPal, Apple Pay, and Google Pay. Payment details are encrypted, and you're only charged when your order ships.",
		pattern: phrasePattern("payment", "payments", "pay", "credit card", "paypal", "billing"),
	},
	{
		Name:    "warranty",
		Answer:  "All products come with manufacturer warranties; electronics typically carry 1-2 years. If something arrives damaged or stops working, contact us for a replacement or refund.",
		pattern: phrasePattern("warranty", "broken", "defective", "not working", "guarantee"),
	},
	{
		Name:    "account",
		Answer:  "Having trouble with your account? Use the 'Forgot Password' link on the login page to reset your password. For anything else, ask me here.",
		pattern: phrasePattern("account", "login", "password", "profile", "forgot"),
	},
}

var (
	trackPattern = phrasePattern("track", "tracking")
	orderPattern = phrasePattern("order", "orders")

	orderTracking = SupportTopic{
		Name:   "order_tracking",
		Answer: "To track your order, send me your order number or email address. Your account dashboard also shows live tracking updates.",
	}
)

// MatchSupportTopic returns the support topic a message asks about. Phrases match
// whole words only, so "fitness" does not trigger the sizing answer.
func MatchSupportTopic(message string) (SupportTopic, bool) {
	lower := strings.ToLower(message)
	for _, topic := range supportTopics {
		if topic.pattern.MatchString(lower) {
			return topic, true
		}
	}
	if trackPattern.MatchString(lower) && orderPattern.MatchString(lower) {
		return orderTracking, true
	}
	return SupportTopic{}, false
}

// chatSummary describes a product lookup and the constraints it applied.
func chatSummary(found int, q *ranking.AnalyzedQuery) string {
	var b strings.Builder
	switch found {
	case 0:
		b.WriteString("I couldn't find any products matching your criteria")
	case 1:
		b.WriteString("I found 1 product that matches your search")
	default:
		fmt.Fprintf(&b, "I found %d products that match your search", found)
	}

	if bound, ok := q.PriceBound(); ok {
		fmt.Fprintf(&b, " under $%s", strconv.FormatFloat(bound, 'f', -1, 64))
	}
	if cat, ok := q.First(ranking.IntentCategory); ok {
		fmt.Fprintf(&b, " in %s", cat.Term)
	}
	if q.Has(ranking.IntentSale) {
		b.WriteString(" on sale")
	}
	b.WriteString(".")

	if found == 0 {
		b.WriteString(" Try adjusting your search or browse our categories.")
	}
	return b.String()
}
