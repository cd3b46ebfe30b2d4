// Package cli provides output formatting for the storefront command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/storefront/internal/models"
	"github.com/hyperjump/storefront/internal/pricing"
	"github.com/hyperjump/storefront/internal/search"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// descriptionLen bounds product descriptions in text output.
const descriptionLen = 120

const separator = "─────────────────────────────────────────────────────────"

// ParseFormat maps a --json flag to an output format.
func ParseFormat(jsonOutput bool) OutputFormat {
	if jsonOutput {
		return OutputJSON
	}
	return OutputText
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results for %q in %dms\n\n", response.Total, response.Query, response.QueryTime)
	for _, result := range response.Results {
		writeRankedProduct(w, result)
	}
	if len(response.DidYouMean) > 0 {
		fmt.Fprintf(w, "Did you mean: %s?\n", strings.Join(response.DidYouMean, ", "))
	}
	if len(response.Suggestions) > 0 {
		fmt.Fprintln(w, "Suggestions:")
		for _, s := range response.Suggestions {
			fmt.Fprintf(w, "  • %s\n", s)
		}
	}
	return nil
}

// WriteRecommendations writes personalized or related-product results to w.
func WriteRecommendations(w io.Writer, response *models.RecommendationResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	switch {
	case response.ProductID != "":
		fmt.Fprintf(w, "\n%d products related to %s\n\n", len(response.Results), response.ProductID)
	case response.Cohort != "":
		fmt.Fprintf(w, "\n%d recommendations for a %s shopper\n\n", len(response.Results), response.Cohort)
	default:
		fmt.Fprintf(w, "\n%d recommendations\n\n", len(response.Results))
	}
	for _, result := range response.Results {
		writeRankedProduct(w, result)
	}
	return nil
}

// WriteProducts writes a catalog listing to w.
func WriteProducts(w io.Writer, products []*models.Product, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, products)
	}
	fmt.Fprintf(w, "%-10s %-36s %-16s %9s %6s\n", "ID", "NAME", "CATEGORY", "PRICE", "RATING")
	for _, p := range products {
		sale := ""
		if p.IsOnSale {
			sale = " (sale)"
		}
		fmt.Fprintf(w, "%-10s %-36s %-16s %9.2f %6.1f%s\n",
			p.ID, search.Snippet(p.Name, 36), search.Snippet(p.Category, 16), p.Price, p.Rating, sale)
	}
	return nil
}

// WritePricing writes a price suggestion for p to w.
func WritePricing(w io.Writer, p *models.Product, s *pricing.Suggestion, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "%s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(w, "Current:   $%.2f\n", s.CurrentPrice)
	fmt.Fprintf(w, "Suggested: $%.2f (confidence %.0f%%)\n", s.SuggestedPrice, s.Confidence*100)
	fmt.Fprintf(w, "Minimum:   $%.2f\n", s.MinimumPrice)
	fmt.Fprintf(w, "Demand: %s | Trend: %s\n", s.Demand, s.Trend)
	for _, r := range s.Reasons {
		fmt.Fprintf(w, "  • %s\n", r)
	}
	return nil
}

func writeRankedProduct(w io.Writer, result *models.RankedProduct) {
	p := result.Product
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Rank: %d | Score: %.2f", result.Rank, result.Score)
	if result.Backfilled {
		fmt.Fprint(w, " | backfilled")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "ID: %s\n", p.ID)
	fmt.Fprintf(w, "Name: %s (%s)\n", p.Name, p.Category)
	fmt.Fprintf(w, "Price: $%.2f", p.Price)
	if p.HasDiscount() {
		fmt.Fprintf(w, " (was $%.2f)", p.OriginalPrice)
	}
	fmt.Fprintf(w, " | Rating: %.1f (%d reviews)\n", p.Rating, p.ReviewCount)
	if result.Reason != "" {
		fmt.Fprintf(w, "Why: %s\n", result.Reason)
	}
	for _, c := range result.Explanation {
		if c.Phrase != "" {
			fmt.Fprintf(w, "  %+7.2f %s (%s)\n", c.Points, c.Signal, c.Phrase)
		} else {
			fmt.Fprintf(w, "  %+7.2f %s\n", c.Points, c.Signal)
		}
	}
	if p.Description != "" {
		fmt.Fprintf(w, "\n%s\n", search.Snippet(p.Description, descriptionLen))
	}
	fmt.Fprintln(w)
}
