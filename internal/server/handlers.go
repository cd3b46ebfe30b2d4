package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hyperjump/storefront/internal/catalog"
	"github.com/hyperjump/storefront/internal/models"
	"github.com/hyperjump/storefront/internal/pricing"
	"github.com/hyperjump/storefront/internal/session"
)

var validate = validator.New()

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("bad request")

type createSessionRequest struct {
	Cohort string `json:"cohort"`
}

type cartRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	// Quantity zero means one. The upper bound is session.MaxQuantity.
	Quantity int `json:"quantity" validate:"gte=0,lte=99"`
}

type viewRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

type purchaseRequest struct {
	// ProductIDs empty means the whole cart.
	ProductIDs []string `json:"product_ids" validate:"dive,required"`
}

type productListResponse struct {
	Products   []*models.Product `json:"products"`
	Total      int               `json:"total"`
	Categories []string          `json:"categories"`
}

type sessionResponse struct {
	Session *session.Session `json:"session"`
	Cohort  session.Cohort   `json:"cohort"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := decodeJSON(r, &query, false); err != nil {
		s.respondErr(w, err)
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var query models.ChatQuery
	if err := decodeJSON(r, &query, false); err != nil {
		s.respondErr(w, err)
		return
	}
	s.logger.Debug("chat request", zap.String("message", query.Message), zap.String("session", query.SessionID))
	response, err := s.engine.Chat(r.Context(), &query)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		s.respondErr(w, err)
		return
	}

	minPrice, err := priceParam(r, "min_price")
	if err != nil {
		s.respondErr(w, err)
		return
	}
	maxPrice, err := priceParam(r, "max_price")
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if maxPrice > 0 && minPrice > maxPrice {
		s.respondErr(w, fmt.Errorf("%w: min_price exceeds max_price", errBadRequest))
		return
	}

	snap := s.catalog.Snapshot()
	products := snap.Filter(catalog.Filter{
		Category: r.URL.Query().Get("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	})
	total := len(products)

	if offset > len(products) {
		offset = len(products)
	}
	products = products[offset:]
	if limit > 0 && limit < len(products) {
		products = products[:limit]
	}
	s.respondJSON(w, http.StatusOK, productListResponse{
		Products:   products,
		Total:      total,
		Categories: snap.Categories(),
	})
}

// maxImportBytes bounds bulk import uploads.
const maxImportBytes = 10 << 20

type importResponse struct {
	Imported   int      `json:"imported"`
	Categories []string `json:"categories"`
}

// handleImportProducts replaces the catalog with an uploaded .xlsx workbook or YAML
// fixtures file, chosen by Content-Type.
func (s *Server) handleImportProducts(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	var (
		products []*models.Product
		err      error
	)
	if isSpreadsheet(r.Header.Get("Content-Type")) {
		products, err = catalog.ReadXLSX(body)
	} else {
		products, err = catalog.ParseYAML(body)
	}
	if err != nil {
		s.respondErr(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if len(products) == 0 {
		s.respondErr(w, fmt.Errorf("%w: catalog has no products", errBadRequest))
		return
	}
	if err := s.catalog.Import(r.Context(), s.importStorage, products); err != nil {
		s.respondErr(w, err)
		return
	}
	if s.onImport != nil {
		s.onImport(len(products))
	}
	s.logger.Info("catalog imported", zap.Int("products", len(products)))
	s.respondJSON(w, http.StatusOK, importResponse{Imported: len(products), Categories: s.catalog.Categories()})
}

// handleDeleteProduct removes one product from the catalog and its storage.
func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.catalog.Delete(r.Context(), s.importStorage, id); err != nil {
		s.respondErr(w, err)
		return
	}
	if s.onImport != nil {
		s.onImport(s.catalog.Snapshot().Len())
	}
	s.logger.Info("product deleted", zap.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	var in pricing.Inputs
	if err := decodeJSON(r, &in, false); err != nil {
		s.respondErr(w, err)
		return
	}
	p, err := s.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	suggestion, err := pricing.Suggest(p, in)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.logger.Debug("pricing suggested",
		zap.String("id", p.ID),
		zap.Float64("current", suggestion.CurrentPrice),
		zap.Float64("suggested", suggestion.SuggestedPrice))
	s.respondJSON(w, http.StatusOK, suggestion)
}

func isSpreadsheet(contentType string) bool {
	return strings.Contains(contentType, "spreadsheetml") || strings.HasPrefix(contentType, "application/octet-stream")
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	response, err := s.engine.Related(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("session"), limit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.respondErr(w, err)
		return
	}
	sess, err := s.sessions.Create(req.Cohort)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.logger.Debug("session created", zap.String("id", sess.ID), zap.String("cohort", sess.Cohort))
	s.respondSession(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondSession(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	response, err := s.engine.Recommend(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondErr(w, err)
		return
	}
	if _, err := s.catalog.Get(req.ProductID); err != nil {
		s.respondErr(w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	sess, err := s.sessions.AddToCart(chi.URLParam(r, "id"), req.ProductID, req.Quantity)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondSession(w, http.StatusOK, sess)
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.RemoveFromCart(chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondSession(w, http.StatusOK, sess)
}

func (s *Server) handleRecordView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondErr(w, err)
		return
	}
	if _, err := s.catalog.Get(req.ProductID); err != nil {
		s.respondErr(w, err)
		return
	}
	sess, err := s.sessions.RecordView(chi.URLParam(r, "id"), req.ProductID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondSession(w, http.StatusOK, sess)
}

func (s *Server) handleRecordPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.respondErr(w, err)
		return
	}
	for _, id := range req.ProductIDs {
		if _, err := s.catalog.Get(id); err != nil {
			s.respondErr(w, err)
			return
		}
	}
	sess, err := s.sessions.RecordPurchase(chi.URLParam(r, "id"), req.ProductIDs...)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondSession(w, http.StatusOK, sess)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"products": s.catalog.Snapshot().Len(),
		"sessions": s.sessions.Len(),
	})
}

// decodeJSON decodes and validates a request body. allowEmpty accepts a missing body.
func decodeJSON(r *http.Request, v interface{}, allowEmpty bool) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid request body", errBadRequest)
	}
	return validate.Struct(v)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return n, nil
}

// priceParam parses an optional non-negative price; absent means zero.
func priceParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be a non-negative number", errBadRequest, name)
	}
	return v, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, models.ErrEmptyQuery),
		errors.Is(err, models.ErrInvalidOffset),
		errors.Is(err, session.ErrUnknownCohort),
		errors.Is(err, session.ErrInvalidQuantity),
		errors.As(err, &verrs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondSession(w http.ResponseWriter, status int, sess *session.Session) {
	cohort, err := session.LookupCohort(sess.Cohort)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, status, sessionResponse{Session: sess, Cohort: cohort})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
