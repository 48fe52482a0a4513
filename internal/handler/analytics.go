package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/villagehub/bizdir/internal/analytics"
	"github.com/villagehub/bizdir/internal/logger"
)

const (
	defaultAggregateWindow = 7 * 24 * time.Hour
	defaultAggregateLimit  = 10
)

// aggregateParams reads the shared since/limit query parameters.
func aggregateParams(r *http.Request) (time.Time, int) {
	since := time.Now().Add(-defaultAggregateWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			since = parsed
		}
	}

	limit := defaultAggregateLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	return since, limit
}

// HandleGetPopularSearches returns the most frequent AI search queries.
// @Summary Popular searches
// @Tags analytics
// @Produce json
// @Success 200 {array} analytics.SearchCount
// @Router /api/v1/analytics/popular-searches [get]
func HandleGetPopularSearches(svc analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since, limit := aggregateParams(r)

		searches, err := svc.PopularSearches(r.Context(), since, limit)
		if err != nil {
			logger.FromContext(r.Context()).Error("Failed to load popular searches", "error", err)
			respondError(w, http.StatusInternalServerError, ErrMsgGenericServerError)
			return
		}

		respondJSON(w, http.StatusOK, searches)
	}
}

// HandleGetPopularBusinesses returns the most interacted-with listings.
// @Summary Popular businesses
// @Tags analytics
// @Produce json
// @Success 200 {array} analytics.BusinessInteractions
// @Router /api/v1/analytics/popular-businesses [get]
func HandleGetPopularBusinesses(svc analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since, limit := aggregateParams(r)

		businesses, err := svc.PopularBusinesses(r.Context(), since, limit)
		if err != nil {
			logger.FromContext(r.Context()).Error("Failed to load popular businesses", "error", err)
			respondError(w, http.StatusInternalServerError, ErrMsgGenericServerError)
			return
		}

		respondJSON(w, http.StatusOK, businesses)
	}
}

// HandleGetConversionRates returns view-to-call ratios per listing.
// @Summary Conversion rates
// @Tags analytics
// @Produce json
// @Success 200 {array} analytics.ConversionRate
// @Router /api/v1/analytics/conversion-rates [get]
func HandleGetConversionRates(svc analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since, _ := aggregateParams(r)

		rates, err := svc.ConversionRates(r.Context(), since)
		if err != nil {
			logger.FromContext(r.Context()).Error("Failed to load conversion rates", "error", err)
			respondError(w, http.StatusInternalServerError, ErrMsgGenericServerError)
			return
		}

		respondJSON(w, http.StatusOK, rates)
	}
}

// LiveCountResponse is the live-user approximation.
type LiveCountResponse struct {
	Live int64 `json:"live"`
}

// HandleGetLiveCount returns the number of devices seen recently.
// @Summary Live user count
// @Tags analytics
// @Produce json
// @Success 200 {object} LiveCountResponse
// @Router /api/v1/analytics/live [get]
func HandleGetLiveCount(svc analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		live, err := svc.LiveCount(r.Context())
		if err != nil {
			logger.FromContext(r.Context()).Error("Failed to load live count", "error", err)
			respondError(w, http.StatusInternalServerError, ErrMsgGenericServerError)
			return
		}

		respondJSON(w, http.StatusOK, LiveCountResponse{Live: live})
	}
}
