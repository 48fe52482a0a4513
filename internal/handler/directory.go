package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/villagehub/bizdir/internal/directory"
	"github.com/villagehub/bizdir/internal/domain"
	"github.com/villagehub/bizdir/internal/logger"
)

// ListingsResponse is the payload for the main directory view.
type ListingsResponse struct {
	Businesses []domain.Business `json:"businesses"`
	Categories []domain.Category `json:"categories"`
	FromCache  bool              `json:"from_cache"`
	Action     string            `json:"action"`
}

// HandleGetListings returns the full directory, syncing against the remote
// source when the cached fingerprint is stale.
// @Summary Get all listings
// @Description Returns cached businesses and categories, refreshed when stale
// @Tags directory
// @Produce json
// @Success 200 {object} ListingsResponse
// @Router /api/v1/businesses [get]
func HandleGetListings(svc directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := svc.Listings(r.Context())

		respondJSON(w, http.StatusOK, ListingsResponse{
			Businesses: result.Businesses,
			Categories: result.Categories,
			FromCache:  result.FromCache,
			Action:     string(result.Action),
		})
	}
}

// HandleSearchBusinesses filters cached listings by free text and category.
// @Summary Search listings
// @Tags directory
// @Produce json
// @Param q query string false "Search text"
// @Param category_id query string false "Category filter"
// @Success 200 {array} domain.Business
// @Router /api/v1/businesses/search [get]
func HandleSearchBusinesses(svc directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		categoryID := r.URL.Query().Get("category_id")

		businesses, err := svc.Search(r.Context(), query, categoryID)
		if err != nil {
			logger.FromContext(r.Context()).Error("Search failed", "error", err)
			status, msg := mapServiceErrorToUserMessage(err)
			respondError(w, status, msg)
			return
		}

		respondJSON(w, http.StatusOK, businesses)
	}
}

// HandleGetCategories returns the cached category list.
// @Summary Get categories
// @Tags directory
// @Produce json
// @Success 200 {array} domain.Category
// @Router /api/v1/categories [get]
func HandleGetCategories(svc directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.Categories(r.Context())
		if err != nil {
			status, msg := mapServiceErrorToUserMessage(err)
			respondError(w, status, msg)
			return
		}

		respondJSON(w, http.StatusOK, categories)
	}
}

// AISearchRequest is the body for natural-language search.
type AISearchRequest struct {
	Query string `json:"query" validate:"required,max=500"`
}

// HandleAISearch answers a natural-language question about the directory.
// @Summary AI-assisted search
// @Tags directory
// @Accept json
// @Produce json
// @Param request body AISearchRequest true "Query"
// @Success 200 {object} aisearch.Result
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/businesses/ai-search [post]
func HandleAISearch(svc directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AISearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, ErrMsgInvalidRequestError)
			return
		}
		if err := GetValidator().ValidateStruct(req); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]any{"errors": FormatValidationError(err)})
			return
		}

		result, err := svc.AISearch(r.Context(), req.Query)
		if err != nil {
			status, msg := mapServiceErrorToUserMessage(err)
			respondError(w, status, msg)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

// HandleAddBusiness creates a listing through the remote service.
// @Summary Add a listing
// @Tags admin
// @Accept json
// @Produce json
// @Param request body domain.Business true "Listing"
// @Success 201 {object} domain.Business
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/admin/businesses [post]
func HandleAddBusiness(svc directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b domain.Business
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			respondError(w, http.StatusBadRequest, ErrMsgInvalidRequestError)
			return
		}
		if err := GetValidator().ValidateStruct(b); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]any{"errors": FormatValidationError(err)})
			return
		}

		created, err := svc.AddBusiness(r.Context(), b)
		if err != nil {
			logger.FromContext(r.Context()).Error("Failed to add business", "error", err)
			status, msg := mapServiceErrorToUserMessage(err)
			respondError(w, status, msg)
			return
		}

		respondJSON(w, http.StatusCreated, created)
	}
}

// HandleUpdateBusiness updates a listing through the remote service.
// @Summary Update a listing
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Business ID"
// @Param request body domain.Business true "Listing"
// @Success 200 {object} domain.Business
// @Router /api/v1/admin/businesses/{id} [put]
func HandleUpdateBusiness(svc directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var b domain.Business
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			respondError(w, http.StatusBadRequest, ErrMsgInvalidRequestError)
			return
		}
		b.ID = id
		if err := GetValidator().ValidateStruct(b); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]any{"errors": FormatValidationError(err)})
			return
		}

		if err := svc.UpdateBusiness(r.Context(), b); err != nil {
			logger.FromContext(r.Context()).Error("Failed to update business", "business_id", id, "error", err)
			status, msg := mapServiceErrorToUserMessage(err)
			respondError(w, status, msg)
			return
		}

		respondJSON(w, http.StatusOK, b)
	}
}

// HandleDeleteBusiness removes a listing through the remote service.
// @Summary Delete a listing
// @Tags admin
// @Produce json
// @Param id path string true "Business ID"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/admin/businesses/{id} [delete]
func HandleDeleteBusiness(svc directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := svc.DeleteBusiness(r.Context(), id); err != nil {
			logger.FromContext(r.Context()).Error("Failed to delete business", "business_id", id, "error", err)
			status, msg := mapServiceErrorToUserMessage(err)
			respondError(w, status, msg)
			return
		}

		respondJSON(w, http.StatusOK, SuccessResponse{Message: "Listing deleted"})
	}
}

// SignInRequest is the admin sign-in body.
type SignInRequest struct {
	Email     string `json:"email" validate:"required,email"`
	AccessKey string `json:"access_key" validate:"required"`
}

// HandleSignIn authenticates an admin against the remote service.
// @Summary Admin sign-in
// @Tags admin
// @Accept json
// @Produce json
// @Param request body SignInRequest true "Credentials"
// @Success 200 {object} remote.Session
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/admin/sign-in [post]
func HandleSignIn(svc directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, ErrMsgInvalidRequestError)
			return
		}
		if err := GetValidator().ValidateStruct(req); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]any{"errors": FormatValidationError(err)})
			return
		}

		session, err := svc.SignIn(r.Context(), req.Email, req.AccessKey)
		if err != nil {
			status, msg := mapServiceErrorToUserMessage(err)
			respondError(w, status, msg)
			return
		}

		respondJSON(w, http.StatusOK, session)
	}
}

// HandleSignOut ends the admin session.
// @Summary Admin sign-out
// @Tags admin
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /api/v1/admin/sign-out [post]
func HandleSignOut(svc directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.SignOut(r.Context()); err != nil {
			status, msg := mapServiceErrorToUserMessage(err)
			respondError(w, status, msg)
			return
		}
		respondJSON(w, http.StatusOK, SuccessResponse{Message: "Signed out"})
	}
}

// TrackEventRequest is the body for interaction tracking.
type TrackEventRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=visit interaction"`
	Page       string `json:"page,omitempty"`
	BusinessID string `json:"business_id,omitempty"`
	Action     string `json:"action,omitempty"`
}

// HandleTrackEvent enqueues an analytics event. Always answers 202: tracking
// is best-effort and never reports failures to the client.
// @Summary Track a user action
// @Tags tracking
// @Accept json
// @Success 202
// @Router /api/v1/events [post]
func HandleTrackEvent(svc directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TrackEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, ErrMsgInvalidRequestError)
			return
		}
		if err := GetValidator().ValidateStruct(req); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]any{"errors": FormatValidationError(err)})
			return
		}

		switch req.Kind {
		case "visit":
			svc.TrackVisit(r.Context(), req.Page)
		case "interaction":
			svc.TrackInteraction(r.Context(), req.BusinessID, req.Action)
		}

		w.WriteHeader(http.StatusAccepted)
	}
}
