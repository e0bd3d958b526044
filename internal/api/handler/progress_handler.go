package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"skill_forge/internal/api/middleware"
	"skill_forge/internal/app/service"
	"skill_forge/internal/common"

	"github.com/go-chi/chi/v5"
)

type ProgressHandler struct {
	progressService *service.ProgressService
	importService   *service.ImportService
}

func NewProgressHandler(ps *service.ProgressService, is *service.ImportService) *ProgressHandler {
	return &ProgressHandler{progressService: ps, importService: is}
}

func (h *ProgressHandler) RegisterRoutes(r chi.Router) {
	// All progress routes require an authenticated, resolvable identity.
	r.Post("/submit", h.submit)
	r.Post("/complete", h.complete)
	r.Post("/import", h.importCompletions)
	r.Get("/submissions/{problemSlug}", h.submissionHistory)
}

func (h *ProgressHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.RecordSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.progressService.RecordSubmission(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *ProgressHandler) complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req struct {
		ProblemSlug string `json:"problemSlug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	if _, err := h.progressService.MarkComplete(r.Context(), userID, req.ProblemSlug); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *ProgressHandler) importCompletions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req struct {
		CompletedSlugs []string `json:"completedSlugs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	migrated, err := h.importService.ImportCompletions(r.Context(), userID, req.CompletedSlugs)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]int{"migratedCount": migrated})
}

func (h *ProgressHandler) submissionHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	problemSlug := chi.URLParam(r, "problemSlug")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	subs, err := h.progressService.GetSubmissionHistory(r.Context(), userID, problemSlug, limit, offset)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}
