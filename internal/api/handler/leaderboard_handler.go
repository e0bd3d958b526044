package handler

import (
	"net/http"
	"strconv"
	"skill_forge/internal/api/middleware"
	"skill_forge/internal/app/service"
	"skill_forge/internal/common"
	"skill_forge/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

func NewLeaderboardHandler(ls *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

func (h *LeaderboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.getLeaderboard)
}

type leaderboardResponse struct {
	Window  model.LeaderboardWindow `json:"window"`
	Entries []model.Standing        `json:"entries"`
	// Me is the caller's own all-time entry, or null when the caller is
	// unauthenticated or has no progress rows (unranked).
	Me *model.Standing `json:"me"`
}

func (h *LeaderboardHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	window, ok := model.ParseLeaderboardWindow(r.URL.Query().Get("window"))
	if !ok {
		common.RespondWithError(w, http.StatusBadRequest, "window must be one of: all, monthly, weekly")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.leaderboardService.Standings(r.Context(), window, limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	resp := leaderboardResponse{Window: window, Entries: entries}
	if userID, authed := middleware.GetUserIDFromContext(r.Context()); authed {
		me, err := h.leaderboardService.UserRank(r.Context(), userID)
		if err != nil {
			common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
			return
		}
		resp.Me = me
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}
