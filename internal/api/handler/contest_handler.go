package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"codearena/internal/app/service"
	"codearena/internal/common"
)

type ContestHandler struct {
	contestService *service.ContestService
}

func NewContestHandler(cs *service.ContestService) *ContestHandler {
	return &ContestHandler{contestService: cs}
}

func (h *ContestHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{contestID}", h.getContest)
	r.Get("/{contestID}/problems", h.getProblems)
	r.Get("/{contestID}/leaderboard", h.getLeaderboard)
}

func (h *ContestHandler) getContest(w http.ResponseWriter, r *http.Request) {
	contest, err := h.contestService.GetContest(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}

func (h *ContestHandler) getProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.contestService.GetProblems(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problems)
}

func (h *ContestHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.contestService.Leaderboard(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}
