package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Apsteward8/my-bet-tracker/internal/service"
)

// VerificationHandler serves the operator verification workflow.
type VerificationHandler struct {
	betSvc *service.BetService
}

// NewVerificationHandler creates a VerificationHandler.
func NewVerificationHandler(betSvc *service.BetService) *VerificationHandler {
	return &VerificationHandler{betSvc: betSvc}
}

// Unverified godoc
// GET /api/verification/unverified?sportsbook=&status=&page=1&limit=50 [JWT]
func (h *VerificationHandler) Unverified(c *gin.Context) {
	q := service.UnverifiedQuery{Sportsbook: c.Query("sportsbook")}
	if raw := c.Query("status"); raw != "" {
		s, err := statusParam(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_STATUS", err.Error())
			return
		}
		q.Status = s
	}
	q.Page, q.PageSize = parsePagination(c)

	res, err := h.betSvc.ListUnverified(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err, "could not list unverified bets")
		return
	}
	respondList(c, res.Bets, res.Total, res.Page, res.PageSize)
}

// Stats godoc
// GET /api/verification/stats [JWT]
func (h *VerificationHandler) Stats(c *gin.Context) {
	stats, err := h.betSvc.VerificationStats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "could not compute verification stats")
		return
	}
	respondSuccess(c, http.StatusOK, stats)
}

// VerifyOne godoc
// PUT /api/verification/bets/:id [JWT]
func (h *VerificationHandler) VerifyOne(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_BET_ID", "invalid bet id")
		return
	}
	bet, err := h.betSvc.Verify(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "could not verify bet")
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}

// VerifyMany godoc
// PUT /api/verification/bets [JWT]
// Body: {"bet_ids":["uuid", ...]}
func (h *VerificationHandler) VerifyMany(c *gin.Context) {
	var body struct {
		BetIDs []string `json:"bet_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	if len(body.BetIDs) > service.MaxVerifyBatch {
		respondError(c, http.StatusBadRequest, "ERR_TOO_MANY_IDS", "at most 100 bet ids per request")
		return
	}
	ids := make([]uuid.UUID, 0, len(body.BetIDs))
	for _, raw := range body.BetIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_BET_ID", "invalid bet id "+raw)
			return
		}
		ids = append(ids, id)
	}

	res, err := h.betSvc.VerifyMany(c.Request.Context(), ids)
	if err != nil {
		respondServiceError(c, err, "could not verify bets")
		return
	}
	respondSuccess(c, http.StatusOK, res)
}
