package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Apsteward8/my-bet-tracker/internal/repository"
	"github.com/Apsteward8/my-bet-tracker/internal/service"
)

// BetHandler serves canonical bet queries.
type BetHandler struct {
	betSvc *service.BetService
	loc    *time.Location
}

// NewBetHandler creates a BetHandler. Date filters are read in loc.
func NewBetHandler(betSvc *service.BetService, loc *time.Location) *BetHandler {
	return &BetHandler{betSvc: betSvc, loc: loc}
}

// List godoc
// GET /api/bets?source=&sportsbook=&sport=&status=won,lost&verified=&from=&to=&page=1&limit=50
func (h *BetHandler) List(c *gin.Context) {
	src, err := sourceParam(c.Query("source"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_UNKNOWN_SOURCE", err.Error())
		return
	}
	statuses, err := statusList(c.Query("status"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_STATUS", err.Error())
		return
	}
	from, to, err := dateRange(c, h.loc)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", err.Error())
		return
	}

	f := repository.BetFilter{
		Source:     src,
		Sportsbook: c.Query("sportsbook"),
		Sport:      c.Query("sport"),
		Statuses:   statuses,
		From:       from,
		To:         to,
	}
	if raw := c.Query("verified"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "verified must be true or false")
			return
		}
		f.Verified = &v
	}

	page, limit := parsePagination(c)
	res, err := h.betSvc.List(c.Request.Context(), f, page, limit)
	if err != nil {
		respondServiceError(c, err, "could not list bets")
		return
	}
	respondList(c, res.Bets, res.Total, res.Page, res.PageSize)
}

// GetByID godoc
// GET /api/bets/:id
func (h *BetHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_BET_ID", "invalid bet id")
		return
	}
	bet, err := h.betSvc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "could not fetch bet")
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}
