package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Apsteward8/my-bet-tracker/internal/metrics"
	"github.com/Apsteward8/my-bet-tracker/internal/service"
)

// StatsHandler serves performance metrics.
type StatsHandler struct {
	statsSvc *service.StatsService
	loc      *time.Location
}

// NewStatsHandler creates a StatsHandler. Dates are read in loc.
func NewStatsHandler(statsSvc *service.StatsService, loc *time.Location) *StatsHandler {
	return &StatsHandler{statsSvc: statsSvc, loc: loc}
}

// filter reads the shared metrics filter from the query string.
func (h *StatsHandler) filter(c *gin.Context) (metrics.Filter, bool) {
	src, err := sourceParam(c.Query("source"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_UNKNOWN_SOURCE", err.Error())
		return metrics.Filter{}, false
	}
	from, to, err := dateRange(c, h.loc)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", err.Error())
		return metrics.Filter{}, false
	}
	return metrics.Filter{
		From:            from,
		To:              to,
		ExcludePending:  boolParam(c, "exclude_pending"),
		ExcludeRefunded: boolParam(c, "exclude_refunded"),
		Sportsbook:      c.Query("sportsbook"),
		Sport:           c.Query("sport"),
		Source:          src,
	}, true
}

// Summary godoc
// GET /api/stats?from=&to=&source=&sportsbook=&sport=&exclude_pending=&exclude_refunded=
func (h *StatsHandler) Summary(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	report, err := h.statsSvc.Summary(c.Request.Context(), f)
	if err != nil {
		respondServiceError(c, err, "could not compute stats")
		return
	}
	respondSuccess(c, http.StatusOK, report)
}

// EV godoc
// GET /api/stats/ev?category=high&... (same filters as /api/stats)
func (h *StatsHandler) EV(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	rows, err := h.statsSvc.Analysis(c.Request.Context(), f)
	if err != nil {
		respondServiceError(c, err, "could not compute ev analysis")
		return
	}
	if cat := metrics.EVCategory(c.Query("category")); cat != "" {
		kept := rows[:0]
		for _, a := range rows {
			if a.Category == cat {
				kept = append(kept, a)
			}
		}
		rows = kept
	}
	respondSuccess(c, http.StatusOK, rows)
}

// Calendar godoc
// GET /api/stats/calendar?year=2025&month=3
func (h *StatsHandler) Calendar(c *gin.Context) {
	now := time.Now().In(h.loc)
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "year must be a number")
		return
	}
	month, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if err != nil || month < 1 || month > 12 {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "month must be 1-12")
		return
	}
	cal, err := h.statsSvc.Calendar(c.Request.Context(), year, time.Month(month))
	if err != nil {
		respondServiceError(c, err, "could not build calendar")
		return
	}
	respondSuccess(c, http.StatusOK, cal)
}

// Day godoc
// GET /api/stats/day?date=2025-03-16
func (h *StatsHandler) Day(c *gin.Context) {
	date, err := time.ParseInLocation(time.DateOnly, c.Query("date"), h.loc)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "date must be YYYY-MM-DD")
		return
	}
	day, err := h.statsSvc.Day(c.Request.Context(), date)
	if err != nil {
		respondServiceError(c, err, "could not load day")
		return
	}
	respondSuccess(c, http.StatusOK, day)
}
