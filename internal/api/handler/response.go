package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Apsteward8/my-bet-tracker/internal/csvimport"
	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList writes {"success": true, "data": items, "meta": {...}}.
func respondList(c *gin.Context, items interface{}, total, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// respondServiceError maps domain errors onto HTTP statuses. Anything
// unrecognised becomes a 500 with fallback as the message.
func respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrBetNotFound.Error())
	case errors.Is(err, domain.ErrAutoVerifiedSource):
		respondError(c, http.StatusConflict, "ERR_AUTO_VERIFIED", err.Error())
	case errors.Is(err, domain.ErrTooManyIDs):
		respondError(c, http.StatusBadRequest, "ERR_TOO_MANY_IDS", err.Error())
	case errors.Is(err, domain.ErrNoIDs):
		respondError(c, http.StatusBadRequest, "ERR_NO_IDS", err.Error())
	case errors.Is(err, domain.ErrInvalidStatusFilter):
		respondError(c, http.StatusBadRequest, "ERR_INVALID_STATUS", err.Error())
	case errors.Is(err, domain.ErrUnknownSource):
		respondError(c, http.StatusBadRequest, "ERR_UNKNOWN_SOURCE", err.Error())
	case errors.Is(err, csvimport.ErrMissingColumn), errors.Is(err, csvimport.ErrMalformed):
		respondError(c, http.StatusBadRequest, "ERR_INVALID_FILE", err.Error())
	case errors.Is(err, domain.ErrImportInProgress):
		respondError(c, http.StatusConflict, "ERR_IMPORT_IN_PROGRESS", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", fallback)
	}
}

// ── query helpers ────────────────────────────────────────────────────────────

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	return
}

// dateRange reads ?from=YYYY-MM-DD&to=YYYY-MM-DD as calendar days in loc.
// to is inclusive on the wire and returned as the exclusive next midnight.
func dateRange(c *gin.Context, loc *time.Location) (from, to time.Time, err error) {
	if s := c.Query("from"); s != "" {
		if from, err = time.ParseInLocation(time.DateOnly, s, loc); err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
		}
	}
	if s := c.Query("to"); s != "" {
		if to, err = time.ParseInLocation(time.DateOnly, s, loc); err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
		}
		to = to.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return time.Time{}, time.Time{}, errors.New("from must not be after to")
	}
	return from, to, nil
}

// sourceParam reads an optional source name. "" means every source.
func sourceParam(raw string) (domain.Source, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return domain.ParseSource(raw)
}

// statusList reads a comma-separated status filter.
func statusList(raw string) ([]domain.BetStatus, error) {
	if raw == "" {
		return nil, nil
	}
	var out []domain.BetStatus
	for _, part := range strings.Split(raw, ",") {
		s, err := statusParam(part)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func statusParam(raw string) (domain.BetStatus, error) {
	s := domain.BetStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range domain.BetStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", domain.ErrInvalidStatusFilter
}

func boolParam(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}
