package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
	"github.com/Apsteward8/my-bet-tracker/internal/service"
)

// MaxUploadBytes caps one uploaded export.
const MaxUploadBytes = 32 << 20

// ImportHandler accepts source exports and lists past runs.
type ImportHandler struct {
	importSvc *service.ImportService
}

// NewImportHandler creates an ImportHandler.
func NewImportHandler(importSvc *service.ImportService) *ImportHandler {
	return &ImportHandler{importSvc: importSvc}
}

// Upload godoc
// POST /api/imports/:source [JWT]
// Body: multipart form with a "file" field, or the raw CSV.
//
// A discarded batch answers 422 with the report so the operator can see why.
func (h *ImportHandler) Upload(c *gin.Context) {
	src, err := domain.ParseSource(c.Param("source"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_UNKNOWN_SOURCE", err.Error())
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)
	body, closeBody, err := uploadReader(c)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(c, http.StatusRequestEntityTooLarge, "ERR_FILE_TOO_LARGE", "export exceeds 32 MiB")
			return
		}
		respondError(c, http.StatusBadRequest, "ERR_INVALID_FILE", err.Error())
		return
	}
	defer closeBody()

	report, err := h.importSvc.Import(c.Request.Context(), src, body)
	if err != nil {
		if report.Failed {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"success": false,
				"error":   err.Error(),
				"code":    "ERR_BATCH_DISCARDED",
				"data":    report,
			})
			return
		}
		respondServiceError(c, err, "import failed")
		return
	}
	respondSuccess(c, http.StatusOK, report)
}

// uploadReader returns the multipart "file" part when there is one, the raw
// body otherwise.
func uploadReader(c *gin.Context) (io.Reader, func(), error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}
	return c.Request.Body, func() {}, nil
}

// List godoc
// GET /api/imports?source=&limit=20
func (h *ImportHandler) List(c *gin.Context) {
	src, err := sourceParam(c.Query("source"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_UNKNOWN_SOURCE", err.Error())
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.importSvc.Recent(c.Request.Context(), src, limit)
	if err != nil {
		respondServiceError(c, err, "could not list imports")
		return
	}
	respondSuccess(c, http.StatusOK, runs)
}
