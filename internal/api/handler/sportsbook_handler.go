package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Apsteward8/my-bet-tracker/internal/authority"
	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// SportsbookHandler exposes the authority table.
type SportsbookHandler struct {
	books *authority.Table
}

// NewSportsbookHandler creates a SportsbookHandler.
func NewSportsbookHandler(books *authority.Table) *SportsbookHandler {
	return &SportsbookHandler{books: books}
}

type sportsbookView struct {
	Name      string        `json:"name"`
	Authority domain.Source `json:"authority"`
}

// List godoc
// GET /api/sportsbooks
func (h *SportsbookHandler) List(c *gin.Context) {
	cfg := h.books.Snapshot()
	var books []sportsbookView
	for _, src := range domain.Sources {
		for _, name := range h.books.Books(src) {
			books = append(books, sportsbookView{Name: name, Authority: src})
		}
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"sportsbooks": books,
		"aliases":     cfg.Aliases,
		"default":     cfg.Default,
	})
}
