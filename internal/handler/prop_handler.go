package handler

import (
	"net/http"
	"strconv"
	"time"

	"propdesk/internal/middleware"
	"propdesk/internal/repository"
	"propdesk/internal/service"

	"github.com/gin-gonic/gin"
)

type PropHandler struct {
	svc      *service.PropService
	userRepo *repository.UserRepository
}

func NewPropHandler(svc *service.PropService, userRepo *repository.UserRepository) *PropHandler {
	return &PropHandler{svc: svc, userRepo: userRepo}
}

// Board lists the prop board. Free members see a truncated board; the
// response says so, so the client can upsell.
func (h *PropHandler) Board(c *gin.Context) {
	f := repository.PropFilter{
		Market: c.Query("market"),
		Team:   c.Query("team"),
		Player: c.Query("player"),
		Status: c.Query("status"),
	}
	if d := c.Query("date"); d != "" {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date (use YYYY-MM-DD)"})
			return
		}
		f.Date = &day
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	premium := false
	if u, err := h.userRepo.GetByID(middleware.GetUserID(c)); err == nil {
		premium = u.IsPremium
	}
	list, truncated, err := h.svc.Board(f, premium)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"props": list, "truncated": truncated})
}

func (h *PropHandler) Get(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	p, err := h.svc.Get(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "prop not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prop": p})
}
