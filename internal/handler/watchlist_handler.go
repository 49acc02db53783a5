package handler

import (
	"net/http"

	"propdesk/internal/middleware"
	"propdesk/internal/repository"

	"github.com/gin-gonic/gin"
)

type WatchlistHandler struct {
	repo *repository.WatchlistRepository
}

func NewWatchlistHandler(repo *repository.WatchlistRepository) *WatchlistHandler {
	return &WatchlistHandler{repo: repo}
}

func (h *WatchlistHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	list, err := h.repo.ListByUserID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": list})
}

type WatchRequest struct {
	Player string `json:"player" binding:"required,min=1,max=100"`
}

func (h *WatchlistHandler) Add(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.repo.Add(userID, req.Player); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok"})
}

func (h *WatchlistHandler) Remove(c *gin.Context) {
	userID := middleware.GetUserID(c)
	player := c.Param("player")
	if err := h.repo.Remove(userID, player); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "remove failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
