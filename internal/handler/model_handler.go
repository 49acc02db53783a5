package handler

import (
	"errors"
	"net/http"
	"strconv"

	"propdesk/internal/middleware"
	"propdesk/internal/models"
	"propdesk/internal/service"

	"github.com/gin-gonic/gin"
)

type ModelHandler struct {
	svc *service.ModelService
}

func NewModelHandler(svc *service.ModelService) *ModelHandler {
	return &ModelHandler{svc: svc}
}

type ModelRequest struct {
	Name             string  `json:"name" binding:"required,min=1,max=100"`
	WeightSeasonAvg  float64 `json:"weight_season_avg"`
	WeightRecentForm float64 `json:"weight_recent_form"`
	WeightOpponent   float64 `json:"weight_opponent"`
	WeightHomeAway   float64 `json:"weight_home_away"`
}

func (h *ModelHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req ModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m := &models.UserModel{
		UserID:           userID,
		Name:             req.Name,
		WeightSeasonAvg:  req.WeightSeasonAvg,
		WeightRecentForm: req.WeightRecentForm,
		WeightOpponent:   req.WeightOpponent,
		WeightHomeAway:   req.WeightHomeAway,
	}
	if err := h.svc.Create(m); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidWeights), errors.Is(err, service.ErrModelLimit):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"model": m})
}

func (h *ModelHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	list, err := h.svc.List(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": list})
}

func (h *ModelHandler) Update(c *gin.Context) {
	userID := middleware.GetUserID(c)
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	var req ModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.svc.Update(uint(id), userID, func(m *models.UserModel) {
		m.Name = req.Name
		m.WeightSeasonAvg = req.WeightSeasonAvg
		m.WeightRecentForm = req.WeightRecentForm
		m.WeightOpponent = req.WeightOpponent
		m.WeightHomeAway = req.WeightHomeAway
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrModelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidWeights):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": m})
}

func (h *ModelHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	if err := h.svc.Delete(uint(id), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Backtest replays the model over settled props. Premium only (routed
// behind the premium gate).
func (h *ModelHandler) Backtest(c *gin.Context) {
	userID := middleware.GetUserID(c)
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	market := c.Query("market")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "500"))
	res, err := h.svc.Backtest(uint(id), userID, market, limit)
	if err != nil {
		if errors.Is(err, service.ErrModelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "backtest failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}
