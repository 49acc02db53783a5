package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"propdesk/internal/domain"
	"propdesk/internal/middleware"
	"propdesk/internal/models"
	"propdesk/internal/repository"
	"propdesk/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminRepo   *repository.AdminRepository
	userRepo    *repository.UserRepository
	auditRepo   *repository.AuditLogRepository
	settingRepo *repository.SettingRepository
	propSvc     *service.PropService
}

func NewAdminHandler(
	adminRepo *repository.AdminRepository,
	userRepo *repository.UserRepository,
	auditRepo *repository.AuditLogRepository,
	settingRepo *repository.SettingRepository,
	propSvc *service.PropService,
) *AdminHandler {
	return &AdminHandler{
		adminRepo:   adminRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		settingRepo: settingRepo,
		propSvc:     propSvc,
	}
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.adminRepo.GetDashboardStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.userRepo.List(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	total, _ := h.userRepo.Count()
	c.JSON(http.StatusOK, gin.H{"users": list, "total": total})
}

func (h *AdminHandler) ListAudit(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.auditRepo.List(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit": list})
}

func (h *AdminHandler) ListSettings(c *gin.Context) {
	list, err := h.settingRepo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": list})
}

type SettingRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

func (h *AdminHandler) SetSetting(c *gin.Context) {
	var req SettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.settingRepo.Set(req.Key, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	h.audit(c, "set_setting", req.Key)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type PropRequest struct {
	Player       string  `json:"player" binding:"required,min=1,max=100"`
	Team         string  `json:"team" binding:"required,min=2,max=10"`
	Opponent     string  `json:"opponent" binding:"required,min=2,max=10"`
	Market       string  `json:"market" binding:"required"`
	Line         float64 `json:"line" binding:"required,gt=0"`
	OverOdds     int     `json:"over_odds"`
	UnderOdds    int     `json:"under_odds"`
	SeasonAvg    float64 `json:"season_avg"`
	Last5Avg     float64 `json:"last5_avg"`
	OpponentRank int     `json:"opponent_rank" binding:"omitempty,min=1,max=30"`
	HomeGame     bool    `json:"home_game"`
	GameTime     string  `json:"game_time" binding:"required"` // RFC 3339
	Status       string  `json:"status" binding:"omitempty,oneof=OPEN SUSPENDED SETTLED"`
}

func (h *AdminHandler) CreateProp(c *gin.Context) {
	var req PropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	gameTime, err := time.Parse(time.RFC3339, req.GameTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game_time (use RFC 3339)"})
		return
	}
	p := propFromRequest(&req, gameTime)
	if err := h.propSvc.Create(p); err != nil {
		if errors.Is(err, service.ErrInvalidMarket) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	h.audit(c, "create_prop", strconv.FormatUint(uint64(p.ID), 10))
	c.JSON(http.StatusCreated, gin.H{"prop": p})
}

func (h *AdminHandler) UpdateProp(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	p, err := h.propSvc.Get(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "prop not found"})
		return
	}
	var req PropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	gameTime, err := time.Parse(time.RFC3339, req.GameTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game_time (use RFC 3339)"})
		return
	}
	updated := propFromRequest(&req, gameTime)
	updated.ID = p.ID
	updated.CreatedAt = p.CreatedAt
	if err := h.propSvc.Update(updated); err != nil {
		if errors.Is(err, service.ErrInvalidMarket) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.audit(c, "update_prop", c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"prop": updated})
}

type SettleRequest struct {
	Actual float64 `json:"actual" binding:"min=0"`
}

func (h *AdminHandler) SettleProp(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.propSvc.Settle(uint(id), req.Actual)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "settle failed"})
		return
	}
	h.audit(c, "settle_prop", c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"prop": p})
}

func propFromRequest(req *PropRequest, gameTime time.Time) *models.Prop {
	status := req.Status
	if status == "" {
		status = domain.PropStatusOpen
	}
	overOdds := req.OverOdds
	if overOdds == 0 {
		overOdds = -110
	}
	underOdds := req.UnderOdds
	if underOdds == 0 {
		underOdds = -110
	}
	return &models.Prop{
		Player:       req.Player,
		Team:         req.Team,
		Opponent:     req.Opponent,
		Market:       req.Market,
		Line:         req.Line,
		OverOdds:     overOdds,
		UnderOdds:    underOdds,
		SeasonAvg:    req.SeasonAvg,
		Last5Avg:     req.Last5Avg,
		OpponentRank: req.OpponentRank,
		HomeGame:     req.HomeGame,
		GameTime:     gameTime,
		Status:       status,
	}
}

func (h *AdminHandler) audit(c *gin.Context, action, resourceID string) {
	userID := middleware.GetUserID(c)
	_ = h.auditRepo.Create(&models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "admin",
		ResourceID: resourceID,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
}
