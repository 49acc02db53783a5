package router

import (
	"log"
	"time"

	"propdesk/config"
	"propdesk/internal/handler"
	"propdesk/internal/middleware"
	"propdesk/internal/repository"
	"propdesk/internal/service"
	"propdesk/internal/ws"
	"propdesk/pkg/billing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Skip gin.Logger() to reduce log noise; use gin.Default() if you need request logging
	r.Use(middleware.RateLimit(middleware.NewSlidingWindowLimiter(100, 60*time.Second)))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewBillingCustomerRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)
	propRepo := repository.NewPropRepository(db)
	modelRepo := repository.NewModelRepository(db)
	watchlistRepo := repository.NewWatchlistRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	propsHub := ws.NewPropsHub()

	// Services
	authSvc := service.NewAuthService(cfg, userRepo)
	fcmSvc := service.NewFCMService(cfg.Firebase.CredentialsFile)
	if fcmSvc != nil {
		log.Printf("[fcm] push notifications enabled")
	} else if cfg.Firebase.CredentialsFile != "" {
		log.Printf("[fcm] push notifications disabled: failed to init (check credentials file)")
	} else {
		log.Printf("[fcm] push notifications disabled: set FIREBASE_CREDENTIALS_FILE to enable")
	}
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, fcmSvc)

	stripeClient := billing.NewStripeClient(cfg.Stripe.APIKey)
	if cfg.Stripe.Configured() {
		log.Printf("[billing] stripe enabled")
	} else {
		log.Printf("[billing] stripe disabled: set STRIPE_API_KEY to enable")
	}
	billingSvc := service.NewBillingService(cfg, stripeClient, customerRepo, invoiceRepo, userRepo, settingRepo, notifSvc)
	propSvc := service.NewPropService(propRepo, watchlistRepo, notifSvc, propsHub)
	modelSvc := service.NewModelService(modelRepo, propRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, auditRepo)
	googleOAuthHandler := handler.NewGoogleOAuthHandler(cfg, authSvc, auditRepo)
	meHandler := handler.NewMeHandler(userRepo)
	billingHandler := handler.NewBillingHandler(cfg, billingSvc, userRepo, auditRepo)
	webhookHandler := handler.NewStripeWebhookHandler(cfg, billingSvc, eventRepo)
	propHandler := handler.NewPropHandler(propSvc, userRepo)
	modelHandler := handler.NewModelHandler(modelSvc)
	watchlistHandler := handler.NewWatchlistHandler(watchlistRepo)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)
	adminHandler := handler.NewAdminHandler(adminRepo, userRepo, auditRepo, settingRepo, propSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)
	premiumMw := middleware.PremiumRequired(userRepo)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/logout", authMw, authHandler.Logout)
			authGroup.PATCH("/change-password", authMw, authHandler.ChangePassword)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/google", googleOAuthHandler.Redirect)
			authGroup.GET("/google/callback", googleOAuthHandler.Callback)
			authGroup.POST("/google/token", googleOAuthHandler.Token)
		}

		props := api.Group("/props")
		props.Use(authMw)
		{
			props.GET("", propHandler.Board)
			props.GET("/:id", propHandler.Get)
		}

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/profile", meHandler.Get)
			me.PATCH("/profile", meHandler.Update)
			me.POST("/fcm-token", meHandler.RegisterFCMToken)
			me.GET("/billing", billingHandler.Overview)
			me.POST("/billing/purchase-premium", billingHandler.PurchasePremium)
			me.POST("/billing/checkout", billingHandler.Checkout)
			me.POST("/billing/portal", billingHandler.Portal)
			me.GET("/notifications", notificationHandler.List)
			me.PUT("/notifications/:id/read", notificationHandler.MarkRead)
			me.GET("/watchlist", watchlistHandler.List)
			me.POST("/watchlist", watchlistHandler.Add)
			me.DELETE("/watchlist/:player", watchlistHandler.Remove)
		}

		userModels := api.Group("/me/models")
		userModels.Use(authMw, premiumMw)
		{
			userModels.POST("", modelHandler.Create)
			userModels.GET("", modelHandler.List)
			userModels.PATCH("/:id", modelHandler.Update)
			userModels.DELETE("/:id", modelHandler.Delete)
			userModels.POST("/:id/backtest", modelHandler.Backtest)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/audit", adminHandler.ListAudit)
			admin.GET("/settings", adminHandler.ListSettings)
			admin.PUT("/settings", adminHandler.SetSetting)
			admin.POST("/props", adminHandler.CreateProp)
			admin.PUT("/props/:id", adminHandler.UpdateProp)
			admin.POST("/props/:id/settle", adminHandler.SettleProp)
		}

		api.POST("/webhooks/stripe", webhookHandler.Handle)
	}

	r.GET("/ws/props", ws.UpgradePropsWS(&cfg.JWT, userRepo, propsHub))

	return r
}
