package handler

import (
	"time"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	TransferSvc    ports.TransferService
	FundingSvc     ports.FundingService
	ReportingSvc   ports.ReportingService
	TokenSvc       ports.TokenService
	Gateway        ports.PaymentGateway
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	AuditSvc       ports.AuditService   // nil = audit logging disabled
	HealthCheckers []ports.HealthChecker
	Mapper         dto.Mapper
	CallbackSecret string   // shared secret for gateway callbacks
	CORSOrigins    []string // empty = CORS middleware not installed
	Mode           string   // gin mode; defaults to release
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders:    []string{middleware.HeaderRequestID, "X-RateLimit-Remaining", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep: verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Gateway callbacks (shared secret) ---
	fundingHandler := NewFundingHandler(deps.FundingSvc, deps.Mapper)
	funding := v1.Group("/funding", middleware.GatewaySecret(deps.CallbackSecret))
	{
		funding.POST("/confirmations", rl("callbacks"), fundingHandler.Confirm)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.WalletSvc, deps.TransferSvc, deps.FundingSvc, deps.Gateway, deps.Mapper, deps.Logger)
	txHandler := NewTransactionHandler(deps.ReportingSvc, deps.Mapper)

	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.POST("", rl("wallets_open"), walletHandler.Open)
		wallets.GET("/me", rl("reads"), walletHandler.GetMine)
		wallets.POST("/transfer", rl("wallets_write"), walletHandler.Transfer)
		wallets.POST("/payment", rl("wallets_write"), walletHandler.Payment)
		wallets.POST("/add-funds", rl("wallets_fund"), walletHandler.AddFunds)
	}

	transactions := v1.Group("/transactions", jwtAuth)
	{
		transactions.GET("", rl("reads"), txHandler.List)
		transactions.GET("/summary", rl("reads"), txHandler.Summary)
		transactions.GET("/:id", rl("reads"), txHandler.Get)
	}

	return r
}
