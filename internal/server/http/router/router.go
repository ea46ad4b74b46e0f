package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/dmarkhas/loyaltycore/internal/pkg/adminauth"
	"github.com/dmarkhas/loyaltycore/internal/server/http/handlers"
	"github.com/dmarkhas/loyaltycore/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.LoyaltyFacade, verifier adminauth.KeyVerifier, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	healthHandler := handlers.NewHealthHandler(facade)
	pointsHandler := handlers.NewPointsHandler(facade)
	tierHandler := handlers.NewTierHandler(facade)

	engine.GET("/ping", healthHandler.Ping)

	api := engine.Group("/api")
	api.GET("/tiers", tierHandler.Ladder)

	members := api.Group("/members/:id")
	members.POST("/earn", pointsHandler.Earn)
	members.POST("/use", pointsHandler.Use)
	members.POST("/spend", tierHandler.ApplySpend)
	members.GET("/balance", pointsHandler.Balance)
	members.GET("/batches", pointsHandler.Batches)
	members.GET("/transactions", pointsHandler.Transactions)
	members.GET("/tier", tierHandler.CurrentTier)
	members.GET("/tier/history", tierHandler.History)

	admin := members.Group("")
	admin.Use(middleware.AdminKeyRequired(verifier))
	admin.POST("/adjust", pointsHandler.Adjust)
	admin.POST("/tier", tierHandler.SetTier)
	admin.POST("/hold/release", pointsHandler.ReleaseHold)

	return engine
}
