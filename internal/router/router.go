package router

import (
	"strings"

	"github.com/dujiao-next/storefront/internal/config"
	publichandlers "github.com/dujiao-next/storefront/internal/http/handlers/public"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "sf"
	}
	loginThrottle := NewLoginThrottle(c.RedisClient, redisPrefix+":rate:login", cfg.LoginRateLimit)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/state", publicHandler.GetState)
		apiV1.GET("/notices", publicHandler.DrainNotices)

		cart := apiV1.Group("/cart")
		{
			cart.GET("", publicHandler.GetCart)
			cart.DELETE("", publicHandler.ClearCart)
			cart.POST("/refresh", publicHandler.RefreshCart)
			cart.POST("/items", publicHandler.AddCartItem)
			cart.PATCH("/items/:product_id", publicHandler.SetCartItemQuantity)
			cart.POST("/items/:product_id/increase", publicHandler.IncreaseCartItem)
			cart.POST("/items/:product_id/decrease", publicHandler.DecreaseCartItem)
			cart.DELETE("/items/:product_id", publicHandler.DeleteCartItem)
		}

		session := apiV1.Group("/session")
		{
			session.GET("", publicHandler.GetSession)
			session.GET("/gate", publicHandler.GetGate)
			session.POST("/login", loginThrottle.Middleware(), publicHandler.Login)
			session.POST("/logout", publicHandler.Logout)
		}
	}

	// 健康检查
	r.GET(healthRoute, func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
