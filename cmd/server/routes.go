package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"tip-chain.backend/internal/interfaces/http/handlers"
	"tip-chain.backend/internal/interfaces/http/middleware"
)

const (
	serviceName    = "tipchain-indexer"
	serviceVersion = "0.1.0"
)

type routeDeps struct {
	indexerHandler *handlers.IndexerHandler
	creatorHandler *handlers.CreatorHandler
	relayAuth      gin.HandlerFunc
	idempotency    gin.HandlerFunc
	metrics        http.Handler
}

func newRouter(d routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	if d.metrics != nil {
		r.GET("/metrics", gin.WrapH(d.metrics))
	}
	registerAPIV1Routes(r, d)
	return r
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, Idempotency-Key, X-Request-ID")
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
			"version": serviceVersion,
		})
	})
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	relayAuth := d.relayAuth
	if relayAuth == nil {
		relayAuth = middleware.RelayAuthMiddleware(nil)
	}
	idempotency := d.idempotency
	if idempotency == nil {
		idempotency = middleware.IdempotencyMiddleware(nil)
	}

	v1 := r.Group("/api/v1")
	{
		// Indexer routes (relay auth)
		indexer := v1.Group("/indexer")
		indexer.Use(relayAuth)
		{
			indexer.POST("/events", idempotency, d.indexerHandler.HandleEvent)
			indexer.POST("/sync", d.indexerHandler.TriggerSync)
			indexer.POST("/profiles/:address/sync", d.indexerHandler.SyncProfile)
		}

		// Read routes (public)
		creators := v1.Group("/creators")
		{
			creators.GET("/:address", d.creatorHandler.GetCreator)
			creators.GET("/:address/tips", d.creatorHandler.GetCreatorTips)
		}
		v1.GET("/leaderboard", d.creatorHandler.Leaderboard)
		v1.GET("/stats", d.creatorHandler.Stats)
		v1.GET("/tips", d.creatorHandler.RecentTips)
	}
}
