// internal/server/router.go

// Package server wires the HTTP surface: intake endpoints, tracking event
// ingestion, the admin dashboard API, the forwarding proxies, and the
// operational endpoints.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
)

func NewRouter(handler *Handler, proxy *Proxy, recorder RequestRecorder, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoMethod(MethodNotAllowed)

	router.Use(RequestID(), RequestLogger(recorder, log), Recovery(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		sessions := api.Group("/intake/sessions")
		{
			sessions.POST("", handler.StartSession)
			sessions.GET("/:id", handler.GetDraft)
			sessions.PATCH("/:id/fields", handler.UpdateFields)
			sessions.POST("/:id/advance", handler.Advance)
			sessions.POST("/:id/back", handler.Back)
			sessions.POST("/:id/documents", handler.AttachDocument)
			sessions.POST("/:id/medical", handler.SubmitMedicalInfo)
			sessions.POST("/:id/credit-evaluation", handler.EvaluateCredit)
			sessions.GET("/:id/scores", handler.Scores)
			sessions.POST("/:id/submit", handler.Submit)
		}

		api.POST("/tracking/events", handler.TrackEvent)

		adminGroup := api.Group("/admin")
		{
			adminGroup.GET("/applications", handler.ListApplications)
			adminGroup.GET("/applications/search", handler.SearchApplications)
			adminGroup.GET("/applications/:id", handler.GetApplication)
			adminGroup.PUT("/applications/:id/status", handler.UpdateStatus)
			adminGroup.GET("/sessions/live", handler.LiveSessions)
		}
	}

	router.POST("/proxy/image-processing", proxy.ImageProcessing)
	router.POST("/proxy/passthrough", proxy.Passthrough)
	router.POST("/proxy/echo", proxy.Echo)

	return router
}
