package http

import (
	"github.com/gin-gonic/gin"

	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/logger"
	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/service"
)

type Handler struct {
	svc *service.Service
	log *logger.Logger
}

func NewRouter(svc *service.Service, log *logger.Logger) *gin.Engine {
	h := &Handler{svc: svc, log: log.With("component", "http")}
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	// Challenges
	r.POST("/challenge/create", h.HandleCreate)
	r.POST("/challenge/join", h.HandleJoin)
	r.GET("/challenge/status", h.HandleStatus)
	r.POST("/challenge/cancel", h.HandleCancel)

	// Sweep trigger for the external scheduler; same path the internal
	// ticker takes.
	r.POST("/internal/sweep", h.HandleSweep)

	return r
}
