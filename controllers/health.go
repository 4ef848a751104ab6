package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db pinger
}

func NewHealthController(db pinger) *HealthController {
	return &HealthController{db: db}
}

// Health always answers 200; the database field tells whether MongoDB responds.
func (h *HealthController) Health(c *gin.Context) {
	database := "connected"
	if h.db == nil || h.db.Ping(c.Request.Context()) != nil {
		database = "disconnected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  database,
	})
}
