package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nastia-backend/internal/models"
)

// StatusHandler godoc
// @Summary     Service status
// @Description Returns the service banner.
// @Tags        health
// @Produce     json
// @Success     200 {object} models.StatusResponse
// @Router      / [get]
func StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{Status: "NastIA Studio online"})
}

// HealthHandler godoc
// @Summary     Health check
// @Description Returns the health status of the API
// @Tags        health
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Router      /health [get]
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{Status: "ok"})
}
