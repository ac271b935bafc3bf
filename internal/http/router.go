// Package http is the API gateway; it registers routes and delegates to
// module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gymbeat/internal/config"
	"gymbeat/internal/http/handlers"
	"gymbeat/internal/http/middleware"
	"gymbeat/internal/modules/badge"
	"gymbeat/internal/modules/checkin"
	"gymbeat/internal/modules/gym"
)

type RouterDeps struct {
	Checkin *checkin.Service
	Gyms    *gym.Service
	Badges  *badge.Service
	Policy  config.CheckinConfig
	Log     *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.Logging(deps.Log))
	r.Use(middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.Auth())

	checkinHandler := handlers.NewCheckinHandler(deps.Checkin, deps.Badges, deps.Policy)
	api.POST("/checkins", checkinHandler.Create)
	api.GET("/checkins/policy", checkinHandler.Policy)
	api.GET("/users/:id/stats", checkinHandler.Stats)
	api.GET("/users/:id/checkins", checkinHandler.History)
	api.GET("/users/:id/badges", checkinHandler.Badges)

	gymHandler := handlers.NewGymHandler(deps.Gyms)
	api.GET("/gyms/search", gymHandler.Search)
	api.GET("/gyms/:id", gymHandler.Get)

	return r
}
