package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gymbeat/internal/modules/gym"
	"gymbeat/internal/types"
)

type GymHandler struct {
	gyms *gym.Service
}

func NewGymHandler(svc *gym.Service) *GymHandler {
	return &GymHandler{gyms: svc}
}

func (h *GymHandler) Search(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "lat must be a number")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "lng must be a number")
		return
	}
	center, err := types.NewPoint(lat, lng)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	var radiusKm float64
	if raw := c.Query("radius_km"); raw != "" {
		radiusKm, err = strconv.ParseFloat(raw, 64)
		if err != nil || radiusKm <= 0 {
			writeError(c, http.StatusBadRequest, "radius_km must be a positive number")
			return
		}
	}
	var limit int
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	candidates, err := h.gyms.Search(c.Request.Context(), center, radiusKm, limit)
	if err != nil {
		writeCheckinError(c, err)
		return
	}

	items := make([]gin.H, 0, len(candidates))
	for _, cand := range candidates {
		item := gin.H{
			"gym_id":   cand.Gym.ID,
			"name":     cand.Gym.Name,
			"fallback": cand.Fallback,
		}
		if cand.DistanceKnown {
			item["distance_m"] = cand.DistanceMeters
			item["walking_time_min"] = cand.WalkingTimeMinutes
			item["lat"] = cand.Gym.Point.Lat
			item["lng"] = cand.Gym.Point.Lng
		}
		items = append(items, item)
	}
	writeJSON(c, http.StatusOK, gin.H{"gyms": items})
}

func (h *GymHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing gym id")
		return
	}
	g, err := h.gyms.GetByID(c.Request.Context(), types.ID(id))
	if err != nil {
		writeCheckinError(c, err)
		return
	}

	resp := gin.H{
		"gym_id":           g.ID,
		"name":             g.Name,
		"allowed_radius_m": g.AllowedRadiusMeters,
	}
	if g.HasPoint {
		resp["lat"] = g.Point.Lat
		resp["lng"] = g.Point.Lng
	}
	writeJSON(c, http.StatusOK, resp)
}
