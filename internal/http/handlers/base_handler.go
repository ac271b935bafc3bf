// Package handlers holds the HTTP request handlers and their JSON shapes.
package handlers

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"gymbeat/internal/modules/checkin"
	"gymbeat/internal/modules/gym"
	"gymbeat/internal/modules/position"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeCheckinError maps domain errors to HTTP statuses. An out-of-range
// rejection carries the measured numbers so the client can show the user how
// far off they are.
func writeCheckinError(c *gin.Context, err error) {
	var oor *checkin.OutOfRangeError
	switch {
	case errors.As(err, &oor):
		resp := gin.H{
			"error":         "too far from gym",
			"max_allowed_m": oor.MaxAllowedMeters,
		}
		// Distance is NaN when the gym has no recorded coordinates.
		if !math.IsNaN(oor.DistanceMeters) {
			resp["distance_m"] = oor.DistanceMeters
		}
		writeJSON(c, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, position.ErrAccuracyUnattainable):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, checkin.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, gym.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, gym.ErrSearchUnavailable):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
