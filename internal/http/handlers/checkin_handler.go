package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gymbeat/internal/config"
	"gymbeat/internal/modules/badge"
	"gymbeat/internal/modules/checkin"
	"gymbeat/internal/modules/position"
	"gymbeat/internal/types"
)

type CheckinHandler struct {
	checkin *checkin.Service
	badges  *badge.Service
	policy  config.CheckinConfig
}

func NewCheckinHandler(checkinSvc *checkin.Service, badgeSvc *badge.Service, policy config.CheckinConfig) *CheckinHandler {
	return &CheckinHandler{checkin: checkinSvc, badges: badgeSvc, policy: policy}
}

// Policy publishes the acquisition and admission knobs so clients sample GPS
// with the same thresholds the server enforces.
func (h *CheckinHandler) Policy(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{
		"required_accuracy_m": h.policy.RequiredAccuracyMeters,
		"max_samples":         h.policy.MaxSamples,
		"acquire_timeout_ms":  h.policy.AcquireTimeout.Milliseconds(),
		"default_radius_m":    h.policy.DefaultAllowedRadiusMeters,
	})
}

type createCheckinReq struct {
	UserID         string  `json:"user_id"`
	GymID          string  `json:"gym_id"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	AccuracyMeters float64 `json:"accuracy_m"`
	CapturedAt     string  `json:"captured_at"` // RFC3339, defaults to now
	CrowdLevel     string  `json:"crowd_level"` // defaults to normal
}

type badgeResp struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Icon   string `json:"icon"`
	Rarity string `json:"rarity"`
}

func (h *CheckinHandler) Create(c *gin.Context) {
	var req createCheckinReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID == "" {
		writeError(c, http.StatusBadRequest, "missing user_id")
		return
	}

	point, err := types.NewPoint(req.Lat, req.Lng)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	capturedAt := time.Now().UTC()
	if req.CapturedAt != "" {
		capturedAt, err = time.Parse(time.RFC3339, req.CapturedAt)
		if err != nil {
			writeError(c, http.StatusBadRequest, "captured_at must be RFC3339")
			return
		}
		capturedAt = capturedAt.UTC()
	}

	crowd := checkin.CrowdLevel(req.CrowdLevel)
	if req.CrowdLevel == "" {
		crowd = checkin.CrowdNormal
	}

	res, err := h.checkin.AttemptCheckin(c.Request.Context(), checkin.AttemptCommand{
		UserID: types.ID(req.UserID),
		GymID:  types.ID(req.GymID),
		Position: position.Sample{
			Point:          point,
			AccuracyMeters: req.AccuracyMeters,
			CapturedAt:     capturedAt,
		},
		CrowdLevel: crowd,
	})
	if err != nil {
		writeCheckinError(c, err)
		return
	}

	badges := make([]badgeResp, 0, len(res.BadgesEarned))
	for _, a := range res.BadgesEarned {
		b, ok := badge.ByCode(a.BadgeCode)
		if !ok {
			continue
		}
		badges = append(badges, badgeResp{
			Code:   b.Code,
			Name:   b.Name,
			Icon:   b.Icon,
			Rarity: string(b.Rarity),
		})
	}

	writeJSON(c, http.StatusCreated, gin.H{
		"checkin_id":    res.CheckinID,
		"gym_id":        res.GymID,
		"counted":       res.Counted,
		"distance_m":    res.Verification.DistanceMeters,
		"max_allowed_m": res.Verification.MaxAllowedMeters,
		"badges_earned": badges,
	})
}

func (h *CheckinHandler) Stats(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		writeError(c, http.StatusBadRequest, "missing user id")
		return
	}
	stats, err := h.checkin.Stats(c.Request.Context(), types.ID(userID))
	if err != nil {
		writeCheckinError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"total_checkins":      stats.TotalCheckins,
		"unique_gyms":         stats.UniqueGymCount,
		"current_streak_days": stats.CurrentStreakDays,
		"this_week_count":     stats.ThisWeekCount,
	})
}

func (h *CheckinHandler) History(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		writeError(c, http.StatusBadRequest, "missing user id")
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.checkin.History(c.Request.Context(), types.ID(userID), limit)
	if err != nil {
		writeCheckinError(c, err)
		return
	}

	items := make([]gin.H, 0, len(records))
	for _, rec := range records {
		items = append(items, gin.H{
			"checkin_id":    rec.ID,
			"gym_id":        rec.GymID,
			"checked_in_at": rec.CheckedInAt.Format(time.RFC3339),
			"local_date":    rec.LocalDate,
			"crowd_level":   rec.CrowdLevel,
			"counted":       rec.Counted,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"checkins": items})
}

func (h *CheckinHandler) Badges(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		writeError(c, http.StatusBadRequest, "missing user id")
		return
	}
	awards, err := h.badges.ListAwards(c.Request.Context(), types.ID(userID))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]gin.H, 0, len(awards))
	for _, a := range awards {
		b, ok := badge.ByCode(a.BadgeCode)
		if !ok {
			continue
		}
		items = append(items, gin.H{
			"code":      b.Code,
			"name":      b.Name,
			"icon":      b.Icon,
			"rarity":    b.Rarity,
			"earned_at": a.EarnedAt.Format(time.RFC3339),
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"badges": items})
}
