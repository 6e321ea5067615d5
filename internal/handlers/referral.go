package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"nastia-backend/internal/models"
	"nastia-backend/internal/referral"
)

type ReferralTracker interface {
	TrackReferral(ctx context.Context, userID, code string) referral.Result
}

type ReferralHandler struct {
	tracker ReferralTracker
}

func NewReferralHandler(tracker ReferralTracker) *ReferralHandler {
	return &ReferralHandler{tracker: tracker}
}

// Track godoc
// @Summary     Claim a referral code
// @Description One-shot referral claim: credits the code owner and flags the referred user. Outcomes are reported as a status value, always with HTTP 200.
// @Tags        billing
// @Accept      json
// @Produce     json
// @Param       request body models.ReferralRequest true "User id and referral code"
// @Success     200 {object} models.ReferralResponse
// @Router      /track-referral [post]
func (h *ReferralHandler) Track(c *gin.Context) {
	var req models.ReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, models.ReferralResponse{
			Status:  referral.StatusError,
			Message: "invalid request body",
		})
		return
	}

	result := h.tracker.TrackReferral(c.Request.Context(), req.UserID, req.ReferralCode)
	c.JSON(http.StatusOK, models.ReferralResponse{
		Status:  result.Status,
		Message: result.Message,
	})
}
