package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nastia-backend/internal/models"
)

type CouponRedeemer interface {
	RedeemCoupon(userID, code string) error
}

type CouponHandler struct {
	redeemer CouponRedeemer
}

func NewCouponHandler(redeemer CouponRedeemer) *CouponHandler {
	return &CouponHandler{redeemer: redeemer}
}

// Redeem godoc
// @Summary     Redeem a coupon code
// @Description Applies a coupon to the user's account via the redeem_coupon database function.
// @Tags        billing
// @Accept      json
// @Produce     json
// @Param       request body models.CouponRequest true "User id and coupon code"
// @Success     200 {object} models.CouponResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /redeem-coupon [post]
func (h *CouponHandler) Redeem(c *gin.Context) {
	var req models.CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	if err := h.redeemer.RedeemCoupon(req.UserID, req.Code); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "coupon rejected"})
		return
	}

	c.JSON(http.StatusOK, models.CouponResponse{Message: "Sucesso!"})
}
