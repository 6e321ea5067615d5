package models

// ChatTurn is one entry of the conversation history, oldest first.
// Parts carries the turn text (the field name mirrors the Gemini API).
type ChatTurn struct {
	Role  string `json:"role" binding:"required"`
	Parts string `json:"parts" binding:"required"`
}

type ChatRequest struct {
	History []ChatTurn `json:"history" binding:"required"`
	Persona string     `json:"persona"`
}

type CouponRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

type ReferralRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	ReferralCode string `json:"referral_code" binding:"required"`
}
