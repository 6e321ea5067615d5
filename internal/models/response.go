package models

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ImageResponse struct {
	Image string `json:"image"`
}

type VideoResponse struct {
	Video string `json:"video"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type CouponResponse struct {
	Message string `json:"message"`
}

type ReferralResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type WebhookResponse struct {
	Status string `json:"status"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
