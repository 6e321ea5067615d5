package models

import "time"

// Media kinds recorded in the generations table.
const (
	KindImage = "image"
	KindVideo = "video"
)

// Generation is an append-only history row, written once per successful
// generation and never read back by this service.
type Generation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	URL       string    `json:"url"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}
