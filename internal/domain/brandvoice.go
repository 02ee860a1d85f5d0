package domain

import "time"

// BrandVoice is a reusable style profile appended to generation prompts.
type BrandVoice struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	ToneAdjectives []string  `json:"tone_adjectives"`
	WritingSamples []string  `json:"writing_samples"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
