package domain

import "time"

// Descriptions are the three copy variants produced for one product.
type Descriptions struct {
	SEO       string `json:"seo"`
	Emotional string `json:"emotional"`
	Short     string `json:"short"`
}

// Complete reports whether every variant is present.
func (d Descriptions) Complete() bool {
	return d.SEO != "" && d.Emotional != "" && d.Short != ""
}

// Artifact is a persisted generation result. It is never mutated once stored.
type Artifact struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	JobID          string       `json:"job_id,omitempty"`
	ItemIndex      int          `json:"item_index"`
	Item           WorkItem     `json:"item"`
	Descriptions   Descriptions `json:"descriptions"`
	SourceImageKey string       `json:"source_image_key,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}
