package domain

import "strings"

// Prompt defaults applied to missing item attributes.
const (
	DefaultCategory    = "General"
	DefaultFeatures    = "N/A"
	DefaultAudience    = "General consumers"
	DefaultTone        = "Professional"
	DefaultProductName = "Unknown Product"
	storedDefaultTone  = "professional"
)

// WorkItem holds the attributes of a single product in a text job.
type WorkItem struct {
	ProductName string `json:"productName" validate:"required,max=200"`
	Category    string `json:"category,omitempty" validate:"max=120"`
	Features    string `json:"features,omitempty" validate:"max=2000"`
	Audience    string `json:"audience,omitempty" validate:"max=200"`
	Tone        string `json:"tone,omitempty" validate:"max=60"`
}

// Normalized trims every attribute.
func (w WorkItem) Normalized() WorkItem {
	return WorkItem{
		ProductName: strings.TrimSpace(w.ProductName),
		Category:    strings.TrimSpace(w.Category),
		Features:    strings.TrimSpace(w.Features),
		Audience:    strings.TrimSpace(w.Audience),
		Tone:        strings.TrimSpace(w.Tone),
	}
}

// StoredTone is the tone persisted with an artifact.
func (w WorkItem) StoredTone() string {
	if t := strings.TrimSpace(w.Tone); t != "" {
		return t
	}
	return storedDefaultTone
}

// ExtractedAttributes is what image analysis recovers from a product photo.
type ExtractedAttributes struct {
	ProductName string `json:"productName"`
	Category    string `json:"category"`
	Features    string `json:"features"`
	Audience    string `json:"audience"`
}

// WithDefaults fills empty fields the same way the text prompt does.
func (e ExtractedAttributes) WithDefaults() ExtractedAttributes {
	return ExtractedAttributes{
		ProductName: firstNonEmpty(e.ProductName, DefaultProductName),
		Category:    firstNonEmpty(e.Category, DefaultCategory),
		Features:    firstNonEmpty(e.Features, DefaultFeatures),
		Audience:    firstNonEmpty(e.Audience, DefaultAudience),
	}
}

// WorkItem converts extracted attributes into a generation input with the
// professional tone used for image jobs.
func (e ExtractedAttributes) WorkItem() WorkItem {
	return WorkItem{
		ProductName: e.ProductName,
		Category:    e.Category,
		Features:    e.Features,
		Audience:    e.Audience,
		Tone:        DefaultTone,
	}
}

// ImageInput is the raw upload for one image job item.
type ImageInput struct {
	Filename string
	MimeType string
	Data     []byte
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
