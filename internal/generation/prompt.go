// Package generation builds model prompts and turns model output into typed results.
package generation

import (
	"fmt"
	"strings"

	"descriptai/internal/domain"
)

// Sampling parameters used for description generation.
const (
	Temperature = 0.7
	MaxTokens   = 1024
)

const descriptionFormat = `Return this exact JSON format:
{
  "seo": "SEO-optimized description (150-200 words, keyword-rich, informative)",
  "emotional": "Emotionally compelling description (100-150 words, storytelling, persuasive)",
  "short": "Short-form description (30-50 words, punchy, perfect for ads or social media)"
}`

// AnalysisPrompt asks the vision model for product attributes.
const AnalysisPrompt = `Analyze this product image and extract the following details. Return ONLY valid JSON with no extra text.

{
  "productName": "The product name or a descriptive name if brand is not visible",
  "category": "Product category (e.g. Electronics, Fashion, Home & Garden, Beauty, Sports)",
  "features": "Comma-separated list of key visible features, materials, colors, and notable attributes",
  "audience": "Likely target audience based on the product"
}

Be specific and detailed. If you cannot determine something, provide your best guess based on what you see.`

// PromptOptions adjusts the generated prompt.
type PromptOptions struct {
	Voice  *domain.BrandVoice
	Locale string
}

// BuildDescriptionPrompt renders the prompt for one item. The output depends
// only on its inputs.
func BuildDescriptionPrompt(item domain.WorkItem, opts PromptOptions) string {
	item = item.Normalized()
	sb := &strings.Builder{}
	sb.WriteString("Generate 3 product descriptions for the following product. Return ONLY valid JSON with no extra text.\n\n")
	fmt.Fprintf(sb, "Product: %s\n", item.ProductName)
	fmt.Fprintf(sb, "Category: %s\n", orDefault(item.Category, domain.DefaultCategory))
	fmt.Fprintf(sb, "Key Features: %s\n", orDefault(item.Features, domain.DefaultFeatures))
	fmt.Fprintf(sb, "Target Audience: %s\n", orDefault(item.Audience, domain.DefaultAudience))
	fmt.Fprintf(sb, "Tone: %s\n", orDefault(item.Tone, domain.DefaultTone))
	if opts.Voice != nil {
		sb.WriteString(BrandVoiceBlock(*opts.Voice))
		sb.WriteString("\n")
	}
	if lang := languageInstruction(opts.Locale); lang != "" {
		sb.WriteString("\n")
		sb.WriteString(lang)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(descriptionFormat)
	return sb.String()
}

// BrandVoiceBlock renders the brand voice section appended to prompts.
func BrandVoiceBlock(v domain.BrandVoice) string {
	parts := []string{fmt.Sprintf("\n## Brand Voice: %q", v.Name)}
	if adjectives := nonEmpty(v.ToneAdjectives); len(adjectives) > 0 {
		parts = append(parts, "Tone: "+strings.Join(adjectives, ", "))
	}
	if samples := nonEmpty(v.WritingSamples); len(samples) > 0 {
		parts = append(parts, "Match the style of these writing samples:")
		for i, sample := range samples {
			parts = append(parts, fmt.Sprintf("Sample %d: %q", i+1, sample))
		}
	}
	parts = append(parts, "Apply this brand voice consistently across all generated descriptions. "+
		"The tone, vocabulary, and style should closely mirror the provided samples.")
	return strings.Join(parts, "\n")
}

func languageInstruction(locale string) string {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "id":
		return "Write every description in Bahasa Indonesia."
	default:
		return ""
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
