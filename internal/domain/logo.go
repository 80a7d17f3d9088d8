package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// ResolutionTier selects the output resolution of a generated logo. The
// aspect ratio is always square.
type ResolutionTier string

const (
	Tier1K ResolutionTier = "1K"
	Tier2K ResolutionTier = "2K"
	Tier4K ResolutionTier = "4K"
)

// ResolutionTiers lists the supported tiers from lowest to highest.
var ResolutionTiers = []ResolutionTier{Tier1K, Tier2K, Tier4K}

// ParseResolutionTier accepts the wire names (1K, 2K, 4K) and the
// low/medium/high aliases. An empty value selects 1K.
func ParseResolutionTier(raw string) (ResolutionTier, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "1k", "low":
		return Tier1K, nil
	case "2k", "medium":
		return Tier2K, nil
	case "4k", "high":
		return Tier4K, nil
	default:
		return "", fmt.Errorf("%w: resolution tier %q", ErrUnsupportedOption, raw)
	}
}

// GenerationRequest is a single logo submission.
type GenerationRequest struct {
	Prompt string
	Tier   ResolutionTier
}

// LogoResult is the generated logo as base64 text plus its media type.
type LogoResult struct {
	ImageData string `json:"image_data"`
	MediaType string `json:"media_type"`
}

// Empty reports whether the result carries no image.
func (l LogoResult) Empty() bool {
	return l.ImageData == ""
}

// Bytes decodes the base64 payload.
func (l LogoResult) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(l.ImageData)
	if err != nil {
		return nil, fmt.Errorf("decode logo data: %w", err)
	}
	return data, nil
}
