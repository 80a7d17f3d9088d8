package domain

import (
	"fmt"
	"strings"
)

const defaultAnimationPrompt = "Cinematic camera movement, bring this logo to life with elegant motion effects, high quality, 4k."

// LogoPrompt wraps the user description with instructions that bias the model
// towards a clean square logo that animates well.
func LogoPrompt(description string) string {
	return fmt.Sprintf("Design a professional, modern, and minimalist logo based on this description: %s. The logo should be on a clean background suitable for animation.", strings.TrimSpace(description))
}

// AnimationPrompt returns the prompt sent with an animation job. An empty
// style falls back to generic cinematic motion.
func AnimationPrompt(style string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		return defaultAnimationPrompt
	}
	return "Cinematic motion: " + style
}
