package image

import "context"

// Request describes a single image generation call.
type Request struct {
	Model       string
	Prompt      string
	ImageSize   string
	AspectRatio string
}

// InlineImage is one inline image part of a response. Data stays base64
// encoded as received.
type InlineImage struct {
	Data     string
	MIMEType string
}

// Response lists the inline image parts in the order the provider returned
// them. Text parts are not kept.
type Response struct {
	Images []InlineImage
}

// Generator is the contract implemented by image providers.
type Generator interface {
	GenerateImage(ctx context.Context, req Request) (*Response, error)
}
