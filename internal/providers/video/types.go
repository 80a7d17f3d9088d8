package video

import "context"

// Request describes an image-to-video job submission.
type Request struct {
	Model          string
	Prompt         string
	Image          []byte
	ImageMIMEType  string
	AspectRatio    string
	Resolution     string
	NumberOfVideos int
}

// OperationError is the error payload of a finished operation.
type OperationError struct {
	Code    int
	Status  string
	Message string
}

// Operation is the provider-neutral view of a long-running video job.
type Operation struct {
	Name      string
	Done      bool
	Error     *OperationError
	VideoURIs []string
}

// Generator starts video jobs, refreshes their status and fetches the
// resulting bytes.
type Generator interface {
	StartVideo(ctx context.Context, req Request) (*Operation, error)
	PollVideo(ctx context.Context, op *Operation) (*Operation, error)
	DownloadVideo(ctx context.Context, uri string) ([]byte, string, error)
}
