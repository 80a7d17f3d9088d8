// Package present turns generation results into displayable and
// downloadable artifacts. It never talks to the network.
package present

import (
	"context"
	"errors"
	"fmt"
	"time"

	"logomotion/internal/domain"
	"logomotion/internal/storage"
	"logomotion/pkg/zip"
)

const (
	LogoFilename   = "generated-logo.png"
	VideoFilename  = "logo-animation.mp4"
	BundleFilename = "logomotion.zip"
)

// Artifact is a file ready to be offered for download.
type Artifact struct {
	Filename  string
	MediaType string
	Data      []byte
}

// DataURI renders the logo for direct display.
func DataURI(logo domain.LogoResult) string {
	mediaType := logo.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}
	return "data:" + mediaType + ";base64," + logo.ImageData
}

// LogoArtifact decodes the logo into a downloadable file.
func LogoArtifact(logo domain.LogoResult) (Artifact, error) {
	if logo.Empty() {
		return Artifact{}, domain.ErrNoLogo
	}
	data, err := logo.Bytes()
	if err != nil {
		return Artifact{}, err
	}
	mediaType := logo.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}
	return Artifact{Filename: LogoFilename, MediaType: mediaType, Data: data}, nil
}

// VideoArtifact loads the bytes behind a video handle.
func VideoArtifact(ctx context.Context, blobs storage.BlobStore, video domain.VideoResult) (Artifact, error) {
	if video.Handle == "" {
		return Artifact{}, fmt.Errorf("video: %w", domain.ErrNotFound)
	}
	data, mediaType, err := blobs.Get(ctx, video.Handle)
	if err != nil {
		return Artifact{}, err
	}
	if video.MediaType != "" {
		mediaType = video.MediaType
	}
	return Artifact{Filename: VideoFilename, MediaType: mediaType, Data: data}, nil
}

// Bundle packs artifacts into a single zip archive.
func Bundle(artifacts ...Artifact) ([]byte, error) {
	if len(artifacts) == 0 {
		return nil, errors.New("present: nothing to bundle")
	}
	assets := make([]zip.Asset, 0, len(artifacts))
	for _, a := range artifacts {
		assets = append(assets, zip.Asset{Filename: a.Filename, MIME: a.MediaType, Data: a.Data})
	}
	return zip.ArchiveAssets(assets, time.Now())
}
