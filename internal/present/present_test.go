package present

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"logomotion/internal/domain"
	"logomotion/internal/storage"
)

func TestDataURI(t *testing.T) {
	got := DataURI(domain.LogoResult{ImageData: "AAAA", MediaType: "image/jpeg"})
	if got != "data:image/jpeg;base64,AAAA" {
		t.Fatalf("DataURI = %q", got)
	}
	if got := DataURI(domain.LogoResult{ImageData: "AAAA"}); got != "data:image/png;base64,AAAA" {
		t.Fatalf("DataURI default = %q", got)
	}
}

func TestLogoArtifact(t *testing.T) {
	art, err := LogoArtifact(domain.LogoResult{ImageData: "cG5n", MediaType: "image/png"})
	if err != nil {
		t.Fatalf("LogoArtifact returned error: %v", err)
	}
	if art.Filename != "generated-logo.png" || string(art.Data) != "png" {
		t.Fatalf("artifact = %+v", art)
	}
	if _, err := LogoArtifact(domain.LogoResult{}); !errors.Is(err, domain.ErrNoLogo) {
		t.Fatalf("expected ErrNoLogo, got %v", err)
	}
}

func TestVideoArtifact(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewMemoryStore()
	handle, err := blobs.Put(ctx, "videos", []byte("mp4"), "video/mp4")
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	art, err := VideoArtifact(ctx, blobs, domain.VideoResult{Handle: handle, MediaType: "video/mp4", Size: 3})
	if err != nil {
		t.Fatalf("VideoArtifact returned error: %v", err)
	}
	if art.Filename != "logo-animation.mp4" || string(art.Data) != "mp4" || art.MediaType != "video/mp4" {
		t.Fatalf("artifact = %+v", art)
	}

	if _, err := VideoArtifact(ctx, blobs, domain.VideoResult{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty handle, got %v", err)
	}
	if _, err := VideoArtifact(ctx, blobs, domain.VideoResult{Handle: "videos/missing.mp4"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing blob, got %v", err)
	}
}

func TestBundle(t *testing.T) {
	archive, err := Bundle(
		Artifact{Filename: LogoFilename, MediaType: "image/png", Data: []byte("png")},
		Artifact{Filename: VideoFilename, MediaType: "video/mp4", Data: []byte("mp4")},
	)
	if err != nil {
		t.Fatalf("Bundle returned error: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != LogoFilename || zr.File[1].Name != VideoFilename {
		t.Fatalf("archive entries = %v", zr.File)
	}
	if _, err := Bundle(); err == nil {
		t.Fatal("expected error for empty bundle")
	}
}
