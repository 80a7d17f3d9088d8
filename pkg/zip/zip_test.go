package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"
)

func TestArchiveAssets(t *testing.T) {
	modified := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	archive, err := ArchiveAssets([]Asset{
		{Filename: "generated-logo.png", MIME: "image/png", Data: []byte("png")},
		{Filename: "logo-animation.mp4", MIME: "video/mp4", Data: []byte("mp4")},
	}, modified)
	if err != nil {
		t.Fatalf("ArchiveAssets returned error: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("files = %d, want 2", len(zr.File))
	}
	want := map[string]string{"generated-logo.png": "png", "logo-animation.mp4": "mp4"}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		if string(data) != want[f.Name] {
			t.Fatalf("%s = %q, want %q", f.Name, data, want[f.Name])
		}
	}
}

func TestArchiveAssetsRejectsDuplicates(t *testing.T) {
	_, err := ArchiveAssets([]Asset{{Filename: "a"}, {Filename: "a"}}, time.Now())
	if err == nil {
		t.Fatal("expected duplicate filename error")
	}
	if _, err := ArchiveAssets([]Asset{{Filename: ""}}, time.Now()); err == nil {
		t.Fatal("expected empty filename error")
	}
}
