package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"logomotion/internal/domain"
	"logomotion/internal/present"
	"logomotion/internal/session"
)

type logoView struct {
	DataURI     string `json:"data_uri"`
	MediaType   string `json:"media_type"`
	DownloadURL string `json:"download_url"`
}

type videoView struct {
	MediaType   string `json:"media_type"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

type sessionResponse struct {
	ID        string               `json:"id"`
	Step      session.Step         `json:"step"`
	Busy      bool                 `json:"busy"`
	Phase     session.Phase        `json:"phase"`
	Error     string               `json:"error,omitempty"`
	Logo      *logoView            `json:"logo,omitempty"`
	Video     *videoView           `json:"video,omitempty"`
	Job       *domain.AnimationJob `json:"job,omitempty"`
	BundleURL string               `json:"bundle_url,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type logoRequest struct {
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
}

type animationRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

func sessionView(snap session.Snapshot) sessionResponse {
	base := "/v1/sessions/" + snap.ID
	resp := sessionResponse{
		ID:        snap.ID,
		Step:      snap.Step,
		Busy:      snap.Busy,
		Phase:     snap.Phase,
		Error:     snap.Error,
		Job:       snap.Job,
		UpdatedAt: snap.UpdatedAt,
	}
	if snap.Logo != nil {
		resp.Logo = &logoView{
			DataURI:     present.DataURI(*snap.Logo),
			MediaType:   snap.Logo.MediaType,
			DownloadURL: base + "/logo/download",
		}
		resp.BundleURL = base + "/bundle"
	}
	if snap.Video != nil {
		resp.Video = &videoView{
			MediaType:   snap.Video.MediaType,
			Size:        snap.Video.Size,
			DownloadURL: base + "/video",
		}
	}
	return resp
}

func (a *App) session(w http.ResponseWriter, r *http.Request) (*session.Coordinator, bool) {
	c, err := a.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return c, true
}

func (a *App) SessionCreate(w http.ResponseWriter, r *http.Request) {
	c := a.Sessions.Create()
	w.Header().Set("Location", "/v1/sessions/"+c.ID())
	a.json(w, http.StatusCreated, sessionView(c.Snapshot()))
}

func (a *App) SessionGet(w http.ResponseWriter, r *http.Request) {
	c, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, sessionView(c.Snapshot()))
}

func (a *App) SessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Delete(chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoGenerate runs step 1 and answers once the logo is ready.
func (a *App) LogoGenerate(w http.ResponseWriter, r *http.Request) {
	c, ok := a.session(w, r)
	if !ok {
		return
	}
	var req logoRequest
	if !a.decode(w, r, &req) {
		return
	}
	tier, err := domain.ParseResolutionTier(req.Size)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := c.GenerateLogo(r.Context(), domain.GenerationRequest{Prompt: req.Prompt, Tier: tier}); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, sessionView(c.Snapshot()))
}

func (a *App) LogoDiscard(w http.ResponseWriter, r *http.Request) {
	c, ok := a.session(w, r)
	if !ok {
		return
	}
	c.DiscardLogo()
	a.json(w, http.StatusOK, sessionView(c.Snapshot()))
}

func (a *App) LogoDownload(w http.ResponseWriter, r *http.Request) {
	c, ok := a.session(w, r)
	if !ok {
		return
	}
	snap := c.Snapshot()
	if snap.Logo == nil {
		a.error(w, r, http.StatusNotFound, codeNotFound, "no logo generated")
		return
	}
	art, err := present.LogoArtifact(*snap.Logo)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.attachment(w, r, art, snap.UpdatedAt)
}

// AnimationStart runs step 2 in the background. Clients follow progress
// through SessionGet.
func (a *App) AnimationStart(w http.ResponseWriter, r *http.Request) {
	c, ok := a.session(w, r)
	if !ok {
		return
	}
	var req animationRequest
	if !a.decode(w, r, &req) {
		return
	}
	aspect, err := domain.ParseAspectRatio(req.AspectRatio)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := c.StartAnimation(req.Prompt, aspect); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, sessionView(c.Snapshot()))
}

func (a *App) VideoDiscard(w http.ResponseWriter, r *http.Request) {
	c, ok := a.session(w, r)
	if !ok {
		return
	}
	c.DiscardVideo()
	a.json(w, http.StatusOK, sessionView(c.Snapshot()))
}

func (a *App) VideoDownload(w http.ResponseWriter, r *http.Request) {
	c, ok := a.session(w, r)
	if !ok {
		return
	}
	snap := c.Snapshot()
	if snap.Video == nil {
		a.error(w, r, http.StatusNotFound, codeNotFound, "no video generated")
		return
	}
	art, err := present.VideoArtifact(r.Context(), a.Blobs, *snap.Video)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.attachment(w, r, art, snap.UpdatedAt)
}

// Bundle returns a zip with the logo and, when present, the video.
func (a *App) Bundle(w http.ResponseWriter, r *http.Request) {
	c, ok := a.session(w, r)
	if !ok {
		return
	}
	snap := c.Snapshot()
	if snap.Logo == nil {
		a.error(w, r, http.StatusNotFound, codeNotFound, "no logo generated")
		return
	}
	logo, err := present.LogoArtifact(*snap.Logo)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	artifacts := []present.Artifact{logo}
	if snap.Video != nil {
		video, err := present.VideoArtifact(r.Context(), a.Blobs, *snap.Video)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		artifacts = append(artifacts, video)
	}
	archive, err := present.Bundle(artifacts...)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.attachment(w, r, present.Artifact{
		Filename:  present.BundleFilename,
		MediaType: "application/zip",
		Data:      archive,
	}, snap.UpdatedAt)
}

func (a *App) attachment(w http.ResponseWriter, r *http.Request, art present.Artifact, modified time.Time) {
	w.Header().Set("Content-Type", art.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	http.ServeContent(w, r, art.Filename, modified, bytes.NewReader(art.Data))
}
