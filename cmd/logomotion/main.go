package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"logomotion/internal/bootstrap"
	"logomotion/internal/credentials"
	"logomotion/internal/domain"
	"logomotion/internal/infra"
	"logomotion/internal/present"
	"logomotion/internal/session"
)

func main() {
	var (
		promptFlag string
		sizeFlag   string
		styleFlag  string
		aspectFlag string
		outFlag    string
		logoOnly   bool
		bundle     bool
	)
	flag.StringVar(&promptFlag, "prompt", "", "Describe the brand or company (required)")
	flag.StringVar(&sizeFlag, "size", "1K", "Logo resolution: 1K, 2K or 4K")
	flag.StringVar(&styleFlag, "style", "", "Optional animation style, e.g. \"slow zoom with sparkles\"")
	flag.StringVar(&aspectFlag, "aspect", "16:9", "Video aspect ratio: 16:9 or 9:16")
	flag.StringVar(&outFlag, "out", ".", "Directory for the generated files")
	flag.BoolVar(&logoOnly, "logo-only", false, "Stop after generating the logo")
	flag.BoolVar(&bundle, "bundle", false, "Also write a zip with every generated file")
	flag.Parse()

	if err := run(promptFlag, sizeFlag, styleFlag, aspectFlag, outFlag, logoOnly, bundle); err != nil {
		fmt.Fprintf(os.Stderr, "logomotion: %s\n", session.Message(err))
		os.Exit(1)
	}
}

func run(prompt, size, style, aspectRaw, out string, logoOnly, bundle bool) error {
	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "logomotion").Logger()

	tier, err := domain.ParseResolutionTier(size)
	if err != nil {
		return err
	}
	aspect, err := domain.ParseAspectRatio(aspectRaw)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := bootstrap.Build(ctx, cfg, &logger, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer comps.Close()

	prompter := credentials.TerminalPrompter{In: os.Stdin, Out: os.Stderr}
	if comps.Gate.Check(ctx) != credentials.StateReady {
		if err := comps.Gate.Select(ctx, prompter); err != nil {
			return err
		}
	}

	flow := session.NewCoordinator("cli", comps.SessionDeps(&logger))
	defer flow.Close()

	logo, err := withReselect(ctx, comps.Gate, prompter, func() (domain.LogoResult, error) {
		return flow.GenerateLogo(ctx, domain.GenerationRequest{Prompt: prompt, Tier: tier})
	})
	if err != nil {
		return err
	}
	logoArt, err := present.LogoArtifact(logo)
	if err != nil {
		return err
	}
	if err := writeArtifact(out, logoArt); err != nil {
		return err
	}
	artifacts := []present.Artifact{logoArt}

	if !logoOnly {
		fmt.Fprintln(os.Stderr, "Animating the logo. Video generation usually takes a few minutes.")
		video, err := withReselect(ctx, comps.Gate, prompter, func() (domain.VideoResult, error) {
			return flow.Animate(ctx, style, aspect)
		})
		if err != nil {
			return err
		}
		videoArt, err := present.VideoArtifact(ctx, comps.Blobs, video)
		if err != nil {
			return err
		}
		if err := writeArtifact(out, videoArt); err != nil {
			return err
		}
		artifacts = append(artifacts, videoArt)
	}

	if bundle {
		archive, err := present.Bundle(artifacts...)
		if err != nil {
			return err
		}
		if err := writeArtifact(out, present.Artifact{Filename: present.BundleFilename, Data: archive}); err != nil {
			return err
		}
	}
	return nil
}

// withReselect runs step once more after the user picks a new key when the
// provider rejected the current one.
func withReselect[T any](ctx context.Context, gate *credentials.Gate, prompter credentials.Prompter, step func() (T, error)) (T, error) {
	result, err := step()
	if !errors.Is(err, domain.ErrCredentialExpired) {
		return result, err
	}
	fmt.Fprintln(os.Stderr, session.Message(err))
	if selErr := gate.Select(ctx, prompter); selErr != nil {
		return result, selErr
	}
	return step()
}

func writeArtifact(dir string, art present.Artifact) error {
	path := filepath.Join(dir, art.Filename)
	if err := os.WriteFile(path, art.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", art.Filename, err)
	}
	fmt.Println(path)
	return nil
}
