package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forPelevin/vertcut/internal/domain/crop"
	"github.com/forPelevin/vertcut/internal/logging"
	"github.com/forPelevin/vertcut/internal/pipeline"
	"github.com/forPelevin/vertcut/internal/types"
)

func run(cmd *cobra.Command, input string) error {
	clipsFile, _ := cmd.Flags().GetString("clips")
	outDir, _ := cmd.Flags().GetString("out")
	portrait, _ := cmd.Flags().GetBool("portrait")
	activeSpeaker, _ := cmd.Flags().GetBool("active-speaker")
	transcript, _ := cmd.Flags().GetString("transcript")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jitter, _ := cmd.Flags().GetFloat64("jitter")
	minSegment, _ := cmd.Flags().GetFloat64("min-segment")

	log := logging.New(verbose)

	clips, err := loadClips(clipsFile)
	if err != nil {
		return fmt.Errorf("clips: %w", err)
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	// Ctrl-C terminates the in-flight ffmpeg/analyzer process and stops the
	// batch; partial output for the interrupted clip is left in place.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tun := crop.DefaultTunables()
	tun.JitterFactor = jitter
	tun.MinSegmentSec = minSegment

	cfg := pipeline.Config{
		InputPath: absIn,
		OutDir:    outDir,
		Clips:     clips,

		PortraitCrop:      portrait || activeSpeaker,
		ActiveSpeakerCrop: activeSpeaker,
		TranscriptPath:    transcript,

		FFmpegPath:  getenvDefault("VERTCUT_FFMPEG", "ffmpeg"),
		FFprobePath: getenvDefault("VERTCUT_FFPROBE", "ffprobe"),
		AnalyzerBin: os.Getenv("VERTCUT_ANALYZER"),
		CascadePath: os.Getenv("VERTCUT_CASCADE"),

		Tunables: tun,
		Log:      log,
		OnProgress: func(p types.Progress) {
			log.Info().Int("current", p.Current).Int("total", p.Total).Str("title", p.Title).Msg("processing clip")
		},
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}

	failed := 0
	for _, c := range res.Clips {
		if !c.Success {
			failed++
		}
	}
	log.Info().Int("clips", len(res.Clips)).Int("failed", failed).Str("dir", res.ClipsDir).Msg("done")
	return nil
}

func loadClips(path string) ([]types.ClipSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var clips []types.ClipSpec
	if err := json.Unmarshal(b, &clips); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return clips, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
