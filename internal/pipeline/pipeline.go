package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/forPelevin/vertcut/internal/domain/crop"
	"github.com/forPelevin/vertcut/internal/domain/refine"
	"github.com/forPelevin/vertcut/internal/ports"
	"github.com/forPelevin/vertcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/vertcut/internal/ports/adapters/mediapipe"
	"github.com/forPelevin/vertcut/internal/ports/adapters/pigodet"
	"github.com/forPelevin/vertcut/internal/types"
	"github.com/forPelevin/vertcut/internal/usecase"
)

type Config struct {
	InputPath string
	OutDir    string
	Clips     []types.ClipSpec

	PortraitCrop      bool
	ActiveSpeakerCrop bool

	// TranscriptPath optionally points at the upstream ASR JSON; when set,
	// clip windows are refined against it before extraction.
	TranscriptPath string

	FFmpegPath  string
	FFprobePath string
	AnalyzerBin string
	CascadePath string

	Tunables crop.Tunables

	Log        zerolog.Logger
	OnProgress func(types.Progress)
}

func (c Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.InputPath); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if len(c.Clips) == 0 {
		return errors.New("no clips requested")
	}
	for i, cs := range c.Clips {
		if cs.EndSec <= cs.StartSec {
			return fmt.Errorf("clip %d (%q): end %.2f must be after start %.2f", i, cs.Title, cs.EndSec, cs.StartSec)
		}
	}
	if c.PortraitCrop && c.AnalyzerBin == "" {
		return errors.New("analyzer binary is required for portrait crop (set VERTCUT_ANALYZER)")
	}
	return nil
}

type Result struct {
	ClipsDir string             `json:"clips_dir"`
	Clips    []types.ClipResult `json:"clips"`
}

// Run wires the adapters and drives a full clipping run. It returns an
// error only when the probe or output directory setup fails; individual
// clip failures are reported inside the result.
func Run(ctx context.Context, cfg Config) (Result, error) {
	log := cfg.Log

	clips := cfg.Clips
	if cfg.TranscriptPath != "" {
		tr, err := loadTranscript(cfg.TranscriptPath)
		if err != nil {
			return Result{}, fmt.Errorf("transcript: %w", err)
		}
		before := len(clips)
		clips = refine.Clips(clips, tr, refine.DefaultOptions())
		log.Info().Int("requested", before).Int("refined", len(clips)).Msg("clip windows refined")
	}

	runDir := buildRunOutDir(cfg.OutDir, cfg.InputPath, time.Now().UTC())
	clipsDir := filepath.Join(runDir, "clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return Result{}, err
	}
	log.Info().Str("dir", clipsDir).Msg("output directory ready")

	video := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath, log)
	deps := usecase.Deps{
		Video:    video,
		Analyzer: mediapipe.New(cfg.AnalyzerBin, log),
		Log:      log,
	}
	if cfg.CascadePath != "" {
		deps.Detector = pigodet.New(cfg.CascadePath, log)
	}

	tun := cfg.Tunables
	if tun == (crop.Tunables{}) {
		tun = crop.DefaultTunables()
	}

	uc := usecase.New(deps, tun)
	res, err := uc.Run(ctx, usecase.Input{
		InputPath:         cfg.InputPath,
		ClipsDir:          clipsDir,
		Clips:             clips,
		PortraitCrop:      cfg.PortraitCrop,
		ActiveSpeakerCrop: cfg.ActiveSpeakerCrop,
		OnProgress:        cfg.OnProgress,
	})
	if err != nil {
		return Result{ClipsDir: clipsDir, Clips: res.Clips}, err
	}

	out := Result{ClipsDir: clipsDir, Clips: res.Clips}
	if err := writeManifest(runDir, out); err != nil {
		return out, err
	}
	for _, cr := range out.Clips {
		ev := log.Info()
		if !cr.Success {
			ev = log.Error().Str("error", cr.Error)
		}
		ev.Str("clip", cr.Title).Bool("success", cr.Success).Msg("clip finished")
	}
	return out, nil
}

func loadTranscript(path string) (types.Transcript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.Transcript{}, err
	}
	var tr types.Transcript
	if err := json.Unmarshal(b, &tr); err != nil {
		return types.Transcript{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return tr, nil
}

func writeManifest(runDir string, res Result) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(runDir, "manifest.json"), b, 0o644)
}

func buildRunOutDir(outRoot, inputPath string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", inputPath, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.FaceAnalyzer = (*mediapipe.Adapter)(nil)
var _ ports.FaceDetector = (*pigodet.Detector)(nil)
