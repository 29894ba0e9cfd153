package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/forPelevin/vertcut/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
	log     zerolog.Logger
}

func New(ffmpegPath, ffprobePath string, log zerolog.Logger) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		log:     log.With().Str("component", "ffmpeg").Logger(),
	}
}

// Probe reads stream geometry and container duration. Width and height are
// required; a missing or unparseable duration is reported as 0.
func (a *Adapter) Probe(ctx context.Context, path string) (types.VideoMetadata, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	b, err := cmd.Output()
	if err != nil {
		return types.VideoMetadata{}, &types.ProbeError{Path: path, Err: fmt.Errorf("ffprobe: %w", err)}
	}
	meta, err := parseProbe(b)
	if err != nil {
		return types.VideoMetadata{}, &types.ProbeError{Path: path, Err: err}
	}
	a.log.Debug().
		Int("width", meta.Width).
		Int("height", meta.Height).
		Float64("duration", meta.DurationSec).
		Msg("probed source")
	return meta, nil
}

// ExtractFrame grabs a single still at atSec. Seeking before -i keeps the
// demuxer from decoding everything up to the target.
func (a *Adapter) ExtractFrame(ctx context.Context, inPath string, atSec float64, outJPG string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(atSec),
		"-i", inPath,
		"-frames:v", "1",
		"-q:v", "2",
		outJPG,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract frame: %w\n%s", err, string(b))
	}
	return nil
}

// CutCopy trims without re-encoding.
func (a *Adapter) CutCopy(ctx context.Context, inPath, outPath string, startSec, endSec float64) error {
	args := []string{
		"-y",
		"-ss", fmtSeconds(startSec),
		"-to", fmtSeconds(endSec),
		"-i", inPath,
		"-c", "copy",
		outPath,
	}
	return a.runFFmpeg(ctx, args, "stream copy")
}

// CutReencode trims with a full re-encode; vf is an optional filter chain.
func (a *Adapter) CutReencode(ctx context.Context, inPath, outPath string, startSec, endSec float64, vf string) error {
	args := []string{
		"-y",
		"-ss", fmtSeconds(startSec),
		"-to", fmtSeconds(endSec),
		"-i", inPath,
	}
	if vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args, encodeArgs(outPath)...)
	return a.runFFmpeg(ctx, args, "re-encode")
}

// CutFilterGraph re-encodes through a filter_complex graph. The graph's
// trims select the clip range, so no input seeking is applied here.
func (a *Adapter) CutFilterGraph(ctx context.Context, inPath, outPath, filterComplex, videoLabel, audioLabel string) error {
	args := []string{
		"-y",
		"-i", inPath,
		"-filter_complex", filterComplex,
		"-map", videoLabel,
		"-map", audioLabel,
	}
	args = append(args, encodeArgs(outPath)...)
	return a.runFFmpeg(ctx, args, "filter graph")
}

func (a *Adapter) runFFmpeg(ctx context.Context, args []string, op string) error {
	a.log.Debug().Strs("args", args).Msg(op)
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w\n%s", op, err, string(b))
	}
	return nil
}

func encodeArgs(outPath string) []string {
	return []string{
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "aac",
		"-b:a", "192k",
		outPath,
	}
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
