package ports

import (
	"context"

	"github.com/forPelevin/vertcut/internal/types"
)

// VideoTool wraps the external probe/encode binaries. Every call shells out
// and is cancellable through ctx.
type VideoTool interface {
	Probe(ctx context.Context, path string) (types.VideoMetadata, error)
	ExtractFrame(ctx context.Context, inPath string, atSec float64, outJPG string) error

	// CutCopy trims [start,end) without re-encoding. Cannot apply a crop.
	CutCopy(ctx context.Context, inPath, outPath string, startSec, endSec float64) error
	// CutReencode trims [start,end) with a full re-encode. vf is an optional
	// video filter chain (e.g. a crop); empty means plain re-encode.
	CutReencode(ctx context.Context, inPath, outPath string, startSec, endSec float64, vf string) error
	// CutFilterGraph re-encodes through a filter_complex graph that already
	// carries its own trims; no input-side seeking is applied.
	CutFilterGraph(ctx context.Context, inPath, outPath, filterComplex, videoLabel, audioLabel string) error
}

// FaceAnalyzer is the primary, external face/speaker position estimator.
// It must only invoke and parse, never detect on its own.
type FaceAnalyzer interface {
	Analyze(ctx context.Context, framePaths []string, activeSpeaker bool) (types.FaceAnalysis, error)
}

// FaceDetector is the secondary, simpler in-process detector used as the
// last fallback tier before the geometric center.
type FaceDetector interface {
	// DetectCenterX returns the average subject center across the given
	// frames. ok is false when no face was found in any frame.
	DetectCenterX(ctx context.Context, framePaths []string) (centerX float64, ok bool, err error)
}
