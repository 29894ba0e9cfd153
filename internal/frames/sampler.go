// Package frames picks analysis instants and extracts still frames into a
// scoped temporary directory.
package frames

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forPelevin/vertcut/internal/ports"
	"github.com/forPelevin/vertcut/internal/types"
)

const (
	minSamples = 1
	maxSamples = 12
)

// DistributedTimestamps returns n instants evenly spaced strictly inside
// (0, durationSec), excluding the exact start and end. An unknown duration
// yields a single instant at t=0.
func DistributedTimestamps(durationSec float64, n int) []float64 {
	if durationSec <= 0 {
		return []float64{0}
	}
	return SpanTimestamps(0, durationSec, n)
}

// SpanTimestamps spreads n instants strictly inside (startSec, endSec) with
// spacing (end-start)/(n+1). n is bounded to [1,12].
func SpanTimestamps(startSec, endSec float64, n int) []float64 {
	if n < minSamples {
		n = minSamples
	}
	if n > maxSamples {
		n = maxSamples
	}
	step := (endSec - startSec) / float64(n+1)
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = startSec + step*float64(i+1)
	}
	return ts
}

type Sampler struct {
	video ports.VideoTool
}

func NewSampler(video ports.VideoTool) *Sampler {
	return &Sampler{video: video}
}

// Sample extracts exactly one frame per timestamp, preserving order, into a
// fresh temp directory. cleanup removes the directory and must be called on
// every exit path once the frames (and any analysis of them) are done with.
// Any single extraction failure fails the whole call; the directory is
// already released in that case.
func (s *Sampler) Sample(ctx context.Context, videoPath string, timestamps []float64) (paths []string, cleanup func(), err error) {
	dir, err := os.MkdirTemp("", "vertcut-frames-")
	if err != nil {
		return nil, func() {}, fmt.Errorf("create frame dir: %w", err)
	}
	cleanup = func() { _ = os.RemoveAll(dir) }

	paths = make([]string, 0, len(timestamps))
	for i, t := range timestamps {
		out := filepath.Join(dir, fmt.Sprintf("frame_%03d.jpg", i))
		if err := s.video.ExtractFrame(ctx, videoPath, t, out); err != nil {
			cleanup()
			return nil, func() {}, &types.FrameExtractionError{AtSec: t, Err: err}
		}
		paths = append(paths, out)
	}
	return paths, cleanup, nil
}
