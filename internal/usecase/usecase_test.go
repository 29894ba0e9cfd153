package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/forPelevin/vertcut/internal/domain/crop"
	"github.com/forPelevin/vertcut/internal/types"
)

func f(v float64) *float64 { return &v }

// fakeVideo implements ports.VideoTool. Output files are written with a
// configurable size per attempt so the undersized-output retry can be
// exercised.
type fakeVideo struct {
	meta types.VideoMetadata

	copyCalls   []string  // outPath per CutCopy
	reencodeVF  []string  // vf per CutReencode
	graphCalls  []string  // filterComplex per CutFilterGraph
	outSizes    []int     // size of the file written per encode call, in order
	encodeErrs  []error   // error per encode call, in order (nil = success)
	encodeCount int
	extractErr  error
	extractedAt []float64
}

func (v *fakeVideo) Probe(context.Context, string) (types.VideoMetadata, error) {
	return v.meta, nil
}

func (v *fakeVideo) ExtractFrame(_ context.Context, _ string, atSec float64, outJPG string) error {
	if v.extractErr != nil {
		return v.extractErr
	}
	v.extractedAt = append(v.extractedAt, atSec)
	return os.WriteFile(outJPG, []byte("jpg"), 0o644)
}

func (v *fakeVideo) writeOut(outPath string) error {
	i := v.encodeCount
	v.encodeCount++
	if i < len(v.encodeErrs) && v.encodeErrs[i] != nil {
		return v.encodeErrs[i]
	}
	size := 5000
	if i < len(v.outSizes) {
		size = v.outSizes[i]
	}
	return os.WriteFile(outPath, make([]byte, size), 0o644)
}

func (v *fakeVideo) CutCopy(_ context.Context, _, outPath string, _, _ float64) error {
	v.copyCalls = append(v.copyCalls, outPath)
	return v.writeOut(outPath)
}

func (v *fakeVideo) CutReencode(_ context.Context, _, outPath string, _, _ float64, vf string) error {
	v.reencodeVF = append(v.reencodeVF, vf)
	return v.writeOut(outPath)
}

func (v *fakeVideo) CutFilterGraph(_ context.Context, _, outPath, fc, _, _ string) error {
	v.graphCalls = append(v.graphCalls, fc)
	return v.writeOut(outPath)
}

type fakeAnalyzer struct {
	res types.FaceAnalysis
	err error
}

func (a fakeAnalyzer) Analyze(context.Context, []string, bool) (types.FaceAnalysis, error) {
	return a.res, a.err
}

type fakeDetector struct {
	cx  float64
	ok  bool
	err error
}

func (d fakeDetector) DetectCenterX(context.Context, []string) (float64, bool, error) {
	return d.cx, d.ok, d.err
}

func newUsecase(v *fakeVideo, a fakeAnalyzer, d *fakeDetector) Usecase {
	deps := Deps{Video: v, Analyzer: a, Log: zerolog.Nop()}
	if d != nil {
		deps.Detector = *d
	}
	return New(deps, crop.DefaultTunables())
}

func hd() types.VideoMetadata { return types.VideoMetadata{Width: 1920, Height: 1080, DurationSec: 60} }

func TestRun_StaticCropHappyPath(t *testing.T) {
	t.Parallel()

	v := &fakeVideo{meta: hd()}
	a := fakeAnalyzer{res: types.FaceAnalysis{OK: true, CenterX: f(960)}}
	uc := newUsecase(v, a, nil)

	var progress []types.Progress
	res, err := uc.Run(context.Background(), Input{
		InputPath:    "in.mp4",
		ClipsDir:     t.TempDir(),
		Clips:        []types.ClipSpec{{Title: "A", StartSec: 10, EndSec: 25}},
		PortraitCrop: true,
		OnProgress:   func(p types.Progress) { progress = append(progress, p) },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Clips) != 1 || !res.Clips[0].Success {
		t.Fatalf("unexpected result: %+v", res.Clips)
	}
	if len(v.reencodeVF) != 1 || v.reencodeVF[0] != "crop=676:1080:622:0" {
		t.Fatalf("expected one crop re-encode, got %v", v.reencodeVF)
	}
	if len(v.copyCalls) != 0 {
		t.Fatalf("crop must not stream-copy")
	}
	if len(progress) != 1 || progress[0].Current != 1 || progress[0].Total != 1 || progress[0].Title != "A" {
		t.Fatalf("progress = %+v", progress)
	}
	if res.Clips[0].ClipKey != "10000-25000" {
		t.Fatalf("clip key = %s", res.Clips[0].ClipKey)
	}
}

func TestRun_MultiFaceKeepsFullFrame(t *testing.T) {
	t.Parallel()

	v := &fakeVideo{meta: hd()}
	a := fakeAnalyzer{res: types.FaceAnalysis{OK: true, CenterX: f(500), MultiFace: true}}
	uc := newUsecase(v, a, nil)

	res, err := uc.Run(context.Background(), Input{
		InputPath:    "in.mp4",
		ClipsDir:     t.TempDir(),
		Clips:        []types.ClipSpec{{Title: "A", StartSec: 10, EndSec: 25}},
		PortraitCrop: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Clips[0].Success {
		t.Fatalf("clip failed: %s", res.Clips[0].Error)
	}
	// Multiple faces without a speaker signal: no crop, so the cheap
	// stream-copy path is taken.
	if len(v.copyCalls) != 1 || len(v.reencodeVF) != 0 {
		t.Fatalf("expected stream copy only, got copies=%d reencodes=%d", len(v.copyCalls), len(v.reencodeVF))
	}
}

func TestRun_AnalyzerFailureFallsBackToSecondaryThenGeometric(t *testing.T) {
	t.Parallel()

	t.Run("secondary center used", func(t *testing.T) {
		v := &fakeVideo{meta: hd()}
		a := fakeAnalyzer{err: &types.AnalyzerError{Err: errors.New("exit 2")}}
		uc := newUsecase(v, a, &fakeDetector{cx: 400, ok: true})

		_, err := uc.Run(context.Background(), Input{
			InputPath:    "in.mp4",
			ClipsDir:     t.TempDir(),
			Clips:        []types.ClipSpec{{Title: "A", StartSec: 0, EndSec: 20}},
			PortraitCrop: true,
		})
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		// center 400 -> x = 400-338 = 62
		if len(v.reencodeVF) != 1 || v.reencodeVF[0] != "crop=676:1080:62:0" {
			t.Fatalf("expected secondary-centered crop, got %v", v.reencodeVF)
		}
	})

	t.Run("geometric center when secondary finds nothing", func(t *testing.T) {
		v := &fakeVideo{meta: hd()}
		a := fakeAnalyzer{err: &types.AnalyzerError{Err: errors.New("exit 2")}}
		uc := newUsecase(v, a, &fakeDetector{ok: false})

		_, err := uc.Run(context.Background(), Input{
			InputPath:    "in.mp4",
			ClipsDir:     t.TempDir(),
			Clips:        []types.ClipSpec{{Title: "A", StartSec: 0, EndSec: 20}},
			PortraitCrop: true,
		})
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(v.reencodeVF) != 1 || v.reencodeVF[0] != "crop=676:1080:622:0" {
			t.Fatalf("expected geometric crop, got %v", v.reencodeVF)
		}
	})
}

func TestRun_FrameExtractionFailureStillProducesPlan(t *testing.T) {
	t.Parallel()

	v := &fakeVideo{meta: hd(), extractErr: errors.New("disk full")}
	a := fakeAnalyzer{res: types.FaceAnalysis{OK: true, CenterX: f(100)}}
	uc := newUsecase(v, a, nil)

	res, err := uc.Run(context.Background(), Input{
		InputPath:    "in.mp4",
		ClipsDir:     t.TempDir(),
		Clips:        []types.ClipSpec{{Title: "A", StartSec: 0, EndSec: 20}},
		PortraitCrop: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Clips[0].Success {
		t.Fatalf("clip failed: %s", res.Clips[0].Error)
	}
	// Sampling failed before analysis, so the analyzer center is never seen.
	if len(v.reencodeVF) != 1 || v.reencodeVF[0] != "crop=676:1080:622:0" {
		t.Fatalf("expected geometric crop, got %v", v.reencodeVF)
	}
}

func TestRun_NoCropStreamCopiesWithReencodeRetry(t *testing.T) {
	t.Parallel()

	// First attempt writes a 400-byte file: under the 1000-byte minimum.
	v := &fakeVideo{meta: hd(), outSizes: []int{400, 5000}}
	uc := newUsecase(v, fakeAnalyzer{}, nil)

	res, err := uc.Run(context.Background(), Input{
		InputPath: "in.mp4",
		ClipsDir:  t.TempDir(),
		Clips:     []types.ClipSpec{{Title: "A", StartSec: 10, EndSec: 25}},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Clips[0].Success {
		t.Fatalf("expected success after retry: %s", res.Clips[0].Error)
	}
	if len(v.copyCalls) != 1 {
		t.Fatalf("expected one stream copy, got %d", len(v.copyCalls))
	}
	if len(v.reencodeVF) != 1 || v.reencodeVF[0] != "" {
		t.Fatalf("retry must force a plain re-encode, got %v", v.reencodeVF)
	}
}

func TestRun_RetryAlsoUndersizedFailsClipButNotBatch(t *testing.T) {
	t.Parallel()

	v := &fakeVideo{meta: hd(), outSizes: []int{400, 400, 5000}}
	uc := newUsecase(v, fakeAnalyzer{}, nil)

	res, err := uc.Run(context.Background(), Input{
		InputPath: "in.mp4",
		ClipsDir:  t.TempDir(),
		Clips: []types.ClipSpec{
			{Title: "bad", StartSec: 10, EndSec: 25},
			{Title: "good", StartSec: 30, EndSec: 45},
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Clips) != 2 {
		t.Fatalf("expected both clips processed, got %d", len(res.Clips))
	}
	if res.Clips[0].Success {
		t.Fatalf("first clip should have failed")
	}
	if res.Clips[0].Error == "" || !strings.Contains(res.Clips[0].Error, "bytes") {
		t.Fatalf("expected descriptive size error, got %q", res.Clips[0].Error)
	}
	if !res.Clips[1].Success {
		t.Fatalf("second clip should still succeed: %s", res.Clips[1].Error)
	}
}

func TestRun_EncodeErrorRetriesOnce(t *testing.T) {
	t.Parallel()

	v := &fakeVideo{meta: hd(), encodeErrs: []error{errors.New("moov atom not found"), nil}}
	uc := newUsecase(v, fakeAnalyzer{}, nil)

	res, err := uc.Run(context.Background(), Input{
		InputPath: "in.mp4",
		ClipsDir:  t.TempDir(),
		Clips:     []types.ClipSpec{{Title: "A", StartSec: 0, EndSec: 5}},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Clips[0].Success {
		t.Fatalf("expected success after retry: %s", res.Clips[0].Error)
	}
	if v.encodeCount != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", v.encodeCount)
	}
}

func TestRun_ActiveSpeakerBuildsFilterGraph(t *testing.T) {
	t.Parallel()

	// Centers jump between two positions far apart: two segments expected.
	v := &fakeVideo{meta: hd()}
	a := fakeAnalyzer{res: types.FaceAnalysis{
		OK:           true,
		FrameCenters: []*float64{f(300), f(300), f(300), f(1600), f(1600), f(1600)},
	}}
	uc := newUsecase(v, a, nil)

	res, err := uc.Run(context.Background(), Input{
		InputPath:         "in.mp4",
		ClipsDir:          t.TempDir(),
		Clips:             []types.ClipSpec{{Title: "A", StartSec: 0, EndSec: 40}},
		PortraitCrop:      true,
		ActiveSpeakerCrop: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Clips[0].Success {
		t.Fatalf("clip failed: %s", res.Clips[0].Error)
	}
	if len(v.graphCalls) != 1 {
		t.Fatalf("expected a filter graph encode, got %d (reencodes %v)", len(v.graphCalls), v.reencodeVF)
	}
	fc := v.graphCalls[0]
	if !strings.Contains(fc, "concat=n=") || !strings.Contains(fc, "trim=start=") {
		t.Fatalf("unexpected graph: %s", fc)
	}
}

func TestRun_ActiveSpeakerSingleWindowUsesPlainCrop(t *testing.T) {
	t.Parallel()

	v := &fakeVideo{meta: hd()}
	a := fakeAnalyzer{res: types.FaceAnalysis{
		OK:           true,
		FrameCenters: []*float64{f(800), f(805), f(810)},
	}}
	uc := newUsecase(v, a, nil)

	res, err := uc.Run(context.Background(), Input{
		InputPath:         "in.mp4",
		ClipsDir:          t.TempDir(),
		Clips:             []types.ClipSpec{{Title: "A", StartSec: 0, EndSec: 10}},
		PortraitCrop:      true,
		ActiveSpeakerCrop: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Clips[0].Success {
		t.Fatalf("clip failed: %s", res.Clips[0].Error)
	}
	if len(v.graphCalls) != 0 {
		t.Fatalf("single-window plan should skip the filter graph")
	}
	if len(v.reencodeVF) != 1 || !strings.HasPrefix(v.reencodeVF[0], "crop=676:1080:") {
		t.Fatalf("expected plain crop re-encode, got %v", v.reencodeVF)
	}
}

func TestRun_ActiveSpeakerMultiFaceKeepsFullFrame(t *testing.T) {
	t.Parallel()

	// Several faces, a generic center, but no speaker signal passing the
	// gate: the full frame must be kept even in active-speaker mode.
	v := &fakeVideo{meta: hd()}
	a := fakeAnalyzer{res: types.FaceAnalysis{OK: true, MultiFace: true, CenterX: f(500)}}
	uc := newUsecase(v, a, nil)

	res, err := uc.Run(context.Background(), Input{
		InputPath:         "in.mp4",
		ClipsDir:          t.TempDir(),
		Clips:             []types.ClipSpec{{Title: "A", StartSec: 0, EndSec: 10}},
		PortraitCrop:      true,
		ActiveSpeakerCrop: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Clips[0].Success {
		t.Fatalf("clip failed: %s", res.Clips[0].Error)
	}
	if len(v.copyCalls) != 1 {
		t.Fatalf("expected one stream copy, got %d", len(v.copyCalls))
	}
	if len(v.reencodeVF) != 0 || len(v.graphCalls) != 0 {
		t.Fatalf("multi-face must not crop: reencodes=%v graphs=%d", v.reencodeVF, len(v.graphCalls))
	}
}

func TestRun_ActiveSpeakerMultiFaceWithTrustedSpeakerStillCrops(t *testing.T) {
	t.Parallel()

	v := &fakeVideo{meta: hd()}
	a := fakeAnalyzer{res: types.FaceAnalysis{
		OK:                 true,
		MultiFace:          true,
		SpeakerCenterX:     f(400),
		SpeakerFrameRatio:  f(0.8),
		SpeakerMotionRatio: f(0.7),
		FrameCenters:       []*float64{f(400), f(405), f(410)},
	}}
	uc := newUsecase(v, a, nil)

	res, err := uc.Run(context.Background(), Input{
		InputPath:         "in.mp4",
		ClipsDir:          t.TempDir(),
		Clips:             []types.ClipSpec{{Title: "A", StartSec: 0, EndSec: 10}},
		PortraitCrop:      true,
		ActiveSpeakerCrop: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Clips[0].Success {
		t.Fatalf("clip failed: %s", res.Clips[0].Error)
	}
	if len(v.copyCalls) != 0 {
		t.Fatalf("trusted speaker must crop, not stream-copy")
	}
	if len(v.reencodeVF) != 1 || !strings.HasPrefix(v.reencodeVF[0], "crop=676:1080:") {
		t.Fatalf("expected speaker-centered crop, got %v", v.reencodeVF)
	}
}

func TestRun_ActiveSpeakerAnalyzerFailureDegradesToStaticSpeakerPlan(t *testing.T) {
	t.Parallel()

	v := &fakeVideo{meta: hd()}
	a := fakeAnalyzer{err: &types.AnalyzerError{Err: errors.New("exit 2")}}
	uc := newUsecase(v, a, &fakeDetector{cx: 400, ok: true})

	res, err := uc.Run(context.Background(), Input{
		InputPath:         "in.mp4",
		ClipsDir:          t.TempDir(),
		Clips:             []types.ClipSpec{{Title: "A", StartSec: 0, EndSec: 10}},
		PortraitCrop:      true,
		ActiveSpeakerCrop: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Clips[0].Success {
		t.Fatalf("clip failed: %s", res.Clips[0].Error)
	}
	if len(v.reencodeVF) != 1 || v.reencodeVF[0] != "crop=676:1080:62:0" {
		t.Fatalf("expected secondary-centered crop, got %v", v.reencodeVF)
	}
	// 3 dynamic samples for a 10s clip, then 9 speaker samples for the
	// static fallback plan.
	if len(v.extractedAt) != 12 {
		t.Fatalf("expected 12 extracted frames, got %d", len(v.extractedAt))
	}
}

func TestRun_ActiveSpeakerAnalyzerNotOKMultiFaceKeepsFullFrame(t *testing.T) {
	t.Parallel()

	v := &fakeVideo{meta: hd()}
	a := fakeAnalyzer{res: types.FaceAnalysis{OK: false, MultiFace: true}}
	uc := newUsecase(v, a, nil)

	res, err := uc.Run(context.Background(), Input{
		InputPath:         "in.mp4",
		ClipsDir:          t.TempDir(),
		Clips:             []types.ClipSpec{{Title: "A", StartSec: 0, EndSec: 10}},
		PortraitCrop:      true,
		ActiveSpeakerCrop: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Clips[0].Success {
		t.Fatalf("clip failed: %s", res.Clips[0].Error)
	}
	if len(v.copyCalls) != 1 || len(v.reencodeVF) != 0 {
		t.Fatalf("expected stream copy only, got copies=%d reencodes=%v", len(v.copyCalls), v.reencodeVF)
	}
}

func TestRun_CancellationStopsBatch(t *testing.T) {
	t.Parallel()

	v := &fakeVideo{meta: hd()}
	uc := newUsecase(v, fakeAnalyzer{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	clips := []types.ClipSpec{
		{Title: "a", StartSec: 0, EndSec: 5},
		{Title: "b", StartSec: 5, EndSec: 10},
	}
	done := 0
	_, err := uc.Run(ctx, Input{
		InputPath: "in.mp4",
		ClipsDir:  t.TempDir(),
		Clips:     clips,
		OnProgress: func(types.Progress) {
			done++
			cancel() // cancel after the first clip starts
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if done != 1 {
		t.Fatalf("expected the batch to stop after the first clip, got %d", done)
	}
}

func TestSlugTitle(t *testing.T) {
	tests := map[string]string{
		"  My Cool Clip ": "my-cool-clip",
		"___":             "clip",
		"Ünïcode (v2)!":   "ünïcode-v2",
	}
	for in, want := range tests {
		if got := slugTitle(in); got != want {
			t.Fatalf("slugTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClipFilenamesAreOrderedAndStable(t *testing.T) {
	t.Parallel()

	v := &fakeVideo{meta: hd()}
	uc := newUsecase(v, fakeAnalyzer{}, nil)

	dir := t.TempDir()
	res, err := uc.Run(context.Background(), Input{
		InputPath: "in.mp4",
		ClipsDir:  dir,
		Clips: []types.ClipSpec{
			{Title: "Same", StartSec: 0, EndSec: 5},
			{Title: "Same", StartSec: 5, EndSec: 10},
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if filepath.Base(res.Clips[0].ClipPath) != "001_same.mp4" || filepath.Base(res.Clips[1].ClipPath) != "002_same.mp4" {
		t.Fatalf("paths = %s, %s", res.Clips[0].ClipPath, res.Clips[1].ClipPath)
	}
	if res.Clips[0].ClipKey == res.Clips[1].ClipKey {
		t.Fatalf("colliding titles must still get distinct keys")
	}
}
