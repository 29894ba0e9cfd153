package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/forPelevin/vertcut/internal/domain/crop"
	"github.com/forPelevin/vertcut/internal/domain/filtergraph"
	"github.com/forPelevin/vertcut/internal/frames"
	"github.com/forPelevin/vertcut/internal/ports"
	"github.com/forPelevin/vertcut/internal/types"
)

type Deps struct {
	Video    ports.VideoTool
	Analyzer ports.FaceAnalyzer
	Detector ports.FaceDetector
	Log      zerolog.Logger
}

type Usecase struct {
	d       Deps
	sampler *frames.Sampler
	tun     crop.Tunables
	minSize int64
}

// MinOutputBytes guards against a silent zero-content encode that the
// external tool reported as successful.
const MinOutputBytes = 1000

func New(d Deps, tun crop.Tunables) Usecase {
	return Usecase{
		d:       d,
		sampler: frames.NewSampler(d.Video),
		tun:     tun,
		minSize: MinOutputBytes,
	}
}

type Input struct {
	InputPath         string
	ClipsDir          string
	Clips             []types.ClipSpec
	PortraitCrop      bool
	ActiveSpeakerCrop bool
	OnProgress        func(types.Progress)
}

type Result struct {
	ClipsDir string
	Clips    []types.ClipResult
}

// Run processes the requested clips strictly in order. A single clip's
// failure never aborts the batch; only the initial probe can. Cancellation
// stops before the next clip and leaves any partial output in place.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	meta, err := u.d.Video.Probe(ctx, in.InputPath)
	if err != nil {
		return Result{}, err
	}

	var static *crop.StaticPlan
	if in.PortraitCrop && !in.ActiveSpeakerCrop {
		// One window for the whole source; every clip reuses it.
		p := u.planStatic(ctx, in.InputPath, meta, 0, meta.DurationSec, false)
		static = &p
		u.d.Log.Info().
			Bool("needs_crop", p.NeedsCrop).
			Bool("used_analyzer", p.UsedAnalyzer).
			Bool("multi_face", p.MultiFace).
			Int("crop_x", p.Window.X).
			Msg("static crop planned")
	}

	res := Result{ClipsDir: in.ClipsDir}
	for i, cs := range in.Clips {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if in.OnProgress != nil {
			in.OnProgress(types.Progress{Current: i + 1, Total: len(in.Clips), Title: cs.Title})
		}
		res.Clips = append(res.Clips, u.extractClip(ctx, in, meta, static, i, cs))
	}
	return res, nil
}

// extractClip runs one extraction with the stream-copy-first, forced
// re-encode retry policy.
func (u Usecase) extractClip(ctx context.Context, in Input, meta types.VideoMetadata, static *crop.StaticPlan, idx int, cs types.ClipSpec) types.ClipResult {
	res := types.ClipResult{
		Index:    idx,
		Title:    cs.Title,
		StartSec: cs.StartSec,
		EndSec:   cs.EndSec,
		ClipKey:  cs.Key(),
	}
	outPath := filepath.Join(in.ClipsDir, fmt.Sprintf("%03d_%s.mp4", idx+1, slugTitle(cs.Title)))

	first, retry := u.buildAttempts(ctx, in, meta, static, cs, outPath)

	err := u.verified(outPath, first)
	if err != nil {
		u.d.Log.Warn().Err(err).Str("clip", cs.Title).Msg("extraction failed, retrying with forced re-encode")
		if rerr := u.verified(outPath, retry); rerr != nil {
			res.Error = fmt.Sprintf("retry failed: %v (first attempt: %v)", rerr, err)
			return res
		}
	}
	res.ClipPath = outPath
	res.Success = true
	return res
}

// buildAttempts picks the cheapest viable extraction for the first attempt
// and a forced full re-encode for the retry. Crops always re-encode:
// compressed streams cannot be spatially cropped by copy.
func (u Usecase) buildAttempts(ctx context.Context, in Input, meta types.VideoMetadata, static *crop.StaticPlan, cs types.ClipSpec, outPath string) (first, retry func() error) {
	copyThenReencode := func() (func() error, func() error) {
		copyRun := func() error {
			return u.d.Video.CutCopy(ctx, in.InputPath, outPath, cs.StartSec, cs.EndSec)
		}
		reencodePlain := func() error {
			return u.d.Video.CutReencode(ctx, in.InputPath, outPath, cs.StartSec, cs.EndSec, "")
		}
		return copyRun, reencodePlain
	}
	cropReencode := func(vf string) (func() error, func() error) {
		run := func() error {
			return u.d.Video.CutReencode(ctx, in.InputPath, outPath, cs.StartSec, cs.EndSec, vf)
		}
		return run, run
	}

	switch {
	case in.PortraitCrop && in.ActiveSpeakerCrop:
		plan, ok := u.planDynamic(ctx, in.InputPath, meta, cs)
		if !ok {
			// Dynamic planning yielded nothing; a per-clip static speaker
			// plan applies the same decision tree, multi-face override
			// included, over a denser sample.
			sp := u.planStatic(ctx, in.InputPath, meta, cs.StartSec, cs.EndSec, true)
			if !sp.NeedsCrop {
				return copyThenReencode()
			}
			return cropReencode(filtergraph.Crop{
				Width:  sp.Window.Width,
				Height: sp.Window.Height,
				X:      sp.Window.X,
			}.String())
		}
		if !plan.NeedsCrop {
			return copyThenReencode()
		}
		if len(plan.Segments) == 1 {
			// Planning collapsed to one window; the plain crop re-encode is
			// an equivalent, cheaper encoding.
			return cropReencode(cropFilter(plan.Width, plan.Height, plan.Segments[0].CenterX, meta.Width))
		}
		g := filtergraph.Build(graphSegments(plan, meta.Width))
		run := func() error {
			return u.d.Video.CutFilterGraph(ctx, in.InputPath, outPath,
				g.FilterComplex(), g.VideoLabel(), g.AudioLabel())
		}
		return run, run

	case in.PortraitCrop:
		if static != nil && static.NeedsCrop {
			return cropReencode(filtergraph.Crop{
				Width:  static.Window.Width,
				Height: static.Window.Height,
				X:      static.Window.X,
			}.String())
		}
		// Planner declined to crop (multi-face, or source already narrow).
		return copyThenReencode()

	default:
		return copyThenReencode()
	}
}

// verified runs one attempt and checks the output is present and larger
// than the minimum plausible size.
func (u Usecase) verified(outPath string, run func() error) error {
	if err := run(); err != nil {
		return &types.EncodeError{Path: outPath, Err: err}
	}
	st, err := os.Stat(outPath)
	if err != nil {
		return &types.EncodeError{Path: outPath, Err: fmt.Errorf("output missing: %w", err)}
	}
	if st.Size() < u.minSize {
		return &types.EncodeError{Path: outPath, Err: fmt.Errorf("output is %d bytes, want >= %d", st.Size(), u.minSize)}
	}
	return nil
}

func graphSegments(plan crop.DynamicPlan, width int) []filtergraph.Segment {
	segs := make([]filtergraph.Segment, len(plan.Segments))
	for i, s := range plan.Segments {
		segs[i] = filtergraph.Segment{
			Start: s.StartSec,
			End:   s.EndSec,
			Crop: filtergraph.Crop{
				Width:  plan.Width,
				Height: plan.Height,
				X:      crop.ClampX(s.CenterX, plan.Width, width),
			},
		}
	}
	return segs
}

func cropFilter(cw, ch int, centerX float64, width int) string {
	return filtergraph.Crop{Width: cw, Height: ch, X: crop.ClampX(centerX, cw, width)}.String()
}

func slugTitle(s string) string {
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
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "clip"
	}
	return out
}
