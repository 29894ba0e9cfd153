package usecase

import (
	"context"

	"github.com/forPelevin/vertcut/internal/domain/crop"
	"github.com/forPelevin/vertcut/internal/frames"
	"github.com/forPelevin/vertcut/internal/types"
)

const (
	staticSampleCount  = 3
	speakerSampleCount = 9
)

// planStatic derives one crop window for the given time range. It never
// fails: every tier of the fallback chain degrades toward the geometric
// center, because a centered crop beats an aborted run.
func (u Usecase) planStatic(ctx context.Context, videoPath string, meta types.VideoMetadata, startSec, endSec float64, activeSpeaker bool) crop.StaticPlan {
	geoCenter := float64(meta.Width) / 2
	in := crop.PlanInput{
		Meta:          meta,
		CenterX:       geoCenter,
		ActiveSpeaker: activeSpeaker,
	}

	n := staticSampleCount
	if activeSpeaker {
		n = speakerSampleCount
	}
	var ts []float64
	if endSec <= startSec {
		ts = frames.DistributedTimestamps(0, n)
	} else {
		ts = frames.SpanTimestamps(startSec, endSec, n)
	}

	framePaths, cleanup, err := u.sampler.Sample(ctx, videoPath, ts)
	if err != nil {
		u.d.Log.Warn().Err(err).Msg("frame sampling failed, using geometric center")
		return crop.NewStaticPlan(in)
	}
	defer cleanup()

	analysis, err := u.d.Analyzer.Analyze(ctx, framePaths, activeSpeaker)
	if err != nil {
		u.d.Log.Warn().Err(err).Msg("analyzer failed, trying secondary detector")
		return crop.NewStaticPlan(u.trySecondary(ctx, framePaths, in))
	}

	in.MultiFace = analysis.MultiFace
	center, tier := crop.ResolveCenter(analysis, u.tun, activeSpeaker)
	switch tier {
	case crop.TierSpeaker:
		in.CenterX = center
		in.UsedAnalyzer = true
		in.SpeakerResolved = true
	case crop.TierGeneric:
		in.CenterX = center
		in.UsedAnalyzer = true
	default:
		in = u.trySecondary(ctx, framePaths, in)
	}
	return crop.NewStaticPlan(in)
}

// trySecondary consults the simpler detector over the same frames before
// giving up to the geometric center.
func (u Usecase) trySecondary(ctx context.Context, framePaths []string, in crop.PlanInput) crop.PlanInput {
	if u.d.Detector == nil {
		return in
	}
	cx, ok, err := u.d.Detector.DetectCenterX(ctx, framePaths)
	if err != nil {
		u.d.Log.Warn().Err(err).Msg("secondary detector failed, using geometric center")
		return in
	}
	if ok {
		in.CenterX = cx
	}
	return in
}

// planDynamic builds a time-varying crop plan for one clip. ok is false
// when the analysis produced nothing usable for segmentation; the caller
// degrades to a static speaker plan over the same range.
func (u Usecase) planDynamic(ctx context.Context, videoPath string, meta types.VideoMetadata, cs types.ClipSpec) (plan crop.DynamicPlan, ok bool) {
	cw, ch := crop.PortraitSize(meta.Width, meta.Height)
	geoCenter := float64(meta.Width) / 2
	single := func(centerX float64) crop.DynamicPlan {
		return crop.DynamicPlan{
			Width:     cw,
			Height:    ch,
			NeedsCrop: cw < meta.Width,
			Segments: []crop.Segment{
				{StartSec: cs.StartSec, EndSec: cs.EndSec, CenterX: centerX},
			},
		}
	}

	dur := cs.EndSec - cs.StartSec
	ts := frames.SpanTimestamps(cs.StartSec, cs.EndSec, crop.SampleCount(dur))

	framePaths, cleanup, err := u.sampler.Sample(ctx, videoPath, ts)
	if err != nil {
		u.d.Log.Warn().Err(err).Msg("frame sampling failed, using centered segment")
		return single(geoCenter), true
	}
	defer cleanup()

	analysis, err := u.d.Analyzer.Analyze(ctx, framePaths, true)
	if err != nil || !analysis.OK {
		if err != nil {
			u.d.Log.Warn().Err(err).Msg("analyzer failed, degrading to static window")
		}
		return crop.DynamicPlan{}, false
	}

	center, tier := crop.ResolveCenter(analysis, u.tun, true)
	if analysis.MultiFace && tier != crop.TierSpeaker {
		// Several faces and no trusted speaker: following any single center
		// would cut subjects out, so the original framing is kept.
		return crop.DynamicPlan{Width: meta.Width, Height: meta.Height}, true
	}

	raw := analysis.FrameCenters
	if len(raw) < len(ts) {
		// Analyzer skipped trailing frames; treat the missing tail as absent
		// so carry-forward covers it.
		padded := make([]*float64, len(ts))
		copy(padded, raw)
		raw = padded
	}
	if !hasAnyCenter(raw) {
		// No per-frame signal. The aggregate center (speaker gate included)
		// still yields a usable single window; without one the caller's
		// static fallback takes over.
		if tier != crop.TierNone {
			return single(center), true
		}
		return crop.DynamicPlan{}, false
	}

	smoothed := crop.Smooth(raw[:len(ts)], u.tun.SmoothingAlpha, geoCenter)
	jitter := u.tun.JitterFactor * float64(cw)
	segs := crop.BuildSegments(ts, smoothed, cs.StartSec, cs.EndSec, jitter, u.tun.MinSegmentSec)
	if len(segs) == 0 {
		return single(geoCenter), true
	}
	return crop.DynamicPlan{Width: cw, Height: ch, NeedsCrop: cw < meta.Width, Segments: segs}, true
}

func hasAnyCenter(raw []*float64) bool {
	for _, r := range raw {
		if r != nil {
			return true
		}
	}
	return false
}
