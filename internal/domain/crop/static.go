package crop

import "github.com/forPelevin/vertcut/internal/types"

// Tunables are the empirically chosen planning thresholds. They have no
// documented derivation; keep them configurable rather than hard truths.
type Tunables struct {
	// Speaker acceptance gates: the speaker center is trusted only when the
	// winning track was present in enough frames AND its mouth motion stood
	// out against the other tracks.
	SpeakerFrameRatioMin  float64
	SpeakerMotionRatioMin float64

	// Dynamic planning.
	SmoothingAlpha float64 // exponential smoothing factor
	JitterFactor   float64 // per-crop-width center delta treated as noise
	MinSegmentSec  float64 // shorter segments are merged into the predecessor
}

func DefaultTunables() Tunables {
	return Tunables{
		SpeakerFrameRatioMin:  0.6,
		SpeakerMotionRatioMin: 0.55,
		SmoothingAlpha:        0.6,
		JitterFactor:          0.16,
		MinSegmentSec:         0.9,
	}
}

// StaticPlan is a single crop window covering a whole video (or clip range).
type StaticPlan struct {
	Window        Window
	NeedsCrop     bool
	UsedAnalyzer  bool
	MultiFace     bool
	ActiveSpeaker bool
}

// Tier identifies which fallback tier produced a center estimate.
type Tier int

const (
	// TierNone means the analyzer produced no usable center; the caller
	// should try the secondary detector before the geometric center.
	TierNone Tier = iota
	TierSpeaker
	TierGeneric
)

// ResolveCenter walks the analyzer decision tree and returns the accepted
// center with the tier that produced it. The speaker center is accepted only
// when both confidence gates pass; otherwise it falls through to the generic
// center when one exists.
func ResolveCenter(a types.FaceAnalysis, tun Tunables, activeSpeaker bool) (float64, Tier) {
	if !a.OK {
		return 0, TierNone
	}
	if activeSpeaker && a.SpeakerCenterX != nil && speakerGatePasses(a, tun) {
		return *a.SpeakerCenterX, TierSpeaker
	}
	if a.CenterX != nil {
		return *a.CenterX, TierGeneric
	}
	return 0, TierNone
}

func speakerGatePasses(a types.FaceAnalysis, tun Tunables) bool {
	if a.SpeakerFrameRatio == nil || a.SpeakerMotionRatio == nil {
		return false
	}
	return *a.SpeakerFrameRatio >= tun.SpeakerFrameRatioMin &&
		*a.SpeakerMotionRatio >= tun.SpeakerMotionRatioMin
}

// PlanInput carries the resolved center plus the flags the invariants
// depend on.
type PlanInput struct {
	Meta            types.VideoMetadata
	CenterX         float64
	UsedAnalyzer    bool
	MultiFace       bool
	SpeakerResolved bool
	ActiveSpeaker   bool
}

// NewStaticPlan turns a resolved center into a bounded crop window.
// When multiple faces were seen and no speaker center passed the gates,
// cropping is discarded entirely: cutting a subject out costs more than a
// non-ideal full frame.
func NewStaticPlan(in PlanInput) StaticPlan {
	if in.MultiFace && !in.SpeakerResolved {
		return StaticPlan{
			Window:        Window{Width: in.Meta.Width, Height: in.Meta.Height},
			NeedsCrop:     false,
			UsedAnalyzer:  in.UsedAnalyzer,
			MultiFace:     true,
			ActiveSpeaker: in.ActiveSpeaker,
		}
	}
	cw, ch := PortraitSize(in.Meta.Width, in.Meta.Height)
	return StaticPlan{
		Window: Window{
			Width:  cw,
			Height: ch,
			X:      ClampX(in.CenterX, cw, in.Meta.Width),
		},
		NeedsCrop:     cw < in.Meta.Width,
		UsedAnalyzer:  in.UsedAnalyzer,
		MultiFace:     in.MultiFace,
		ActiveSpeaker: in.ActiveSpeaker,
	}
}
