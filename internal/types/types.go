package types

import "fmt"

// VideoMetadata describes the source geometry. Immutable once probed.
// DurationSec is 0 when the container reports no usable duration.
type VideoMetadata struct {
	Width       int
	Height      int
	DurationSec float64
}

// FaceAnalysis is the parsed output of one analyzer invocation.
// Pointer fields are nil when the analyzer did not produce that signal;
// callers treat absence as "fall back", not as an error.
type FaceAnalysis struct {
	OK                 bool
	CenterX            *float64
	MultiFace          bool
	SpeakerCenterX     *float64
	SpeakerFrameRatio  *float64
	SpeakerMotionRatio *float64
	FrameCenters       []*float64
}

// ClipSpec is one requested output clip. Produced by the upstream
// transcription/selection pipeline; consumed as-is, overlap and order
// are not validated.
type ClipSpec struct {
	Title    string  `json:"title"`
	StartSec float64 `json:"start_time"`
	EndSec   float64 `json:"end_time"`
}

// Key derives a stable identity from the clip's time bounds so callers can
// reconcile results even when titles collide.
func (c ClipSpec) Key() string {
	return fmt.Sprintf("%d-%d", int64(c.StartSec*1000+0.5), int64(c.EndSec*1000+0.5))
}

// ClipResult records one extraction attempt. Immutable after creation.
type ClipResult struct {
	Index    int     `json:"index"`
	Title    string  `json:"title"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	ClipKey  string  `json:"clip_key"`
	ClipPath string  `json:"clip_path,omitempty"`
	Success  bool    `json:"success"`
	Error    string  `json:"error,omitempty"`
}

// Progress is emitted before each clip starts processing.
type Progress struct {
	Current int
	Total   int
	Title   string
}

// Transcript mirrors the upstream ASR output; only segment boundaries are
// consumed here, for clip window refinement.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}
