package types

import "fmt"

// ProbeError means the source geometry could not be determined. Fatal for
// crop planning of that video.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string { return fmt.Sprintf("probe %s: %v", e.Path, e.Err) }
func (e *ProbeError) Unwrap() error { return e.Err }

// FrameExtractionError means a still-frame capture failed. Aborts the
// current plan computation; the planner falls back to the geometric center.
type FrameExtractionError struct {
	AtSec float64
	Err   error
}

func (e *FrameExtractionError) Error() string {
	return fmt.Sprintf("extract frame at %.3fs: %v", e.AtSec, e.Err)
}
func (e *FrameExtractionError) Unwrap() error { return e.Err }

// AnalyzerError means the external analyzer exited non-zero or produced
// unparseable output. Always absorbed by the fallback chain.
type AnalyzerError struct {
	Err    error
	Output string
}

func (e *AnalyzerError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("face analyzer: %v\n%s", e.Err, e.Output)
	}
	return fmt.Sprintf("face analyzer: %v", e.Err)
}
func (e *AnalyzerError) Unwrap() error { return e.Err }

// EncodeError means an extraction failed or produced an undersized file.
// Triggers the one-shot forced re-encode retry; surfaces per clip.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("encode %s: %v", e.Path, e.Err) }
func (e *EncodeError) Unwrap() error { return e.Err }
