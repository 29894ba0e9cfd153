// Package filtergraph compiles crop segment lists into ffmpeg
// filter_complex descriptions. The builder is pure: the same plan always
// yields the same graph, so it is testable without an encoder.
package filtergraph

import (
	"fmt"
	"strings"
)

// Crop is one crop filter invocation.
type Crop struct {
	Width  int
	Height int
	X      int
	Y      int
}

func (c Crop) String() string {
	return fmt.Sprintf("crop=%d:%d:%d:%d", c.Width, c.Height, c.X, c.Y)
}

// Segment restricts the stream to [Start,End) with one fixed crop window.
type Segment struct {
	Start float64
	End   float64
	Crop  Crop
}

// Graph is a compiled trim→crop→concat description.
type Graph struct {
	chains   []string
	videoOut string
	audioOut string
}

// Build compiles segments, in playback order, into a graph that trims video
// and audio per segment (timestamps reset to zero) and concatenates the
// pairs into single output streams.
func Build(segments []Segment) Graph {
	g := Graph{videoOut: "vout", audioOut: "aout"}
	if len(segments) == 0 {
		return g
	}
	if len(segments) == 1 {
		// Degenerate case kept for completeness; callers normally apply the
		// crop directly without the trim/concat machinery.
		s := segments[0]
		g.chains = append(g.chains,
			fmt.Sprintf("[0:v]%s[%s]", s.Crop, g.videoOut),
			fmt.Sprintf("[0:a]acopy[%s]", g.audioOut),
		)
		return g
	}

	var concatIn strings.Builder
	for i, s := range segments {
		g.chains = append(g.chains,
			fmt.Sprintf("[0:v]trim=start=%.3f:end=%.3f,setpts=PTS-STARTPTS,%s[v%d]",
				s.Start, s.End, s.Crop, i),
			fmt.Sprintf("[0:a]atrim=start=%.3f:end=%.3f,asetpts=PTS-STARTPTS[a%d]",
				s.Start, s.End, i),
		)
		fmt.Fprintf(&concatIn, "[v%d][a%d]", i, i)
	}
	g.chains = append(g.chains, fmt.Sprintf("%sconcat=n=%d:v=1:a=1[%s][%s]",
		concatIn.String(), len(segments), g.videoOut, g.audioOut))
	return g
}

// FilterComplex renders the graph for -filter_complex.
func (g Graph) FilterComplex() string { return strings.Join(g.chains, ";") }

// VideoLabel and AudioLabel name the graph outputs for -map.
func (g Graph) VideoLabel() string { return "[" + g.videoOut + "]" }
func (g Graph) AudioLabel() string { return "[" + g.audioOut + "]" }
