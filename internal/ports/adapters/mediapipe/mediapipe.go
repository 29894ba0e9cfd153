// Package mediapipe invokes the external face/speaker analysis program and
// parses its JSON result. It is a black-box adapter: all detection happens
// in the external process.
package mediapipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/forPelevin/vertcut/internal/types"
)

type Adapter struct {
	bin string
	log zerolog.Logger
}

func New(binPath string, log zerolog.Logger) *Adapter {
	return &Adapter{
		bin: binPath,
		log: log.With().Str("component", "analyzer").Logger(),
	}
}

// Analyze runs the analyzer over a batch of frames. The result is a single
// JSON object on stdout; stderr carries diagnostics and is only surfaced on
// failure. A missing speaker signal is not an error: callers fall back.
func (a *Adapter) Analyze(ctx context.Context, framePaths []string, activeSpeaker bool) (types.FaceAnalysis, error) {
	args := append([]string{"--frames"}, framePaths...)
	if activeSpeaker {
		args = append(args, "--active-speaker")
	}

	cmd := exec.CommandContext(ctx, a.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return types.FaceAnalysis{}, &types.AnalyzerError{
			Err:    fmt.Errorf("run %s: %w", a.bin, err),
			Output: stderr.String(),
		}
	}

	res, err := parsePayload(stdout.Bytes())
	if err != nil {
		return types.FaceAnalysis{}, &types.AnalyzerError{Err: err, Output: stderr.String()}
	}
	a.log.Debug().
		Bool("ok", res.OK).
		Bool("multi_face", res.MultiFace).
		Int("frames", len(framePaths)).
		Msg("analyzer finished")
	return res, nil
}

// payload mirrors the analyzer's stdout JSON.
type payload struct {
	OK                 bool       `json:"ok"`
	Error              string     `json:"error"`
	MultiFace          bool       `json:"multi_face"`
	CenterX            *float64   `json:"center_x"`
	SpeakerCenterX     *float64   `json:"speaker_center_x"`
	SpeakerFrameRatio  *float64   `json:"speaker_frame_ratio"`
	SpeakerMotionRatio *float64   `json:"speaker_motion_ratio"`
	FrameCenters       []*float64 `json:"frame_centers"`
}

func parsePayload(b []byte) (types.FaceAnalysis, error) {
	var p payload
	if err := json.Unmarshal(b, &p); err != nil {
		return types.FaceAnalysis{}, fmt.Errorf("parse analyzer output: %w", err)
	}
	return types.FaceAnalysis{
		OK:                 p.OK,
		CenterX:            p.CenterX,
		MultiFace:          p.MultiFace,
		SpeakerCenterX:     p.SpeakerCenterX,
		SpeakerFrameRatio:  p.SpeakerFrameRatio,
		SpeakerMotionRatio: p.SpeakerMotionRatio,
		FrameCenters:       p.FrameCenters,
	}, nil
}
