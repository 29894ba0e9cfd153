//go:build integration

package itest

import (
	"encoding/json"
	"fmt"
	"os/exec"
)

type probedGeometry struct {
	Width    int
	Height   int
	Duration float64
}

func probeGeometry(mp4Path string) (probedGeometry, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		mp4Path,
	)
	b, err := cmd.Output()
	if err != nil {
		return probedGeometry{}, fmt.Errorf("ffprobe: %w", err)
	}

	var out struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return probedGeometry{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	g := probedGeometry{}
	fmt.Sscanf(out.Format.Duration, "%f", &g.Duration)
	for _, s := range out.Streams {
		if s.CodecType == "video" {
			g.Width = s.Width
			g.Height = s.Height
			break
		}
	}
	if g.Width == 0 || g.Height == 0 {
		return probedGeometry{}, fmt.Errorf("no video stream in %s", mp4Path)
	}
	return g, nil
}
