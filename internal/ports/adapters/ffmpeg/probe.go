package ffmpeg

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/forPelevin/vertcut/internal/types"
)

// probeResult matches the ffprobe JSON output structure.
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func parseProbe(b []byte) (types.VideoMetadata, error) {
	var pr probeResult
	if err := json.Unmarshal(b, &pr); err != nil {
		return types.VideoMetadata{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var meta types.VideoMetadata
	for _, s := range pr.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			meta.Width = s.Width
			meta.Height = s.Height
			break
		}
	}
	if meta.Width == 0 || meta.Height == 0 {
		return types.VideoMetadata{}, errors.New("no video stream with usable dimensions")
	}

	// Duration is optional: some containers omit it and the planners treat
	// 0 as "unknown".
	if dur, err := strconv.ParseFloat(pr.Format.Duration, 64); err == nil && dur > 0 {
		meta.DurationSec = dur
	}
	return meta, nil
}
