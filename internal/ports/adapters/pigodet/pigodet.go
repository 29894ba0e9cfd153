// Package pigodet is the secondary, simpler face detector used when the
// primary analyzer yields no usable center. It runs in-process via pigo.
package pigodet

import (
	"context"
	"fmt"
	"os"
	"sync"

	pigo "github.com/esimov/pigo/core"
	"github.com/rs/zerolog"
)

// The cascade unpack is expensive, so the classifier is loaded once per
// process and shared by reference for the process lifetime.
var (
	loadOnce   sync.Once
	classifier *pigo.Pigo
	loadErr    error
)

type Detector struct {
	cascadePath string
	log         zerolog.Logger
}

func New(cascadePath string, log zerolog.Logger) *Detector {
	return &Detector{
		cascadePath: cascadePath,
		log:         log.With().Str("component", "pigo").Logger(),
	}
}

func (d *Detector) load() (*pigo.Pigo, error) {
	loadOnce.Do(func() {
		b, err := os.ReadFile(d.cascadePath)
		if err != nil {
			loadErr = fmt.Errorf("read cascade %s: %w", d.cascadePath, err)
			return
		}
		classifier, loadErr = pigo.NewPigo().Unpack(b)
	})
	return classifier, loadErr
}

// DetectCenterX averages the best detection's center X across the frames.
// ok is false when no frame produced a confident detection.
func (d *Detector) DetectCenterX(ctx context.Context, framePaths []string) (float64, bool, error) {
	p, err := d.load()
	if err != nil {
		return 0, false, err
	}

	var sum float64
	var hits int
	for _, path := range framePaths {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}
		cx, ok := bestCenterX(p, path)
		if !ok {
			continue
		}
		sum += cx
		hits++
	}
	if hits == 0 {
		d.log.Debug().Int("frames", len(framePaths)).Msg("no face found")
		return 0, false, nil
	}
	return sum / float64(hits), true, nil
}

func bestCenterX(p *pigo.Pigo, path string) (float64, bool) {
	src, err := pigo.GetImage(path)
	if err != nil {
		return 0, false
	}
	pixels := pigo.RgbToGrayscale(src)
	cols, rows := src.Bounds().Max.X, src.Bounds().Max.Y

	params := pigo.CascadeParams{
		MinSize:     20,
		MaxSize:     rows,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}
	dets := p.RunCascade(params, 0.0)
	dets = p.ClusterDetections(dets, 0.2)

	const minQuality = 5.0
	best := -1
	for i, det := range dets {
		if det.Q < minQuality {
			continue
		}
		if best < 0 || det.Scale > dets[best].Scale {
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return float64(dets[best].Col), true
}
