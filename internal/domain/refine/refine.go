// Package refine post-processes clip windows against the transcript so cuts
// land on sentence boundaries instead of mid-word.
package refine

import (
	"math"
	"sort"

	"github.com/forPelevin/vertcut/internal/types"
)

type Options struct {
	MinLen float64 // seconds
	MaxLen float64
	Pad    float64 // context padding applied before snapping
}

func DefaultOptions() Options {
	return Options{MinLen: 15, MaxLen: 60, Pad: 1.5}
}

// Clips snaps each window to transcript segment boundaries, pads it for
// context, enforces the duration bounds around the window's anchor midpoint
// and drops near-duplicates. Windows pass through unchanged when the
// transcript is empty.
func Clips(clips []types.ClipSpec, tr types.Transcript, opts Options) []types.ClipSpec {
	if len(tr.Segments) == 0 || len(clips) == 0 {
		return clips
	}
	segs := append([]types.Segment(nil), tr.Segments...)
	sort.Slice(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })

	b := bounds{segs: segs, lo: segs[0].Start, hi: segs[0].End}
	for _, s := range segs {
		if s.Start < b.lo {
			b.lo = s.Start
		}
		if s.End > b.hi {
			b.hi = s.End
		}
	}

	var out []types.ClipSpec
	for _, c := range clips {
		if c.EndSec <= c.StartSec {
			continue
		}
		anchor := (c.StartSec + c.EndSec) / 2
		start := b.snapStart(b.clamp(c.StartSec - opts.Pad))
		end := b.snapEnd(b.clamp(c.EndSec + opts.Pad))
		start, end = b.enforceLength(start, end, anchor, opts)
		if end-start < opts.MinLen && b.hi-b.lo >= opts.MinLen {
			continue
		}
		// When the transcript itself is shorter than MinLen, keep what we have.
		refined := types.ClipSpec{
			Title:    c.Title,
			StartSec: round2(start),
			EndSec:   round2(end),
		}
		if !similarToAny(refined, out) {
			out = append(out, refined)
		}
	}
	if len(out) == 0 {
		return clips
	}
	return out
}

type bounds struct {
	segs   []types.Segment
	lo, hi float64
}

func (b bounds) clamp(t float64) float64 {
	return math.Max(b.lo, math.Min(b.hi, t))
}

// snapStart returns the start of the segment overlapping t, or the nearest
// earlier segment start.
func (b bounds) snapStart(t float64) float64 {
	for _, s := range b.segs {
		if s.Start <= t && t <= s.End {
			return s.Start
		}
	}
	best := b.lo
	for _, s := range b.segs {
		if s.Start <= t && s.Start > best {
			best = s.Start
		}
	}
	return best
}

// snapEnd returns the end of the segment overlapping t, or the nearest
// later segment end.
func (b bounds) snapEnd(t float64) float64 {
	for _, s := range b.segs {
		if s.Start <= t && t <= s.End {
			return s.End
		}
	}
	best := b.hi
	for _, s := range b.segs {
		if s.End >= t && s.End < best {
			best = s.End
		}
	}
	return best
}

func (b bounds) enforceLength(start, end, anchor float64, opts Options) (float64, float64) {
	dur := end - start
	if dur > opts.MaxLen || dur < opts.MinLen {
		target := opts.MaxLen
		if dur < opts.MinLen {
			target = opts.MinLen
		}
		start = b.snapStart(b.clamp(anchor - target/2))
		end = b.snapEnd(b.clamp(anchor + target/2))
	}
	// Snapping can overshoot the maximum again; cut hard rather than loop.
	if end-start > opts.MaxLen {
		end = b.clamp(start + opts.MaxLen)
	}
	if end-start < opts.MinLen && b.hi-b.lo >= opts.MinLen {
		start = b.clamp(anchor - opts.MinLen/2)
		end = b.clamp(anchor + opts.MinLen/2)
	}
	return start, end
}

// similarToAny reports whether the window nearly duplicates an accepted one:
// boundaries within half a second, or at least 85% overlap of the shorter.
func similarToAny(c types.ClipSpec, accepted []types.ClipSpec) bool {
	for _, a := range accepted {
		if math.Abs(a.StartSec-c.StartSec) < 0.5 && math.Abs(a.EndSec-c.EndSec) < 0.5 {
			return true
		}
		overlap := math.Min(a.EndSec, c.EndSec) - math.Max(a.StartSec, c.StartSec)
		shorter := math.Max(0.1, math.Min(a.EndSec-a.StartSec, c.EndSec-c.StartSec))
		if overlap > 0 && overlap/shorter >= 0.85 {
			return true
		}
	}
	return false
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
