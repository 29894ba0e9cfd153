package crop

import "math"

// Segment is a time interval during which the crop window is held fixed.
type Segment struct {
	StartSec float64
	EndSec   float64
	CenterX  float64
}

// DynamicPlan is a gapless, ordered segment list covering a clip's full
// range, sharing one crop size. NeedsCrop false means the original framing
// is kept and Segments is empty.
type DynamicPlan struct {
	Width     int
	Height    int
	NeedsCrop bool
	Segments  []Segment
}

// SampleCount scales the number of analysis instants with clip duration.
func SampleCount(durationSec float64) int {
	c := int(math.Round(durationSec/10)) + 2
	if c < 3 {
		c = 3
	}
	if c > 9 {
		c = 9
	}
	return c
}

// Smooth applies exponential smoothing to per-frame center estimates.
// Absent values are filled by carry-forward from the previous smoothed
// value, or fallback for the first sample. A constant input stays constant.
func Smooth(raw []*float64, alpha, fallback float64) []float64 {
	out := make([]float64, len(raw))
	prev := fallback
	for i, r := range raw {
		v := prev
		if r != nil {
			v = *r
		}
		if i == 0 {
			out[i] = v
		} else {
			out[i] = prev*(1-alpha) + v*alpha
		}
		prev = out[i]
	}
	return out
}

type observation struct {
	t   float64
	cx  float64
	n   int
	sum float64
	st  float64
}

// BuildSegments turns smoothed per-instant centers into a small number of
// stable crop segments. Consecutive samples whose centers differ by less
// than jitter are averaged into one observation; observation boundaries sit
// at the time midpoint between neighbours; segments shorter than minSegment
// are merged into their predecessor.
func BuildSegments(times, centers []float64, clipStart, clipEnd, jitter, minSegment float64) []Segment {
	n := len(times)
	if len(centers) < n {
		n = len(centers)
	}
	if n == 0 || clipEnd <= clipStart {
		return nil
	}

	var obs []observation
	for i := 0; i < n; i++ {
		if len(obs) > 0 {
			cur := &obs[len(obs)-1]
			if math.Abs(centers[i]-cur.cx) < jitter {
				cur.sum += centers[i]
				cur.st += times[i]
				cur.n++
				cur.cx = cur.sum / float64(cur.n)
				cur.t = cur.st / float64(cur.n)
				continue
			}
		}
		obs = append(obs, observation{
			t: times[i], cx: centers[i],
			n: 1, sum: centers[i], st: times[i],
		})
	}

	segs := make([]Segment, len(obs))
	for i, o := range obs {
		segs[i].CenterX = o.cx
		if i == 0 {
			segs[i].StartSec = clipStart
		} else {
			segs[i].StartSec = (obs[i-1].t + o.t) / 2
		}
		if i == len(obs)-1 {
			segs[i].EndSec = clipEnd
		} else {
			segs[i].EndSec = (o.t + obs[i+1].t) / 2
		}
	}
	return MergeShort(segs, minSegment)
}

// MergeShort folds segments shorter than minDur into their predecessor,
// averaging the center in and extending the end time. Very short segments
// produce visually jittery, expensive cuts. Idempotent on already-merged
// input.
func MergeShort(segs []Segment, minDur float64) []Segment {
	if len(segs) == 0 {
		return segs
	}
	out := make([]Segment, 0, len(segs))
	out = append(out, segs[0])
	for _, s := range segs[1:] {
		prev := &out[len(out)-1]
		if s.EndSec-s.StartSec < minDur {
			prev.CenterX = (prev.CenterX + s.CenterX) / 2
			prev.EndSec = s.EndSec
			continue
		}
		out = append(out, s)
	}
	// A short head segment has no predecessor: fold it forward instead.
	if len(out) > 1 && out[0].EndSec-out[0].StartSec < minDur {
		out[1].CenterX = (out[0].CenterX + out[1].CenterX) / 2
		out[1].StartSec = out[0].StartSec
		out = out[1:]
	}
	return out
}
