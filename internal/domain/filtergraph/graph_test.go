package filtergraph

import "testing"

func TestBuild_TwoSegments(t *testing.T) {
	g := Build([]Segment{
		{Start: 10, End: 17.25, Crop: Crop{Width: 676, Height: 1080, X: 100}},
		{Start: 17.25, End: 25, Crop: Crop{Width: 676, Height: 1080, X: 600}},
	})

	want := "[0:v]trim=start=10.000:end=17.250,setpts=PTS-STARTPTS,crop=676:1080:100:0[v0];" +
		"[0:a]atrim=start=10.000:end=17.250,asetpts=PTS-STARTPTS[a0];" +
		"[0:v]trim=start=17.250:end=25.000,setpts=PTS-STARTPTS,crop=676:1080:600:0[v1];" +
		"[0:a]atrim=start=17.250:end=25.000,asetpts=PTS-STARTPTS[a1];" +
		"[v0][a0][v1][a1]concat=n=2:v=1:a=1[vout][aout]"
	if got := g.FilterComplex(); got != want {
		t.Fatalf("graph mismatch:\n got %s\nwant %s", got, want)
	}
	if g.VideoLabel() != "[vout]" || g.AudioLabel() != "[aout]" {
		t.Fatalf("unexpected labels %s %s", g.VideoLabel(), g.AudioLabel())
	}
}

func TestBuild_SingleSegmentSkipsTrimConcat(t *testing.T) {
	g := Build([]Segment{
		{Start: 0, End: 30, Crop: Crop{Width: 450, Height: 720, X: 415}},
	})
	want := "[0:v]crop=450:720:415:0[vout];[0:a]acopy[aout]"
	if got := g.FilterComplex(); got != want {
		t.Fatalf("graph = %s, want %s", got, want)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	segs := []Segment{
		{Start: 1, End: 2, Crop: Crop{Width: 10, Height: 16, X: 3}},
		{Start: 2, End: 4, Crop: Crop{Width: 10, Height: 16, X: 5}},
	}
	if Build(segs).FilterComplex() != Build(segs).FilterComplex() {
		t.Fatalf("builder must be pure")
	}
}

func TestCropString(t *testing.T) {
	c := Crop{Width: 676, Height: 1080, X: 622}
	if got := c.String(); got != "crop=676:1080:622:0" {
		t.Fatalf("crop = %s", got)
	}
}
