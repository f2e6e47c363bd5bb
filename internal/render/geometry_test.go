package render

import (
	"image"
	"math"
	"testing"
)

func TestFitCrop(t *testing.T) {
	tests := []struct {
		name                   string
		srcW, srcH, dstW, dstH float64
		want                   Rect
	}{
		{
			name: "wide source into square keeps height",
			srcW: 200, srcH: 100, dstW: 92, dstH: 92,
			want: Rect{X: 50, Y: 0, W: 100, H: 100},
		},
		{
			name: "tall source into square keeps width",
			srcW: 100, srcH: 300, dstW: 50, dstH: 50,
			want: Rect{X: 0, Y: 100, W: 100, H: 100},
		},
		{
			name: "same aspect is the whole source",
			srcW: 640, srcH: 480, dstW: 320, dstH: 240,
			want: Rect{X: 0, Y: 0, W: 640, H: 480},
		},
		{
			name: "square source into landscape box",
			srcW: 100, srcH: 100, dstW: 200, dstH: 100,
			want: Rect{X: 0, Y: 25, W: 100, H: 50},
		},
		{
			name: "degenerate destination",
			srcW: 100, srcH: 100, dstW: 0, dstH: 100,
			want: Rect{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitCrop(tt.srcW, tt.srcH, tt.dstW, tt.dstH)
			if got != tt.want {
				t.Errorf("FitCrop() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFitCrop_Invariants(t *testing.T) {
	sizes := []float64{1, 3, 17, 92, 100, 200, 333, 1024}
	const eps = 1e-9

	for _, sw := range sizes {
		for _, sh := range sizes {
			for _, dw := range sizes {
				for _, dh := range sizes {
					c := FitCrop(sw, sh, dw, dh)
					if c.X < -eps || c.Y < -eps || c.X+c.W > sw+eps || c.Y+c.H > sh+eps {
						t.Fatalf("FitCrop(%v,%v,%v,%v) = %+v exceeds source", sw, sh, dw, dh, c)
					}
					if got, want := c.W/c.H, dw/dh; math.Abs(got-want) > 1e-9*want {
						t.Fatalf("FitCrop(%v,%v,%v,%v) aspect = %v, want %v", sw, sh, dw, dh, got, want)
					}
					if math.Abs(c.W-sw) > eps && math.Abs(c.H-sh) > eps {
						t.Fatalf("FitCrop(%v,%v,%v,%v) = %+v trims both axes", sw, sh, dw, dh, c)
					}
				}
			}
		}
	}
}

func TestRect_InsetAndPixels(t *testing.T) {
	inner := Rect{X: 30, Y: 80, W: 100, H: 100}.Inset(4)
	if inner != (Rect{X: 34, Y: 84, W: 92, H: 92}) {
		t.Errorf("Inset(4) = %+v", inner)
	}
	if got := inner.Pixels(); got != image.Rect(34, 84, 126, 176) {
		t.Errorf("Pixels() = %v", got)
	}

	if !(Rect{W: 10, H: 10}).Inset(5).Empty() {
		t.Error("10x10 inset by 5 should be empty")
	}
	if (Rect{W: 10, H: 10}).Inset(4.5).Empty() {
		t.Error("10x10 inset by 4.5 should not be empty")
	}
}

func TestLineTop(t *testing.T) {
	if got := LineTop(100, 0, 32); got != 100 {
		t.Errorf("LineTop(line 0) = %v", got)
	}
	if got := LineTop(100, 2, 20); got != 148 {
		t.Errorf("LineTop(line 2) = %v, want 148", got)
	}
}
