package imageutil

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg"
	"testing"
)

func TestGenerateRenditionFitsBox(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		srcW, srcH   int
		boxW, boxH   int
		wantW, wantH int
	}{
		{name: "smaller than box stays unscaled", srcW: 100, srcH: 100, boxW: 200, boxH: 200, wantW: 100, wantH: 100},
		{name: "smaller than wide box", srcW: 100, srcH: 100, boxW: 600, boxH: 400, wantW: 100, wantH: 100},
		{name: "downscale square", srcW: 400, srcH: 400, boxW: 200, boxH: 200, wantW: 200, wantH: 200},
		{name: "wide source bounded by width", srcW: 400, srcH: 200, boxW: 200, boxH: 200, wantW: 200, wantH: 100},
		{name: "tall source bounded by height", srcW: 200, srcH: 400, boxW: 100, boxH: 100, wantW: 50, wantH: 100},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			src := splitImage(tc.srcW, tc.srcH, true)
			data, gotW, gotH, err := GenerateRendition(src, tc.boxW, tc.boxH, 85)
			if err != nil {
				t.Fatalf("GenerateRendition error: %v", err)
			}
			if gotW != tc.wantW || gotH != tc.wantH {
				t.Errorf("dimensions = %dx%d, want %dx%d", gotW, gotH, tc.wantW, tc.wantH)
			}
			if gotW > tc.boxW || gotH > tc.boxH {
				t.Errorf("output %dx%d exceeds box %dx%d", gotW, gotH, tc.boxW, tc.boxH)
			}
			if gotW > tc.srcW || gotH > tc.srcH {
				t.Errorf("output %dx%d upscaled beyond source %dx%d", gotW, gotH, tc.srcW, tc.srcH)
			}

			decoded, format, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("output does not decode: %v", err)
			}
			if format != "jpeg" {
				t.Errorf("output format = %q, want jpeg", format)
			}
			if b := decoded.Bounds(); b.Dx() != gotW || b.Dy() != gotH {
				t.Errorf("decoded dimensions %dx%d do not match reported %dx%d", b.Dx(), b.Dy(), gotW, gotH)
			}
		})
	}
}

func TestGenerateRenditionRejectsBadBox(t *testing.T) {
	t.Parallel()

	src := solidImage(10, 10, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	if _, _, _, err := GenerateRendition(src, 0, 100, 85); err == nil {
		t.Error("GenerateRendition with zero width succeeded, want error")
	}
	if _, _, _, err := GenerateRendition(src, 100, -1, 85); err == nil {
		t.Error("GenerateRendition with negative height succeeded, want error")
	}
}

func TestGenerateRenditionFlattensAlpha(t *testing.T) {
	t.Parallel()

	src := solidImage(50, 50, color.NRGBA{R: 200, G: 40, B: 40, A: 128})
	data, _, _, err := GenerateRendition(src, 100, 100, 85)
	if err != nil {
		t.Fatalf("GenerateRendition error: %v", err)
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("alpha source produced undecodable output: %v", err)
	}
}

func TestGenerateRenditionDeterministic(t *testing.T) {
	t.Parallel()

	// Stable for a fixed codec version; not guaranteed across versions.
	src := splitImage(100, 100, true)
	first, _, _, err := GenerateRendition(src, 50, 50, 85)
	if err != nil {
		t.Fatalf("GenerateRendition error: %v", err)
	}
	second, _, _, err := GenerateRendition(src, 50, 50, 85)
	if err != nil {
		t.Fatalf("GenerateRendition error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("repeated encodes of the same input differ")
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := DecodeImage([]byte("definitely not an image")); err == nil {
		t.Error("DecodeImage accepted garbage input")
	}
}

func TestQualityMetric(t *testing.T) {
	t.Parallel()

	if got := QualityMetric(100, 100, 5000); got != 0.5 {
		t.Errorf("QualityMetric(100, 100, 5000) = %v, want 0.5", got)
	}
	if got := QualityMetric(0, 100, 5000); got != 0 {
		t.Errorf("QualityMetric with zero width = %v, want 0", got)
	}
}
