package ffmpeg_test

import (
	"testing"

	"github.com/clipforge/clipforge/internal/ffmpeg"
)

func TestBuildFilters(t *testing.T) {
	if got := ffmpeg.BuildFilters(ffmpeg.AspectVertical); got != "scale=1080:-2,crop=1080:1920" {
		t.Fatalf("vertical filters = %q", got)
	}
	if got := ffmpeg.BuildFilters(ffmpeg.AspectSquare); got != "scale=1080:-2,crop=1080:1080" {
		t.Fatalf("square filters = %q", got)
	}
}

func TestCropFilterCentered(t *testing.T) {
	// 1920x1080 source, subject dead center: 607-wide window starting at 657.
	got := ffmpeg.CropFilter(1920, 1080, 0.5)
	if got != "crop=607:1080:657:0" {
		t.Fatalf("CropFilter = %q", got)
	}
}

func TestCropFilterClampsLeftEdge(t *testing.T) {
	got := ffmpeg.CropFilter(1920, 1080, 0.0)
	if got != "crop=607:1080:0:0" {
		t.Fatalf("CropFilter = %q", got)
	}
}

func TestCropFilterClampsRightEdge(t *testing.T) {
	got := ffmpeg.CropFilter(1920, 1080, 1.0)
	if got != "crop=607:1080:1313:0" {
		t.Fatalf("CropFilter = %q", got)
	}
}

func TestCropFilterUsesProbedDimensions(t *testing.T) {
	// 4K source: the window scales with the real input, not an assumed 1080p.
	got := ffmpeg.CropFilter(3840, 2160, 0.5)
	if got != "crop=1215:2160:1313:0" {
		t.Fatalf("CropFilter = %q", got)
	}
}

func TestCropFilterNarrowSource(t *testing.T) {
	// Already narrower than 9:16: crop the full width.
	got := ffmpeg.CropFilter(500, 1080, 0.5)
	if got != "crop=500:1080:0:0" {
		t.Fatalf("CropFilter = %q", got)
	}
}
