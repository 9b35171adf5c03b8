package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// AspectProfile names a target output shape for rendered clips.
type AspectProfile string

const (
	AspectVertical AspectProfile = "9:16"
	AspectSquare   AspectProfile = "1:1"
)

// FFmpeg shells out to the ffmpeg/ffprobe binaries. It implements the codec
// collaborator used by the pipeline handlers.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
}

func New(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// ProbeDuration returns the media duration in seconds.
func (f *FFmpeg) ProbeDuration(ctx context.Context, file string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		file)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(output)), err)
	}
	return duration, nil
}

type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// ProbeDimensions returns the width and height of the first video stream.
func (f *FFmpeg) ProbeDimensions(ctx context.Context, file string) (int, int, error) {
	cmd := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		file)
	output, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe streams: %w", err)
	}
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	for _, s := range result.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			return s.Width, s.Height, nil
		}
	}
	return 0, 0, fmt.Errorf("no video stream in %s", file)
}

// Cut slices [start, start+duration) out of input without re-encoding.
func (f *FFmpeg) Cut(ctx context.Context, input, output string, start, duration float64) error {
	return f.run(ctx,
		"-y",
		"-ss", formatSeconds(start),
		"-i", input,
		"-t", formatSeconds(duration),
		"-c", "copy",
		output)
}

// Render re-encodes [start, start+duration) into the given aspect profile.
// cropFilter, when non-empty, replaces the default center crop (used for
// subject-tracked smart crops).
func (f *FFmpeg) Render(ctx context.Context, input, output string, start, duration float64, profile AspectProfile, cropFilter string) error {
	filters := cropFilter
	if filters == "" {
		filters = BuildFilters(profile)
	}
	return f.run(ctx,
		"-y",
		"-ss", formatSeconds(start),
		"-i", input,
		"-t", formatSeconds(duration),
		"-vf", filters,
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
		"-c:a", "aac",
		output)
}

// ExtractAudio writes an mp3 of the input's audio track. A negative start
// extracts the whole file.
func (f *FFmpeg) ExtractAudio(ctx context.Context, input, output string, start, duration float64) error {
	args := []string{"-y"}
	if start >= 0 {
		args = append(args, "-ss", formatSeconds(start))
	}
	args = append(args, "-i", input)
	if start >= 0 && duration > 0 {
		args = append(args, "-t", formatSeconds(duration))
	}
	args = append(args, "-vn", "-acodec", "libmp3lame", output)
	return f.run(ctx, args...)
}

// BuildFilters returns the default scale+center-crop filter chain for a
// profile.
func BuildFilters(profile AspectProfile) string {
	if profile == AspectSquare {
		return "scale=1080:-2,crop=1080:1080"
	}
	return "scale=1080:-2,crop=1080:1920"
}

// CropFilter builds an ffmpeg crop expression for a vertical clip centered on
// centerX (normalized 0-1), using the probed source dimensions.
func CropFilter(srcWidth, srcHeight int, centerX float64) string {
	targetW := srcHeight * 9 / 16
	if targetW > srcWidth {
		targetW = srcWidth
	}
	cropX := int(centerX*float64(srcWidth)) - targetW/2
	if cropX < 0 {
		cropX = 0
	}
	if cropX+targetW > srcWidth {
		cropX = srcWidth - targetW
	}
	return fmt.Sprintf("crop=%d:%d:%d:0", targetW, srcHeight, cropX)
}

func (f *FFmpeg) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, f.FFmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		tail := string(output)
		if len(tail) > 512 {
			tail = tail[len(tail)-512:]
		}
		return fmt.Errorf("ffmpeg %s: %w: %s", args[0], err, tail)
	}
	return nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
