package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalSource stages source media into the shared tmp workspace. When a
// sample video is configured it is copied in place of a real download, which
// keeps the pipeline runnable without platform credentials.
type LocalSource struct {
	TmpDir          string
	SampleVideoPath string
	WatchDir        string
}

func NewLocalSource(tmpDir, sampleVideoPath, watchDir string) *LocalSource {
	return &LocalSource{TmpDir: tmpDir, SampleVideoPath: sampleVideoPath, WatchDir: watchDir}
}

// Fetch materializes the source media for videoID and returns its local path.
// Drop-folder files take priority over the configured sample.
func (s *LocalSource) Fetch(ctx context.Context, videoID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.TmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	target := filepath.Join(s.TmpDir, videoID+".mp4")
	if s.WatchDir != "" {
		for _, ext := range []string{".mp4", ".mov", ".mkv"} {
			dropped := filepath.Join(s.WatchDir, videoID+ext)
			if _, err := os.Stat(dropped); err == nil {
				if err := copyFile(dropped, target); err != nil {
					return "", fmt.Errorf("stage dropped file: %w", err)
				}
				return target, nil
			}
		}
	}
	if s.SampleVideoPath != "" {
		if err := copyFile(s.SampleVideoPath, target); err != nil {
			return "", fmt.Errorf("stage sample video: %w", err)
		}
		return target, nil
	}

	// No sample configured: leave an empty placeholder so downstream probing
	// fails loudly instead of on a missing path.
	if err := os.WriteFile(target, nil, 0o644); err != nil {
		return "", fmt.Errorf("stage placeholder: %w", err)
	}
	return target, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
