package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Remux rewrites an MP4 container with the moov atom relocated to the front
// so playback can start before the full file is downloaded. The source is
// replaced in place on success.
func Remux(ctx context.Context, binary, path string) error {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("ffmpeg remux: empty path")
	}

	tmp := tempOutputPath(path)
	cmd := exec.CommandContext(ctx, binary, remuxArgs(path, tmp)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("ffmpeg remux: %w: %s", err, strings.TrimSpace(string(output)))
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("ffmpeg remux replace: %w", err)
	}
	return nil
}

// ExtractFrame captures a single frame at the given offset in seconds and
// writes it to dst as a JPEG image.
func ExtractFrame(ctx context.Context, binary, src, dst string, offsetSeconds float64) error {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if strings.TrimSpace(src) == "" {
		return errors.New("ffmpeg extract frame: empty source")
	}
	if strings.TrimSpace(dst) == "" {
		return errors.New("ffmpeg extract frame: empty destination")
	}
	if offsetSeconds < 0 {
		offsetSeconds = 0
	}

	cmd := exec.CommandContext(ctx, binary, extractFrameArgs(src, dst, offsetSeconds)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("ffmpeg extract frame: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func remuxArgs(src, dst string) []string {
	return []string{
		"-v", "error",
		"-hide_banner",
		"-y",
		"-i", src,
		"-c", "copy",
		"-movflags", "+faststart",
		dst,
	}
}

func extractFrameArgs(src, dst string, offsetSeconds float64) []string {
	return []string{
		"-v", "error",
		"-hide_banner",
		"-y",
		"-ss", strconv.FormatFloat(offsetSeconds, 'f', 3, 64),
		"-i", src,
		"-frames:v", "1",
		"-q:v", "2",
		dst,
	}
}

func tempOutputPath(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	return filepath.Join(dir, "."+base+".remux.tmp"+filepath.Ext(path))
}
