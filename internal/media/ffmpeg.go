package media

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ---------------------------------------------------------------------------
// Toolchain — typed wrappers around the ffmpeg/ffprobe CLIs.
// ---------------------------------------------------------------------------

const concatFPS = 30

type Toolchain struct {
	ffmpegBin  string
	ffprobeBin string
	tempDir    string
}

func NewToolchain(ffmpegBin, ffprobeBin, tempDir string) *Toolchain {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		panic(fmt.Sprintf("failed to create temp dir: %v", err))
	}

	return &Toolchain{
		ffmpegBin:  ffmpegBin,
		ffprobeBin: ffprobeBin,
		tempDir:    tempDir,
	}
}

// ConcatListContent renders the ffmpeg concat demuxer list for segments,
// which must already be in playback order.
func ConcatListContent(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		// Single quotes around the path, concat demuxer format
		fmt.Fprintf(&b, "file '%s'\n", seg.Path)
	}
	return b.String()
}

// Concat re-encodes the ordered segments into one MP4.
func (t *Toolchain) Concat(ctx context.Context, segments []Segment, out string) error {
	if len(segments) == 0 {
		return fmt.Errorf("no segments to concatenate")
	}

	SortSegments(segments)

	listPath := filepath.Join(t.tempDir, fmt.Sprintf("concat_%s.txt", filepath.Base(out)))
	if err := os.WriteFile(listPath, []byte(ConcatListContent(segments)), 0644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-r", fmt.Sprintf("%d", concatFPS),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		out,
	}

	log.Printf("[FFmpeg] concatenating %d segments -> %s", len(segments), out)

	if err := t.runFFmpeg(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}

	return nil
}

// MergeAudio muxes an audio track onto a video: video stream copied, audio
// re-encoded to AAC, output trimmed to the shorter stream. The result's
// duration is min(video duration, audio duration) — callers relying on the
// full video length must supply audio at least as long.
func (t *Toolchain) MergeAudio(ctx context.Context, video, audio, out string) error {
	if _, err := os.Stat(video); err != nil {
		return fmt.Errorf("video file not found: %w", err)
	}
	if _, err := os.Stat(audio); err != nil {
		return fmt.Errorf("audio file not found: %w", err)
	}

	args := []string{
		"-y",
		"-i", video,
		"-i", audio,
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-map", "0:v:0",
		"-map", "1:a:0",
		out,
	}

	log.Printf("[FFmpeg] merging audio %s onto %s -> %s", audio, video, out)

	if err := t.runFFmpeg(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg merge failed: %w", err)
	}

	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("merged video missing after ffmpeg reported success: %w", err)
	}

	return nil
}

func (t *Toolchain) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, t.ffmpegBin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, truncate(stderr.String(), 1000))
	}

	return nil
}

// TempFile returns a path inside the toolchain's temp directory.
func (t *Toolchain) TempFile(filename string) string {
	return filepath.Join(t.tempDir, filename)
}

// Cleanup removes intermediate files, ignoring failures.
func (t *Toolchain) Cleanup(paths ...string) {
	for _, path := range paths {
		os.Remove(path)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
