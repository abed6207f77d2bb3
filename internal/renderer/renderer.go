package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mathtutor/videolab/internal/media"
	"github.com/mathtutor/videolab/internal/models"
)

// qualityDir is the resolution folder manim creates for -qh renders. The
// runner pins quality and media dir on the command line, so this is the one
// place the artifact can be — no candidate-directory guessing.
const qualityDir = "1080p60"

// Runner renders manim scenes. A job moves Pending → Running →
// {Succeeded | Failed | TimedOut}; the terminal state is derived from the
// returned error via StatusFor.
type Runner struct {
	manimBin  string
	tempDir   string
	mediaDir  string
	outputDir string
	timeout   time.Duration
	locks     *NameLocks
	toolchain *media.Toolchain
}

func New(manimBin, tempDir, mediaDir, outputDir string, timeout time.Duration, toolchain *media.Toolchain) *Runner {
	for _, dir := range []string{tempDir, mediaDir, outputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			panic(fmt.Sprintf("failed to create %s: %v", dir, err))
		}
	}

	return &Runner{
		manimBin:  manimBin,
		tempDir:   tempDir,
		mediaDir:  mediaDir,
		outputDir: outputDir,
		timeout:   timeout,
		locks:     NewNameLocks(),
		toolchain: toolchain,
	}
}

// Locks exposes the output-name lock registry so callers can probe or park
// names themselves.
func (r *Runner) Locks() *NameLocks {
	return r.locks
}

// Render executes one render job and returns the final artifact. All
// failures are *RenderError values carrying the taxonomy kind.
func (r *Runner) Render(ctx context.Context, job *models.RenderJob) (*models.Artifact, error) {
	if !r.locks.Acquire(job.OutputName) {
		return nil, newRenderError(KindConflict,
			fmt.Sprintf("a render named %q is already in progress", job.OutputName), "")
	}
	defer r.locks.Release(job.OutputName)

	scriptPath := filepath.Join(r.tempDir, job.OutputName+".py")
	if err := os.WriteFile(scriptPath, []byte(job.Script), 0644); err != nil {
		return nil, newRenderError(KindExit, fmt.Sprintf("failed to write scene script: %v", err), "")
	}
	defer os.Remove(scriptPath)

	if err := r.runManim(ctx, scriptPath, job); err != nil {
		return nil, err
	}

	return r.locateArtifact(ctx, job)
}

func (r *Runner) runManim(ctx context.Context, scriptPath string, job *models.RenderJob) error {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := []string{
		scriptPath,
		job.SceneName,
		"-o", job.OutputName + ".mp4",
		"-qh",
		"--media_dir", r.mediaDir,
	}

	log.Printf("[Renderer] rendering %s (scene=%s, timeout=%s)", job.OutputName, job.SceneName, r.timeout)

	cmd := exec.CommandContext(runCtx, r.manimBin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = io.Discard

	err := cmd.Run()
	if err == nil {
		return nil
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return newRenderError(KindTimeout,
			fmt.Sprintf("render exceeded %s wall-clock limit", r.timeout), stderr.String())
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		return newRenderError(KindToolNotFound,
			fmt.Sprintf("%s is not installed or not in PATH", r.manimBin), "")
	}

	kind := classifyStderr(stderr.String())
	return newRenderError(kind, "manim exited with an error", stderr.String())
}

// locateArtifact picks up the render output. The media dir and quality are
// fixed on the command line, so the final file has exactly one possible
// location; when manim leaves only partial movie files, they are assembled
// in render order instead.
func (r *Runner) locateArtifact(ctx context.Context, job *models.RenderJob) (*models.Artifact, error) {
	finalPath := filepath.Join(r.outputDir, job.OutputName+".mp4")
	renderedPath := filepath.Join(r.sceneDir(job), job.OutputName+".mp4")
	partialDir := filepath.Join(r.sceneDir(job), "partial_movie_files", job.SceneName)

	segmentCount := 0
	if segments, err := media.CollectSegments(partialDir); err == nil {
		segmentCount = len(segments)
	}

	if _, err := os.Stat(renderedPath); err == nil {
		if err := copyFile(renderedPath, finalPath); err != nil {
			return nil, newRenderError(KindExit, fmt.Sprintf("failed to copy artifact: %v", err), "")
		}
	} else {
		// No single output file — assemble the partial segments.
		segments, segErr := media.CollectSegments(partialDir)
		if segErr != nil {
			return nil, newRenderError(KindArtifactMissing,
				fmt.Sprintf("no video produced for %s: %v", job.OutputName, segErr), "")
		}
		segmentCount = len(segments)

		if err := r.toolchain.Concat(ctx, segments, finalPath); err != nil {
			return nil, newRenderError(KindExit, fmt.Sprintf("segment assembly failed: %v", err), "")
		}
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, newRenderError(KindArtifactMissing,
			fmt.Sprintf("final artifact missing after render: %v", err), "")
	}

	log.Printf("[Renderer] %s rendered (%d bytes, %d segments)", job.OutputName, info.Size(), segmentCount)

	return &models.Artifact{
		VideoPath:    finalPath,
		ByteSize:     info.Size(),
		SegmentCount: segmentCount,
	}, nil
}

// sceneDir is manim's output directory for this job: the script stem equals
// the output name because the runner writes the script as <output_name>.py.
func (r *Runner) sceneDir(job *models.RenderJob) string {
	return filepath.Join(r.mediaDir, "videos", job.OutputName, qualityDir)
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
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
