package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mathtutor/videolab/internal/media"
	"github.com/mathtutor/videolab/internal/models"
	"github.com/mathtutor/videolab/internal/queue"
	"github.com/mathtutor/videolab/internal/renderer"
	"github.com/mathtutor/videolab/internal/store"
	"github.com/mathtutor/videolab/internal/tts"
)

// Worker drains the render queue. Each job renders the scene and, when
// narration is requested, synthesizes audio in parallel; the two pipelines
// converge at the merge step.
type Worker struct {
	store     *store.Store // nil when no manifest is configured
	queue     *queue.Queue
	runner    *renderer.Runner
	toolchain *media.Toolchain
	tts       tts.Service // nil when no provider is configured
	tempDir   string
}

func New(st *store.Store, q *queue.Queue, runner *renderer.Runner, toolchain *media.Toolchain, ttsSvc tts.Service, tempDir string) *Worker {
	return &Worker{
		store:     st,
		queue:     q,
		runner:    runner,
		toolchain: toolchain,
		tts:       ttsSvc,
		tempDir:   tempDir,
	}
}

// Start begins processing render jobs until ctx is cancelled.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}
	log.Printf("[Worker] started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx)
	}

	<-ctx.Done()
	log.Println("[Worker] shutting down...")
}

func (w *Worker) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.DequeueRender(ctx, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[Worker] dequeue error: %v", err)
				continue
			}
			if job == nil {
				continue // No job available, retry
			}

			log.Printf("[Worker] processing render job %s (output=%s)", job.ID, job.OutputName)

			w.setStatus(ctx, job.ID, models.RenderStatusRunning)

			if err := w.handleRender(ctx, job); err != nil {
				log.Printf("[Worker] job %s failed: %v", job.ID, err)
				w.recordFailure(ctx, job.ID, err)
			} else {
				log.Printf("[Worker] job %s completed", job.ID)
			}
		}
	}
}

// handleRender runs the render pipeline and the narration pipeline in
// parallel, then merges audio onto the assembled video.
func (w *Worker) handleRender(ctx context.Context, job *models.RenderJob) error {
	var (
		artifact    *models.Artifact
		audioPath   string
		synthesized bool
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		artifact, err = w.runner.Render(gctx, job)
		return err
	})

	g.Go(func() error {
		var err error
		audioPath, synthesized, err = w.prepareAudio(gctx, job)
		return err
	})

	if err := g.Wait(); err != nil {
		if synthesized {
			w.toolchain.Cleanup(audioPath)
		}
		return err
	}
	if synthesized {
		defer w.toolchain.Cleanup(audioPath)
	}

	if audioPath != "" {
		merged := withAudioPath(artifact.VideoPath)
		if err := w.toolchain.MergeAudio(ctx, artifact.VideoPath, audioPath, merged); err != nil {
			return fmt.Errorf("audio merge failed: %w", err)
		}
		if info, err := os.Stat(merged); err == nil {
			artifact.VideoPath = merged
			artifact.ByteSize = info.Size()
		}
	}

	if w.store != nil {
		if err := w.store.CompleteRender(ctx, job.ID, artifact); err != nil {
			log.Printf("[Worker] failed to record completion for %s: %v", job.ID, err)
		}
	}
	return nil
}

// prepareAudio resolves the narration track: an explicit audio_path wins,
// otherwise narration text is synthesized to a temp file. Empty result
// means a silent video. synthesized reports whether the returned path is a
// temp file the caller must clean up after the merge.
func (w *Worker) prepareAudio(ctx context.Context, job *models.RenderJob) (path string, synthesized bool, err error) {
	if job.AudioPath != "" {
		if _, err := os.Stat(job.AudioPath); err != nil {
			return "", false, fmt.Errorf("audio file not found: %s", job.AudioPath)
		}
		return job.AudioPath, false, nil
	}

	if job.Narration == "" {
		return "", false, nil
	}
	if w.tts == nil {
		log.Printf("[Worker] job %s requests narration but no TTS provider is configured", job.ID)
		return "", false, nil
	}

	res, err := w.tts.Synthesize(ctx, job.Narration)
	if err != nil {
		return "", false, fmt.Errorf("narration synthesis failed: %w", err)
	}

	path = filepath.Join(w.tempDir, fmt.Sprintf("%s_narration.%s", job.OutputName, res.Format))
	if err := os.WriteFile(path, res.AudioData, 0644); err != nil {
		return "", false, fmt.Errorf("failed to write narration audio: %w", err)
	}

	log.Printf("[Worker] narration ready for %s (%d bytes, ~%dms)", job.OutputName, len(res.AudioData), res.DurationMs)
	return path, true, nil
}

func (w *Worker) setStatus(ctx context.Context, id uuid.UUID, status models.RenderStatus) {
	if w.store == nil {
		return
	}
	if err := w.store.UpdateRenderStatus(ctx, id, status); err != nil {
		log.Printf("[Worker] failed to update status for %s: %v", id, err)
	}
}

func (w *Worker) recordFailure(ctx context.Context, id uuid.UUID, err error) {
	if w.store == nil {
		return
	}

	kind := string(renderer.KindExit)
	var rerr *renderer.RenderError
	if errors.As(err, &rerr) {
		kind = string(rerr.Kind)
	}

	if dberr := w.store.FailRender(ctx, id, renderer.StatusFor(err), kind, err.Error()); dberr != nil {
		log.Printf("[Worker] failed to record failure for %s: %v", id, dberr)
	}
}

// withAudioPath derives the merged output path: video.mp4 → video_with_audio.mp4.
func withAudioPath(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + "_with_audio" + ext
}
