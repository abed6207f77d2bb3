package tts

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// CLI synthesizes speech by shelling out to an espeak-ng compatible binary.
// It is the offline provider: no API key, no network, lower voice quality.
type CLI struct {
	command string
	voice   string
	tempDir string
}

var _ Service = (*CLI)(nil)

func NewCLI(command, tempDir string) *CLI {
	if command == "" {
		command = "espeak-ng"
	}
	return &CLI{
		command: command,
		voice:   "cmn", // Mandarin voice, matches the narration language
		tempDir: tempDir,
	}
}

// Synthesize writes a temporary WAV via the CLI and returns its bytes.
func (s *CLI) Synthesize(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("narration text is empty")
	}

	if err := os.MkdirAll(s.tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	wavPath := filepath.Join(s.tempDir, fmt.Sprintf("narration_%s.wav", uuid.New().String()[:8]))
	defer os.Remove(wavPath)

	cmd := exec.CommandContext(ctx, s.command, "-v", s.voice, "-w", wavPath, "--stdin")
	cmd.Stdin = strings.NewReader(text)

	log.Printf("[TTS] CLI synthesis (command=%s, voice=%s, textLen=%d)", s.command, s.voice, len(text))

	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", s.command, err, strings.TrimSpace(string(out)))
	}

	audioData, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	if len(audioData) == 0 {
		return nil, fmt.Errorf("%s produced empty audio", s.command)
	}

	return &Result{
		AudioData:  audioData,
		DurationMs: estimateDurationMs(text, 1.0),
		Format:     "wav",
	}, nil
}

// FromConfig picks a provider: ElevenLabs when a key is configured,
// otherwise the CLI fallback. Returns nil when neither is usable — the
// worker then renders silent videos.
func FromConfig(elevenLabsKey, voiceID, command, tempDir string) Service {
	if elevenLabsKey != "" {
		return NewElevenLabs(elevenLabsKey, voiceID)
	}
	if command != "" {
		if _, err := exec.LookPath(command); err == nil {
			return NewCLI(command, tempDir)
		}
		log.Printf("[TTS] %s not found in PATH, narration disabled", command)
	}
	return nil
}
