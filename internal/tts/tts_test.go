package tts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestEstimateDurationMs(t *testing.T) {
	tests := []struct {
		text  string
		speed float64
		want  int
	}{
		{"", 1.0, 0},
		{"一二三四", 1.0, 1000},  // 4 runes at 4/s
		{"一二三四", 0.5, 2000},  // half speed doubles duration
		{"一二三四五六七八", 1.0, 2000},
		{"一二三四", 0, 1000}, // zero speed falls back to 1.0
	}

	for _, tt := range tests {
		if got := estimateDurationMs(tt.text, tt.speed); got != tt.want {
			t.Errorf("estimateDurationMs(%q, %v) = %d, want %d", tt.text, tt.speed, got, tt.want)
		}
	}
}

func TestCLISynthesizeEmptyText(t *testing.T) {
	s := NewCLI("espeak-ng", t.TempDir())
	if _, err := s.Synthesize(context.Background(), "   "); err == nil {
		t.Error("Synthesize of blank text should fail")
	}
}

// TestCLISynthesizeWithStub fakes the speech binary with a shell script that
// writes a WAV header to the -w target.
func TestCLISynthesizeWithStub(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "fake-espeak")
	script := `#!/bin/sh
# args: -v VOICE -w WAVPATH --stdin
printf 'RIFFfakewavdata' > "$4"
`
	if err := os.WriteFile(stub, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write stub: %v", err)
	}

	s := NewCLI(stub, t.TempDir())
	res, err := s.Synthesize(context.Background(), "勾股定理的证明")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(res.AudioData) == 0 {
		t.Error("audio data should not be empty")
	}
	if res.Format != "wav" {
		t.Errorf("Format = %q, want wav", res.Format)
	}
	if res.DurationMs <= 0 {
		t.Error("duration estimate should be positive")
	}
}

func TestFromConfigPrefersElevenLabs(t *testing.T) {
	s := FromConfig("test-key", "", "espeak-ng", t.TempDir())
	if _, ok := s.(*ElevenLabs); !ok {
		t.Errorf("FromConfig with API key = %T, want *ElevenLabs", s)
	}
}

func TestFromConfigNilWithoutProviders(t *testing.T) {
	if s := FromConfig("", "", "", t.TempDir()); s != nil {
		t.Errorf("FromConfig without providers = %T, want nil", s)
	}
}
