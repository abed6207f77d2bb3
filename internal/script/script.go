package script

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Scene materializer
// Turns a solution (title + steps) into Manim scene source. Pure string
// templating against one documented wrapping/timing policy:
//   - steps are sentence-split on terminal punctuation (CJK and ASCII)
//   - lines wrap at 40 runes
//   - each step stays on screen for max(6s, 0.08s per rune)
// ---------------------------------------------------------------------------

const (
	// WrapWidth is the per-line rune budget for on-screen text.
	WrapWidth = 40

	minStepWait   = 6.0
	perRuneWait   = 0.08
	titleFontSize = 36
	stepFontSize  = 26
	maxTitleRunes = 60
)

// Script is the solution to materialize: a title (usually the question) and
// the ordered explanation steps.
type Script struct {
	Title string
	Steps []string
}

// StepWait returns how long a step stays on screen, in seconds.
func StepWait(step string) float64 {
	wait := float64(len([]rune(step))) * perRuneWait
	if wait < minStepWait {
		wait = minStepWait
	}
	return wait
}

// SplitSentences breaks text on terminal punctuation. Delimiters are
// consumed; empty fragments are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		switch r {
		case '。', '！', '？', '；', ';', '.', '!', '?':
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// WrapLine hard-wraps a string to at most width runes per line. CJK text has
// no word boundaries to respect, so the wrap is a plain rune split.
func WrapLine(s string, width int) []string {
	runes := []rune(s)
	if len(runes) <= width {
		return []string{s}
	}

	var lines []string
	for len(runes) > width {
		lines = append(lines, string(runes[:width]))
		runes = runes[width:]
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return lines
}

// Lines applies the full wrapping policy to one step: sentence split, then
// per-sentence wrap.
func Lines(step string) []string {
	var lines []string
	for _, sentence := range SplitSentences(step) {
		lines = append(lines, WrapLine(sentence, WrapWidth)...)
	}
	if len(lines) == 0 {
		lines = []string{strings.TrimSpace(step)}
	}
	return lines
}

// Materialize renders the scene source for a script. Never fails: malformed
// input degrades to wrapped or truncated text, not an error.
func (s Script) Materialize(sceneName string) string {
	var b strings.Builder

	b.WriteString("from manim import *\n\n\n")
	fmt.Fprintf(&b, "class %s(Scene):\n", sceneName)
	b.WriteString("    def construct(self):\n")

	title := truncateRunes(s.Title, maxTitleRunes)
	fmt.Fprintf(&b, "        title = Text(%s, font_size=%d, color=YELLOW)\n", pyString(title), titleFontSize)
	b.WriteString("        title.to_edge(UP)\n")
	b.WriteString("        self.play(Write(title))\n")
	b.WriteString("        self.wait(1)\n")

	for i, step := range s.Steps {
		lines := Lines(step)
		fmt.Fprintf(&b, "\n        # step %d\n", i+1)
		fmt.Fprintf(&b, "        step_%d = VGroup(\n", i+1)
		for _, line := range lines {
			fmt.Fprintf(&b, "            Text(%s, font_size=%d, color=WHITE),\n", pyString(line), stepFontSize)
		}
		b.WriteString("        ).arrange(DOWN, aligned_edge=LEFT, buff=0.3)\n")
		fmt.Fprintf(&b, "        step_%d.next_to(title, DOWN, buff=0.8)\n", i+1)
		fmt.Fprintf(&b, "        self.play(Write(step_%d))\n", i+1)
		fmt.Fprintf(&b, "        self.wait(%.2f)\n", StepWait(step))
		fmt.Fprintf(&b, "        self.play(FadeOut(step_%d))\n", i+1)
	}

	b.WriteString("\n        self.play(FadeOut(title))\n")
	b.WriteString("        self.wait(1)\n")

	return b.String()
}

// pyString renders a Go string as a Python single-quoted literal.
func pyString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, "\n", " ")
	return "'" + s + "'"
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
