package renderer

import (
	"fmt"
	"strings"

	"github.com/mathtutor/videolab/internal/models"
)

// ErrorKind is the failure taxonomy for a render attempt. Callers branch on
// it: a timeout may be worth retrying, a syntax error never is.
type ErrorKind string

const (
	KindToolNotFound    ErrorKind = "tool_not_found"
	KindTimeout         ErrorKind = "timeout"
	KindSyntax          ErrorKind = "syntax"
	KindLaTeX           ErrorKind = "latex"
	KindNameError       ErrorKind = "name_error"
	KindExit            ErrorKind = "exit"
	KindArtifactMissing ErrorKind = "artifact_missing"
	KindConflict        ErrorKind = "conflict"
)

type RenderError struct {
	Kind    ErrorKind
	Message string
	Stderr  string
}

func (e *RenderError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Stderr)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newRenderError(kind ErrorKind, message, stderr string) *RenderError {
	return &RenderError{Kind: kind, Message: message, Stderr: truncate(stderr, 1000)}
}

// classifyStderr maps a nonzero manim exit to a failure kind by substring.
func classifyStderr(stderr string) ErrorKind {
	switch {
	case strings.Contains(stderr, "SyntaxError"), strings.Contains(stderr, "IndentationError"):
		return KindSyntax
	case strings.Contains(stderr, "LaTeX"), strings.Contains(stderr, "latex"):
		return KindLaTeX
	case strings.Contains(stderr, "NameError"), strings.Contains(stderr, "AttributeError"):
		return KindNameError
	default:
		return KindExit
	}
}

// StatusFor maps a render outcome to the job status recorded in the
// manifest: nil → succeeded, timeout → timed_out, everything else → failed.
func StatusFor(err error) models.RenderStatus {
	if err == nil {
		return models.RenderStatusSucceeded
	}
	if re, ok := err.(*RenderError); ok && re.Kind == KindTimeout {
		return models.RenderStatusTimedOut
	}
	return models.RenderStatusFailed
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
