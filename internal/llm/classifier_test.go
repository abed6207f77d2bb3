package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/mathtutor/videolab/internal/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		question string
		want     models.QuestionCategory
	}{
		{"解方程 2x+5=15", models.CategoryEquation},
		{"求解不等式 3x > 9", models.CategoryEquation},
		{"x + y = 10, x - y = 2", models.CategoryEquation},
		{"求三角形的面积，底为6，高为4", models.CategoryGeometry},
		{"圆的面积怎么算", models.CategoryGeometry},
		{"勾股定理的应用", models.CategoryGeometry},
		{"什么是质数？为什么1不是质数", models.CategoryTheory},
		{"请解释极限的定义", models.CategoryTheory},
		{"你好", models.CategoryGeneral},
		{"", models.CategoryGeneral},
	}

	for _, tc := range cases {
		if got := Classify(tc.question); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.question, got, tc.want)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	question := "解方程 2x+5=15"
	first := Classify(question)

	for i := 0; i < 100; i++ {
		if got := Classify(question); got != first {
			t.Fatalf("classification changed on call %d: %s != %s", i, got, first)
		}
	}

	if first != models.CategoryEquation {
		t.Errorf("expected equation category, got %s", first)
	}
}

func TestClassifyEquationWinsOverGeometry(t *testing.T) {
	// Equals sign is the strongest signal even when geometry words appear.
	if got := Classify("三角形面积 S = 1/2 × 6 × 4"); got != models.CategoryEquation {
		t.Errorf("expected equation precedence, got %s", got)
	}
}

func TestFallbackStrategyAlwaysSucceeds(t *testing.T) {
	s := NewFallbackStrategy()
	req := &models.ChatRequest{
		Messages: []models.Message{{Role: "user", Content: "解方程 2x+5=15"}},
	}

	result, err := s.Try(context.Background(), req)
	if err != nil {
		t.Fatalf("fallback must not fail: %v", err)
	}

	if result.Method != models.MethodFallback {
		t.Errorf("expected fallback method, got %s", result.Method)
	}
	if !strings.Contains(result.Text, "解方程 2x+5=15") {
		t.Errorf("fallback text should interpolate the question")
	}
	if !strings.Contains(result.Text, "备用响应模式") {
		t.Errorf("fallback text should announce degraded mode")
	}
	if result.RequestID == "" {
		t.Errorf("expected a request id")
	}
}

func TestFallbackTextPerCategory(t *testing.T) {
	for _, category := range []models.QuestionCategory{
		models.CategoryEquation,
		models.CategoryGeometry,
		models.CategoryTheory,
		models.CategoryGeneral,
	} {
		text := fallbackText(category, "测试问题")
		if text == "" {
			t.Errorf("empty fallback text for %s", category)
		}
		if !strings.Contains(text, "测试问题") {
			t.Errorf("fallback for %s does not include the question", category)
		}
	}
}

func TestIsCredentialError(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"status 401: unauthorized", true},
		{"Invalid API-key provided", true},
		{"code=invalid_api_key", true},
		{"connection refused", false},
		{"status 500: internal error", false},
	}

	for _, tc := range cases {
		err := errString(tc.msg)
		if got := isCredentialError(err); got != tc.want {
			t.Errorf("isCredentialError(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}

	if isCredentialError(nil) {
		t.Errorf("nil error must not be a credential error")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
