package llm

import (
	"strings"

	"github.com/mathtutor/videolab/internal/models"
)

// ---------------------------------------------------------------------------
// Question classifier
// Decides which canned fallback template fits a question when every remote
// strategy has failed. Table-driven so the keyword sets stay in one place.
// ---------------------------------------------------------------------------

var theoryKeywords = []string{
	"是什么", "为什么", "定义", "概念", "原理", "证明", "定理",
	"what is", "why", "explain", "theorem",
}

var geometryKeywords = []string{
	"三角形", "圆", "矩形", "长方形", "正方形", "勾股", "面积", "周长", "角度",
	"triangle", "circle", "rectangle", "pythagorean", "area", "angle",
}

var equationKeywords = []string{
	"方程", "求解", "解方程", "不等式", "equation", "solve",
}

// Classify maps a question to its fallback category. Pure and deterministic:
// the same question always yields the same category.
//
// Precedence: an explicit equation signal (keyword or a literal '=') wins,
// then geometry, then theory. Everything else is general.
func Classify(question string) models.QuestionCategory {
	q := strings.ToLower(question)

	if strings.Contains(question, "=") || containsAny(q, equationKeywords) {
		return models.CategoryEquation
	}
	if containsAny(q, geometryKeywords) {
		return models.CategoryGeometry
	}
	if containsAny(q, theoryKeywords) {
		return models.CategoryTheory
	}
	return models.CategoryGeneral
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
