package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/mathtutor/videolab/internal/models"
)

// ---------------------------------------------------------------------------
// Fallback strategy
// Always succeeds: returns a canned Markdown template keyed by the question
// category. The text explicitly announces degraded mode so the end user
// knows the remote model was unreachable.
// ---------------------------------------------------------------------------

type FallbackStrategy struct{}

func NewFallbackStrategy() *FallbackStrategy {
	return &FallbackStrategy{}
}

func (s *FallbackStrategy) Name() string { return "fallback" }

func (s *FallbackStrategy) Try(ctx context.Context, req *models.ChatRequest) (*models.Completion, error) {
	question := req.Question()
	text := fallbackText(Classify(question), question)

	return &models.Completion{
		Text:      text,
		Method:    models.MethodFallback,
		RequestID: fmt.Sprintf("fallback_%d", time.Now().Unix()),
		Usage: models.Usage{
			InputTokens:  len([]rune(question)),
			OutputTokens: len([]rune(text)),
		},
	}, nil
}

func fallbackText(category models.QuestionCategory, question string) string {
	switch category {
	case models.CategoryEquation:
		return fmt.Sprintf(`我来帮你分析这个数学问题：

**问题：** %s

**解题提示：**
1. 识别方程类型（一元一次、二元一次、不等式等）
2. 整理已知条件和未知数
3. 移项合并同类项，逐步化简
4. 求出未知数并代入验证

**注意：** 当前使用备用响应模式，网络恢复后将提供完整AI解答。`, question)

	case models.CategoryGeometry:
		return fmt.Sprintf(`我来帮你分析这个几何问题：

**问题：** %s

**解题提示：**
1. 画出图形，标注已知的边长和角度
2. 确定要求的量（面积、周长、角度等）
3. 选择合适的公式或定理
4. 代入数值逐步计算

**注意：** 当前使用备用响应模式，网络恢复后将提供完整AI解答。`, question)

	case models.CategoryTheory:
		return fmt.Sprintf(`我来帮你梳理这个概念：

**问题：** %s

**学习提示：**
1. 先从定义出发，理解每个术语的含义
2. 结合具体例子加深理解
3. 思考该概念与已学知识的联系
4. 尝试用自己的话复述一遍

**注意：** 当前使用备用响应模式，网络恢复后将提供完整AI解答。`, question)

	default:
		return fmt.Sprintf(`感谢您的问题！

**您的问题：** %s

由于当前网络连接问题，我无法提供完整的AI解答。

**建议：**
1. 请检查网络连接后重试
2. 确保问题描述完整清楚
3. 如果是数学问题，请包含具体的数字和符号

**注意：** 当前使用备用响应模式，网络恢复后将提供完整AI解答。`, question)
	}
}
