package script

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Geometry scenes
// Questions about specific shapes get a figure drawn alongside the steps.
// Shape detection is keyword-based, same precedence as the original
// generator: triangle (curtain variant first), circle, rectangle,
// Pythagorean, then a generic fallback.
// ---------------------------------------------------------------------------

type Shape string

const (
	ShapeTriangleCurtain Shape = "triangle_curtain"
	ShapeTriangleArea    Shape = "triangle_area"
	ShapeCircleArea      Shape = "circle_area"
	ShapeRectangleArea   Shape = "rectangle_area"
	ShapePythagorean     Shape = "pythagorean"
	ShapeGeneral         Shape = "general"
)

// DetectShape classifies a geometry question by keyword.
func DetectShape(question string) Shape {
	q := strings.ToLower(question)

	switch {
	case strings.Contains(question, "三角形") && strings.Contains(question, "拉窗帘"):
		return ShapeTriangleCurtain
	case strings.Contains(question, "三角形") && strings.Contains(question, "面积"):
		return ShapeTriangleArea
	case strings.Contains(question, "圆") && strings.Contains(question, "面积"):
		return ShapeCircleArea
	case strings.Contains(question, "矩形") || strings.Contains(question, "长方形"):
		return ShapeRectangleArea
	case strings.Contains(question, "勾股") || strings.Contains(q, "pythagorean"):
		return ShapePythagorean
	default:
		return ShapeGeneral
	}
}

// MaterializeGeometry renders a scene with a figure matching the detected
// shape, followed by the standard step sequence.
func MaterializeGeometry(question string, steps []string, sceneName string) string {
	shape := DetectShape(question)
	s := Script{Title: question, Steps: steps}

	figure := figureSource(shape)
	if figure == "" {
		return s.Materialize(sceneName)
	}

	// Splice the figure in right after the title block.
	base := s.Materialize(sceneName)
	marker := "        self.wait(1)\n"
	idx := strings.Index(base, marker)
	if idx < 0 {
		return base
	}
	insertAt := idx + len(marker)
	return base[:insertAt] + figure + base[insertAt:]
}

func figureSource(shape Shape) string {
	switch shape {
	case ShapeTriangleArea, ShapeTriangleCurtain:
		return figureBlock(
			"triangle = Polygon([-2, -1, 0], [2, -1, 0], [0.5, 1.5, 0], color=BLUE, fill_opacity=0.3)",
			"triangle",
		)
	case ShapeCircleArea:
		return figureBlock(
			"circle = Circle(radius=1.2, color=BLUE, fill_opacity=0.3)",
			"circle",
		)
	case ShapeRectangleArea:
		return figureBlock(
			"rect = Rectangle(width=3, height=1.8, color=BLUE, fill_opacity=0.3)",
			"rect",
		)
	case ShapePythagorean:
		return figureBlock(
			"triangle = Polygon([-2, -1, 0], [1, -1, 0], [-2, 1, 0], color=BLUE, fill_opacity=0.3)",
			"triangle",
		)
	default:
		return ""
	}
}

func figureBlock(construct, name string) string {
	var b strings.Builder
	b.WriteString("\n        # figure\n")
	fmt.Fprintf(&b, "        %s\n", construct)
	fmt.Fprintf(&b, "        %s.to_edge(RIGHT)\n", name)
	fmt.Fprintf(&b, "        self.play(Create(%s))\n", name)
	b.WriteString("        self.wait(1)\n")
	return b.String()
}
