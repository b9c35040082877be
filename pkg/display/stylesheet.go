package display

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"github.com/charmbracelet/lipgloss"
)

// ParseStylesheet maps the declarations of a plugin stylesheet onto a
// terminal style. Declarations from every rule are applied in order,
// selectors are ignored, and properties with no terminal equivalent are
// skipped.
func ParseStylesheet(src string) (lipgloss.Style, error) {
	sheet, err := parser.Parse(src)
	if err != nil {
		return lipgloss.NewStyle(), fmt.Errorf("parse stylesheet: %w", err)
	}

	style := lipgloss.NewStyle()
	for _, rule := range sheet.Rules {
		style = applyRule(style, rule)
	}
	return style, nil
}

func applyRule(style lipgloss.Style, rule *css.Rule) lipgloss.Style {
	for _, decl := range rule.Declarations {
		style = applyDeclaration(style, strings.ToLower(decl.Property), strings.TrimSpace(decl.Value))
	}
	for _, nested := range rule.Rules {
		style = applyRule(style, nested)
	}
	return style
}

func applyDeclaration(style lipgloss.Style, property, value string) lipgloss.Style {
	switch property {
	case "color":
		if c, ok := parseColor(value); ok {
			style = style.Foreground(c)
		}
	case "background-color", "background":
		if c, ok := parseColor(value); ok {
			style = style.Background(c)
		}
	case "border":
		for _, part := range strings.Fields(value) {
			if b, ok := parseBorder(part); ok {
				style = style.Border(b)
			} else if part == "none" {
				style = style.UnsetBorderStyle()
			} else if c, ok := parseColor(part); ok {
				style = style.BorderForeground(c)
			}
		}
	case "border-style":
		if b, ok := parseBorder(value); ok {
			style = style.Border(b)
		} else if value == "none" {
			style = style.UnsetBorderStyle()
		}
	case "border-color":
		if c, ok := parseColor(value); ok {
			style = style.BorderForeground(c)
		}
	case "border-radius":
		if n, ok := parseLength(value); ok && n > 0 {
			style = style.Border(lipgloss.RoundedBorder())
		}
	case "font-weight":
		style = style.Bold(value == "bold" || value == "bolder" || atLeast(value, 600))
	case "font-style":
		style = style.Italic(value == "italic" || value == "oblique")
	case "text-decoration", "text-decoration-line":
		style = style.Underline(strings.Contains(value, "underline"))
		style = style.Strikethrough(strings.Contains(value, "line-through"))
	case "text-align":
		switch value {
		case "left":
			style = style.Align(lipgloss.Left)
		case "center":
			style = style.Align(lipgloss.Center)
		case "right":
			style = style.Align(lipgloss.Right)
		}
	case "padding":
		var sides []int
		for _, part := range strings.Fields(value) {
			n, ok := parseLength(part)
			if !ok {
				return style
			}
			sides = append(sides, n)
		}
		if len(sides) >= 1 && len(sides) <= 4 {
			style = style.Padding(sides...)
		}
	case "width":
		if n, ok := parseLength(value); ok && n > 0 {
			style = style.Width(n)
		}
	}
	return style
}

func atLeast(value string, min int) bool {
	n, err := strconv.Atoi(value)
	return err == nil && n >= min
}

func parseBorder(value string) (lipgloss.Border, bool) {
	switch value {
	case "solid", "dashed", "dotted", "inset", "outset":
		return lipgloss.NormalBorder(), true
	case "double":
		return lipgloss.DoubleBorder(), true
	case "groove", "ridge":
		return lipgloss.ThickBorder(), true
	}
	return lipgloss.Border{}, false
}

// parseLength converts a CSS length to terminal cells. Pixels count eight
// to a cell; em, ch and unitless numbers count one.
func parseLength(value string) (int, bool) {
	value = strings.TrimSpace(value)
	divisor := 1.0
	switch {
	case strings.HasSuffix(value, "px"):
		value = strings.TrimSuffix(value, "px")
		divisor = 8
	case strings.HasSuffix(value, "em"):
		value = strings.TrimSuffix(value, "em")
	case strings.HasSuffix(value, "ch"):
		value = strings.TrimSuffix(value, "ch")
	case strings.HasSuffix(value, "%"):
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int(f/divisor + 0.5), true
}

var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#008000",
	"lime":    "#00ff00",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"orange":  "#ffa500",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
	"purple":  "#800080",
	"gray":    "#808080",
	"grey":    "#808080",
	"silver":  "#c0c0c0",
	"navy":    "#000080",
	"maroon":  "#800000",
}

func parseColor(value string) (lipgloss.Color, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if hex, ok := namedColors[value]; ok {
		return lipgloss.Color(hex), true
	}

	if strings.HasPrefix(value, "#") {
		digits := value[1:]
		if _, err := strconv.ParseUint(digits, 16, 32); err != nil {
			return "", false
		}
		switch len(digits) {
		case 3:
			return lipgloss.Color("#" + string([]byte{
				digits[0], digits[0], digits[1], digits[1], digits[2], digits[2],
			})), true
		case 6:
			return lipgloss.Color(value), true
		}
		return "", false
	}

	if strings.HasPrefix(value, "rgb(") && strings.HasSuffix(value, ")") {
		parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(value, "rgb("), ")"), ",")
		if len(parts) != 3 {
			return "", false
		}
		var rgb [3]uint64
		for i, p := range parts {
			n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
			if err != nil {
				return "", false
			}
			rgb[i] = n
		}
		return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])), true
	}
	return "", false
}
