// Package control implements the pressable control shared by every view.
// All visuals are derived from the current Props; the control keeps no state
// between renders.
package control

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Variant selects the color scheme.
type Variant int

const (
	Primary Variant = iota
	Secondary
	Outline
)

// Variants lists every variant.
var Variants = []Variant{Primary, Secondary, Outline}

func (v Variant) String() string {
	switch v {
	case Secondary:
		return "secondary"
	case Outline:
		return "outline"
	default:
		return "primary"
	}
}

// ParseVariant returns the variant named s, defaulting to Primary.
func ParseVariant(s string) Variant {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "secondary":
		return Secondary
	case "outline":
		return Outline
	default:
		return Primary
	}
}

// Size selects padding and font scale.
type Size int

const (
	Medium Size = iota
	Small
	Large
)

// Sizes lists every size.
var Sizes = []Size{Small, Medium, Large}

func (s Size) String() string {
	switch s {
	case Small:
		return "small"
	case Large:
		return "large"
	default:
		return "medium"
	}
}

// ParseSize returns the size named s, defaulting to Medium.
func ParseSize(s string) Size {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "small":
		return Small
	case "large":
		return Large
	default:
		return Medium
	}
}

const (
	ColorAccent       = lipgloss.Color("#2563EB")
	ColorNeutral      = lipgloss.Color("#E2E8F0")
	ColorOnAccent     = lipgloss.Color("#FFFFFF")
	ColorText         = lipgloss.Color("#1F2937")
	ColorDisabled     = lipgloss.Color("#E5E7EB")
	ColorDisabledText = lipgloss.Color("#9CA3AF")

	// Transparent is the empty color: no background is drawn.
	Transparent = lipgloss.Color("")

	PressedOpacity = 0.8
)

// Props are the inputs of a control. Content, when set, is rendered instead
// of Title.
type Props struct {
	OnPress      func()
	Title        string
	Content      string
	Disabled     bool
	Loading      bool
	Pressed      bool
	Variant      Variant
	Size         Size
	LoadingColor lipgloss.Color
}

// Label returns the content shown when not loading.
func (p Props) Label() string {
	if p.Content != "" {
		return p.Content
	}
	return p.Title
}

// Appearance is the visual state derived from Props.
type Appearance struct {
	Background     lipgloss.Color
	Foreground     lipgloss.Color
	BorderColor    lipgloss.Color
	BorderWidth    int
	PaddingV       int
	PaddingH       int
	FontSize       int
	Opacity        float64
	Ripple         bool
	Interactive    bool
	ShowLabel      bool
	ShowIndicator  bool
	IndicatorColor lipgloss.Color
}

// Derive computes the appearance of p. It is a pure function.
func Derive(p Props) Appearance {
	a := Appearance{
		Background:  background(p),
		Foreground:  foreground(p),
		Interactive: !p.Disabled && !p.Loading,
		Opacity:     1,
	}

	a.PaddingV, a.PaddingH, a.FontSize = metrics(p.Size)

	if p.Variant == Outline {
		a.BorderColor = ColorAccent
		a.BorderWidth = 1
	}

	if p.Pressed && a.Interactive {
		a.Opacity = PressedOpacity
	}
	a.Ripple = p.Variant != Outline && a.Interactive

	a.ShowIndicator = p.Loading
	a.ShowLabel = !p.Loading
	if a.ShowIndicator {
		a.IndicatorColor = a.Foreground
		if p.LoadingColor != "" {
			a.IndicatorColor = p.LoadingColor
		}
	}

	return a
}

// Press invokes OnPress when the control is interactive and reports whether
// it did.
func Press(p Props) bool {
	if p.Disabled || p.Loading || p.OnPress == nil {
		return false
	}
	p.OnPress()
	return true
}

func background(p Props) lipgloss.Color {
	if p.Disabled {
		return ColorDisabled
	}
	switch p.Variant {
	case Secondary:
		return ColorNeutral
	case Outline:
		return Transparent
	default:
		return ColorAccent
	}
}

func foreground(p Props) lipgloss.Color {
	if p.Disabled {
		return ColorDisabledText
	}
	switch p.Variant {
	case Secondary, Outline:
		return ColorText
	default:
		return ColorOnAccent
	}
}

// metrics returns vertical padding, horizontal padding and font size in
// density independent pixels.
func metrics(s Size) (int, int, int) {
	switch s {
	case Small:
		return 8, 12, 14
	case Large:
		return 16, 24, 18
	default:
		return 12, 16, 16
	}
}
