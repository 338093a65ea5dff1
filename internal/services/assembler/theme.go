package assembler

import (
	"strconv"
)

// Theme holds the visual constants shared by all assemblers. It is passed by
// value so a call can never alter another call's styling.
type Theme struct {
	FontFamily string
	// Colors are six digit hex values without '#'
	PrimaryColor   string
	SecondaryColor string
	AccentColor    string
	TextColor      string
	MutedColor     string
	BackgroundTint string
	// HeadingSizes are point sizes for heading levels 1-3
	HeadingSizes [3]float64
	TitleSize    float64
	BodySize     float64
}

func DefaultTheme() Theme {
	return Theme{
		FontFamily:     "Calibri",
		PrimaryColor:   "1F4E79",
		SecondaryColor: "2E75B6",
		AccentColor:    "C55A11",
		TextColor:      "262626",
		MutedColor:     "7F7F7F",
		BackgroundTint: "F2F6FA",
		HeadingSizes:   [3]float64{18, 15, 13},
		TitleSize:      32,
		BodySize:       11,
	}
}

// HeadingSize returns the size for level, clamped to 1-3
func (t Theme) HeadingSize(level int) float64 {
	if level < 1 {
		level = 1
	}
	if level > 3 {
		level = 3
	}
	return t.HeadingSizes[level-1]
}

// RGB parses a hex color, falling back to black on malformed input
func RGB(hex string) (int, int, int) {
	if len(hex) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)
}

// halfPoints converts points to the half-point unit WordprocessingML uses
func halfPoints(pt float64) int {
	return int(pt * 2)
}

// hundredthPoints converts points to the unit DrawingML uses for font size
func hundredthPoints(pt float64) int {
	return int(pt * 100)
}
