// Package color converts light settings into display colours.
package color

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// CCT range covered by TemperatureToHex.
const (
	MinKelvin   = 1700
	MaxKelvin   = 6500
	pivotKelvin = 5500
)

// RGB is an 8-bit colour.
type RGB struct {
	R, G, B uint8
}

var (
	warm    = RGB{255, 165, 70}
	neutral = RGB{255, 255, 255}
	cool    = RGB{200, 225, 255}
)

// Hex renders "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// TemperatureToHex approximates a white colour temperature as a display
// colour: warm amber at 1700 K, white at 5500 K, cool blue at 6500 K.
func TemperatureToHex(kelvin float64) string {
	if math.IsNaN(kelvin) {
		kelvin = MinKelvin
	}
	k := math.Max(MinKelvin, math.Min(MaxKelvin, kelvin))
	if k <= pivotKelvin {
		return mix(warm, neutral, (k-MinKelvin)/(pivotKelvin-MinKelvin)).Hex()
	}
	return mix(neutral, cool, (k-pivotKelvin)/(MaxKelvin-pivotKelvin)).Hex()
}

func mix(a, b RGB, ratio float64) RGB {
	ch := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*ratio))
	}
	return RGB{ch(a.R, b.R), ch(a.G, b.G), ch(a.B, b.B)}
}

var (
	hex6 = regexp.MustCompile(`^[0-9a-f]{6}$`)
	hex3 = regexp.MustCompile(`^[0-9a-f]{3}$`)
)

// NormalizeHex accepts "#abc", "abcdef", "0xABCDEF" and returns lowercase
// "#rrggbb". ok is false for anything else.
func NormalizeHex(value string) (string, bool) {
	clean := strings.ToLower(strings.TrimSpace(value))
	clean = strings.TrimPrefix(clean, "#")
	clean = strings.TrimPrefix(clean, "0x")
	switch {
	case hex6.MatchString(clean):
		return "#" + clean, true
	case hex3.MatchString(clean):
		var b strings.Builder
		b.WriteByte('#')
		for _, ch := range clean {
			b.WriteRune(ch)
			b.WriteRune(ch)
		}
		return b.String(), true
	}
	return "", false
}

// ParseHex decodes "#rrggbb"; malformed input yields white.
func ParseHex(hex string) RGB {
	norm, ok := NormalizeHex(hex)
	if !ok {
		return neutral
	}
	var c RGB
	if _, err := fmt.Sscanf(norm, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return neutral
	}
	return c
}
