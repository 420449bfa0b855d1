// Package geometry parses the size and placement notations used on the
// command line and in edit scripts:
//
//	size      800x600, 800x, x600, 800
//	geometry  WxH+X+Y   (image placement in points)
//	coords    +X+Y      (text placement in points)
//
// Geometry and coordinates are split at their non-digit characters, so
// components are unsigned integers.
package geometry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
	"seehuhn.de/go/geom/matrix"
)

var (
	ErrInvalidSize     = errors.New("invalid size")
	ErrInvalidGeometry = errors.New("invalid geometry")
	ErrInvalidCoords   = errors.New("invalid coordinates")
)

// Size is an output size in pixels. A zero dimension is unspecified.
type Size struct {
	Width  float64
	Height float64
}

// ParseSize parses "WxH" where either side may be missing or a bare
// width.
func ParseSize(s string) (Size, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	var size Size
	if w, h, ok := strings.Cut(s, "x"); ok {
		size.Width = parseDimension(w)
		size.Height = parseDimension(strings.Split(h, "x")[0])
	} else {
		size.Width = parseDimension(s)
	}
	if size.Width == 0 && size.Height == 0 {
		return Size{}, fmt.Errorf("%w %q", ErrInvalidSize, s)
	}
	return size, nil
}

func parseDimension(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return v
}

// Fit returns the output size for content of size w x h. A missing
// dimension keeps the aspect ratio; if both are missing the content size
// is used.
func (s Size) Fit(w, h float64) (float64, float64) {
	switch {
	case s.Width > 0 && s.Height > 0:
		return s.Width, s.Height
	case s.Width > 0:
		return s.Width, h / w * s.Width
	case s.Height > 0:
		return w / h * s.Height, s.Height
	}
	return w, h
}

func (s Size) IsZero() bool { return s.Width == 0 && s.Height == 0 }

func (s Size) String() string {
	if s.IsZero() {
		return ""
	}
	return formatDimension(s.Width) + "x" + formatDimension(s.Height)
}

func formatDimension(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (s *Size) Set(v string) error {
	parsed, err := ParseSize(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s *Size) Type() string { return "size" }

// separators returns the byte offsets of the first n non-digit
// characters of s.
func separators(s string, n int) ([]int, bool) {
	offsets := make([]int, 0, n)
	for i := 0; i < len(s) && len(offsets) < n; i++ {
		if s[i] < '0' || s[i] > '9' {
			offsets = append(offsets, i)
		}
	}
	return offsets, len(offsets) == n
}

// Geometry places a rectangle: Width x Height points with its lower-left
// corner at (X, Y).
type Geometry struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
}

// ParseGeometry parses "WxH+X+Y".
func ParseGeometry(s string) (Geometry, error) {
	off, ok := separators(s, 3)
	if !ok {
		return Geometry{}, fmt.Errorf("%w %q", ErrInvalidGeometry, s)
	}
	var g Geometry
	var err error
	for _, f := range []struct {
		dst  *float64
		text string
	}{
		{&g.Width, s[:off[0]]},
		{&g.Height, s[off[0]+1 : off[1]]},
		{&g.X, s[off[1]+1 : off[2]]},
		{&g.Y, s[off[2]+1:]},
	} {
		if *f.dst, err = strconv.ParseFloat(f.text, 64); err != nil {
			return Geometry{}, fmt.Errorf("%w %q", ErrInvalidGeometry, s)
		}
	}
	return g, nil
}

// Matrix scales a unit square to the rectangle.
func (g Geometry) Matrix() matrix.Matrix {
	return matrix.Matrix{g.Width, 0, 0, g.Height, g.X, g.Y}
}

func (g Geometry) String() string {
	return fmt.Sprintf("%sx%s+%s+%s", formatFloat(g.Width), formatFloat(g.Height), formatFloat(g.X), formatFloat(g.Y))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (g *Geometry) Set(v string) error {
	parsed, err := ParseGeometry(v)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

func (g *Geometry) Type() string { return "geometry" }

// UnmarshalJSON accepts "WxH+X+Y" or {"width", "height", "x", "y"}.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return g.Set(s)
	}
	type plain Geometry
	return json.Unmarshal(data, (*plain)(g))
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (g *Geometry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return g.Set(node.Value)
	}
	type plain Geometry
	return node.Decode((*plain)(g))
}

// Coords is a point in page space.
type Coords struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// ParseCoords parses "+X+Y".
func ParseCoords(s string) (Coords, error) {
	off, ok := separators(s, 2)
	if !ok {
		return Coords{}, fmt.Errorf("%w %q", ErrInvalidCoords, s)
	}
	x, errX := strconv.ParseFloat(s[off[0]+1:off[1]], 64)
	y, errY := strconv.ParseFloat(s[off[1]+1:], 64)
	if errX != nil || errY != nil {
		return Coords{}, fmt.Errorf("%w %q", ErrInvalidCoords, s)
	}
	return Coords{X: x, Y: y}, nil
}

// Matrix translates to the point.
func (c Coords) Matrix() matrix.Matrix {
	return matrix.Translate(c.X, c.Y)
}

func (c Coords) String() string {
	return "+" + formatFloat(c.X) + "+" + formatFloat(c.Y)
}

func (c *Coords) Set(v string) error {
	parsed, err := ParseCoords(v)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c *Coords) Type() string { return "coords" }

func (c *Coords) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return c.Set(s)
	}
	type plain Coords
	return json.Unmarshal(data, (*plain)(c))
}

func (c *Coords) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return c.Set(node.Value)
	}
	type plain Coords
	return node.Decode((*plain)(c))
}
