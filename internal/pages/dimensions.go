package pages

import (
	"fmt"
	"strings"
)

// Size is a page size class.
type Size string

const (
	SizeAuto   Size = "auto"
	SizeA4     Size = "a4"
	SizeLetter Size = "letter"
	SizeA3     Size = "a3"
)

// Orientation is a page orientation choice.
type Orientation string

const (
	OrientationAuto      Orientation = "auto"
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// Dim is a width/height pair in points (72 points = 1 inch).
type Dim struct {
	Width  float64
	Height float64
}

// namedSizes are portrait dimensions in points.
var namedSizes = map[Size]Dim{
	SizeA4:     {Width: 595, Height: 842},
	SizeLetter: {Width: 612, Height: 792},
	SizeA3:     {Width: 842, Height: 1191},
}

// ParseSize validates a page size name. The empty string means auto.
func ParseSize(s string) (Size, error) {
	size := Size(strings.ToLower(strings.TrimSpace(s)))
	if size == "" || size == SizeAuto {
		return SizeAuto, nil
	}
	if _, ok := namedSizes[size]; !ok {
		return "", fmt.Errorf("unknown page size %q (want auto, a4, letter or a3)", s)
	}
	return size, nil
}

// ParseOrientation validates an orientation name. The empty string means auto.
func ParseOrientation(s string) (Orientation, error) {
	o := Orientation(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case "", OrientationAuto:
		return OrientationAuto, nil
	case OrientationPortrait, OrientationLandscape:
		return o, nil
	default:
		return "", fmt.Errorf("unknown orientation %q (want auto, portrait or landscape)", s)
	}
}

// Dimensions returns the page size for an image of imageW x imageH pixels. With SizeAuto
// the page matches the image exactly. With a named size and auto orientation the page is
// landscape only when the image is proportionally wider than the portrait page.
func Dimensions(size Size, orientation Orientation, imageW, imageH int) Dim {
	named, ok := namedSizes[size]
	if size == SizeAuto || !ok {
		return Dim{Width: float64(imageW), Height: float64(imageH)}
	}

	portrait := named
	landscape := Dim{Width: named.Height, Height: named.Width}

	switch orientation {
	case OrientationLandscape:
		return landscape
	case OrientationPortrait:
		return portrait
	}

	if imageH <= 0 {
		return portrait
	}
	// Compare imageW/imageH > pageW/pageH without floating point division.
	if float64(imageW)*named.Height > named.Width*float64(imageH) {
		return landscape
	}
	return portrait
}
