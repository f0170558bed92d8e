package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

const (
	// Border sizes in pixels. The top and left borders carry the distance
	// scales, the bottom border carries the flight info block.
	topBorder    = 40
	leftBorder   = 80
	rightBorder  = 40
	bottomBorder = 130

	minTrackExtent = 10.0 // metres, keeps short hops from exploding the scale

	maxImageHeight = 4096
)

var (
	backgroundColor = color.RGBA{R: 12, G: 12, B: 18, A: 255}
	homeColor       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	lowAltColor     = color.RGBA{R: 64, G: 128, B: 255, A: 255}
	highAltColor    = color.RGBA{R: 255, G: 96, B: 64, A: 255}
)

// projection maps tangent-plane metres onto image pixels, north up.
type projection struct {
	Scale float64 // metres per pixel
	Area  image.Rectangle

	minEast  float64
	maxNorth float64
}

func (p projection) toPixel(east, north float64) (x, y int) {
	x = p.Area.Min.X + int((east-p.minEast)/p.Scale+0.5)
	y = p.Area.Min.Y + int((p.maxNorth-north)/p.Scale+0.5)
	return x, y
}

// TrackRenderer draws a flown track as a top-down map, the path colored by
// altitude from low (blue) to high (red).
type TrackRenderer struct {
	config *Config
}

func NewTrackRenderer(config *Config) *TrackRenderer {
	return &TrackRenderer{config: config}
}

// Render creates the track map image with optional annotations.
func (r *TrackRenderer) Render(data *TrackData) (*image.RGBA, error) {
	if len(data.Points) == 0 {
		return nil, fmt.Errorf("session has no track points")
	}

	proj := r.project(data)

	img := image.NewRGBA(image.Rect(0, 0,
		proj.Area.Max.X+rightBorder, proj.Area.Max.Y+bottomBorder))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	r.renderTrack(img, proj, data)

	if !r.config.NoAnnotations {
		ann, err := NewAnnotator()
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		if err = ann.Annotate(img, proj, data); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	return img, nil
}

// project fits the track extents into the configured image width and derives
// the image height from the track aspect ratio.
func (r *TrackRenderer) project(data *TrackData) projection {
	extentEast := max(data.MaxEast-data.MinEast, minTrackExtent)
	extentNorth := max(data.MaxNorth-data.MinNorth, minTrackExtent)

	usableWidth := r.config.Width - leftBorder - rightBorder
	scale := extentEast / float64(usableWidth)

	height := int(extentNorth/scale + 0.5)
	if height > maxImageHeight {
		scale = extentNorth / float64(maxImageHeight)
		usableWidth = int(extentEast/scale + 0.5)
		height = maxImageHeight
	}

	return projection{
		Scale:    scale,
		Area:     image.Rect(leftBorder, topBorder, leftBorder+usableWidth, topBorder+height),
		minEast:  data.MinEast,
		maxNorth: data.MaxNorth,
	}
}

func (r *TrackRenderer) renderTrack(img *image.RGBA, proj projection, data *TrackData) {
	for i := 1; i < len(data.Points); i++ {
		prev, cur := data.Points[i-1], data.Points[i]
		x0, y0 := proj.toPixel(prev.East, prev.North)
		x1, y1 := proj.toPixel(cur.East, cur.North)
		drawLine(img, x0, y0, x1, y1, altitudeColor(cur.Alt, data.MinAlt, data.MaxAlt))
	}

	// Home marker on the first recorded position.
	x, y := proj.toPixel(data.Points[0].East, data.Points[0].North)
	drawMarker(img, x, y, homeColor)
}

// altitudeColor interpolates between the low and high altitude colors.
func altitudeColor(alt, minAlt, maxAlt float64) color.RGBA {
	t := 0.0
	if maxAlt > minAlt {
		t = (alt - minAlt) / (maxAlt - minAlt)
	}
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + t*(float64(b)-float64(a)))
	}
	return color.RGBA{
		R: lerp(lowAltColor.R, highAltColor.R),
		G: lerp(lowAltColor.G, highAltColor.G),
		B: lerp(lowAltColor.B, highAltColor.B),
		A: 255,
	}
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	steps := max(abs(x1-x0), abs(y1-y0))
	if steps == 0 {
		img.Set(x0, y0, c)
		return
	}

	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		img.Set(x0+int(t*float64(x1-x0)+0.5), y0+int(t*float64(y1-y0)+0.5), c)
	}
}

func drawMarker(img *image.RGBA, x, y int, c color.Color) {
	for i := -5; i <= 5; i++ {
		img.Set(x+i, y, c)
		img.Set(x, y+i, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
