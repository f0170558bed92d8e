package app

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi     float64 = 72
	size    float64 = 14
	spacing float64 = 1.3

	pixelsPerLabel = 200
	tickLength     = 8
)

var scaleColor = color.RGBA{R: 110, G: 110, B: 120, A: 255}

type Annotator struct {
	context *freetype.Context
}

func NewAnnotator() (*Annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetFontSize(size)
	context.SetHinting(font.HintingFull)
	context.SetSrc(image.White)

	return &Annotator{context: context}, nil
}

func (a *Annotator) Annotate(img *image.RGBA, proj projection, data *TrackData) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func(*image.RGBA, projection, *TrackData) error
	}{
		{"drawing east scale", a.drawEastScale},
		{"drawing north scale", a.drawNorthScale},
		{"drawing info", a.drawInfo},
	}
	for _, op := range ops {
		if err := op.fn(img, proj, data); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	return nil
}

// drawEastScale labels east offsets from home along the top border.
func (a *Annotator) drawEastScale(img *image.RGBA, proj projection, data *TrackData) error {
	count := max(proj.Area.Dx()/pixelsPerLabel, 2)
	metersPerLabel := (data.MaxEast - data.MinEast) / float64(count)
	pxPerLabel := proj.Area.Dx() / count

	for si := 0; si <= count; si++ {
		east := data.MinEast + float64(si)*metersPerLabel
		px := proj.Area.Min.X + si*pxPerLabel

		for i := 0; i < tickLength; i++ {
			img.Set(px, proj.Area.Min.Y-tickLength+i, scaleColor)
		}

		pt := freetype.Pt(px+4, proj.Area.Min.Y-tickLength-4)
		if _, err := a.context.DrawString(a.humanMeters(east), pt); err != nil {
			return err
		}
	}

	return nil
}

// drawNorthScale labels north offsets from home along the left border.
func (a *Annotator) drawNorthScale(img *image.RGBA, proj projection, data *TrackData) error {
	count := max(proj.Area.Dy()/pixelsPerLabel, 2)
	metersPerLabel := (data.MaxNorth - data.MinNorth) / float64(count)
	pxPerLabel := proj.Area.Dy() / count

	for si := 0; si <= count; si++ {
		north := data.MaxNorth - float64(si)*metersPerLabel
		px := proj.Area.Min.Y + si*pxPerLabel

		for i := 0; i < tickLength; i++ {
			img.Set(proj.Area.Min.X-tickLength+i, px, scaleColor)
		}

		pt := freetype.Pt(3, px-3)
		if _, err := a.context.DrawString(a.humanMeters(north), pt); err != nil {
			return err
		}
	}

	return nil
}

// drawInfo renders the flight summary block in the bottom border.
func (a *Annotator) drawInfo(img *image.RGBA, proj projection, data *TrackData) error {
	imgSize := img.Bounds().Size()
	top, left := imgSize.Y-bottomBorder+20, leftBorder

	lines := []string{
		fmt.Sprintf("Flight start: %s", data.Start.Local().Format(time.DateTime)),
		fmt.Sprintf("Flight end: %s (%s)", data.End.Local().Format(time.DateTime),
			data.End.Sub(data.Start).Round(time.Second)),
		fmt.Sprintf("Track: %d points, %s flown, altitude %s to %s",
			len(data.Points), a.humanMeters(data.Distance),
			a.humanMeters(data.MinAlt), a.humanMeters(data.MaxAlt)),
		fmt.Sprintf("1 pixel = %s", a.humanMeters(proj.Scale)),
	}
	if state := data.FinalState(); state != "" {
		lines = append(lines, fmt.Sprintf("Final state: %s", state))
	}

	pt := freetype.Pt(left, top)
	for _, s := range lines {
		if _, err := a.context.DrawString(s, pt); err != nil {
			return err
		}
		pt.Y += a.context.PointToFixed(size * spacing)
	}

	return nil
}

func (a *Annotator) humanMeters(m float64) string {
	si, suffix := humanize.ComputeSI(m)
	return fmt.Sprintf("%0.2f %sm", si, suffix)
}
