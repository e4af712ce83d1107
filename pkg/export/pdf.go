// Package export renders a canvas snapshot to PDF.
package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
)

const (
	// pxToMM converts canvas pixels at 96 dpi.
	pxToMM = 25.4 / 96
	margin = 10.0
)

type rgb struct{ r, g, b int }

// parseColor understands #rgb and #rrggbb; anything else is black.
func parseColor(s string) rgb {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return rgb{}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return rgb{}
	}
	return rgb{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}
}

// page maps canvas coordinates onto the page so the whole canvas fits inside the
// margins. Small canvases are drawn at natural size.
type page struct {
	minX, minY float64
	scale      float64
}

func fit(s board.Snapshot, pw, ph float64) page {
	first := true
	var box board.Box
	for _, c := range board.Collections {
		for _, e := range s.Entities(c) {
			b := e.Bounds()
			if first {
				box, first = b, false
				continue
			}
			box.MinX, box.MinY = math.Min(box.MinX, b.MinX), math.Min(box.MinY, b.MinY)
			box.MaxX, box.MaxY = math.Max(box.MaxX, b.MaxX), math.Max(box.MaxY, b.MaxY)
		}
	}
	p := page{minX: box.MinX, minY: box.MinY, scale: pxToMM}
	if w := box.Width(); w > 0 {
		p.scale = math.Min(p.scale, (pw-2*margin)/w)
	}
	if h := box.Height(); h > 0 {
		p.scale = math.Min(p.scale, (ph-2*margin)/h)
	}
	return p
}

func (p page) x(v float64) float64 { return margin + (v-p.minX)*p.scale }
func (p page) y(v float64) float64 { return margin + (v-p.minY)*p.scale }
func (p page) d(v float64) float64 { return v * p.scale }

func scaleOr1(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// WritePDF draws the snapshot on one A4 landscape page. Images are drawn as labelled
// frames since their sources are opaque references.
func WritePDF(w io.Writer, s board.Snapshot) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("whiteboard", true)
	pdf.AddPage()
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pw, ph := pdf.GetPageSize()
	p := fit(s, pw, ph)

	for _, im := range s.Images {
		rotate(pdf, im.Rotation, p.x(im.X), p.y(im.Y), func() {
			pdf.SetDrawColor(128, 128, 128)
			pdf.SetLineWidth(0.2)
			pdf.SetDashPattern([]float64{1, 1}, 0)
			pdf.Rect(p.x(im.X), p.y(im.Y), p.d(im.Width*scaleOr1(im.ScaleX)), p.d(im.Height*scaleOr1(im.ScaleY)), "D")
			pdf.SetDashPattern([]float64{}, 0)
			pdf.SetFont("Helvetica", "I", 6)
			pdf.SetTextColor(128, 128, 128)
			pdf.Text(p.x(im.X)+1, p.y(im.Y)+3, tr("image"))
		})
	}

	for _, sh := range s.Shapes {
		c := parseColor(sh.Color)
		pdf.SetDrawColor(c.r, c.g, c.b)
		pdf.SetLineWidth(math.Max(p.d(sh.StrokeWidth), 0.1))
		sx, sy := scaleOr1(sh.ScaleX), scaleOr1(sh.ScaleY)
		rotate(pdf, sh.Rotation, p.x(sh.X), p.y(sh.Y), func() {
			switch sh.Type {
			case board.Rectangle:
				x0, y0 := math.Min(sh.X, sh.X+sh.Width*sx), math.Min(sh.Y, sh.Y+sh.Height*sy)
				pdf.Rect(p.x(x0), p.y(y0), p.d(math.Abs(sh.Width*sx)), p.d(math.Abs(sh.Height*sy)), "D")
			case board.Circle:
				if sx == sy {
					pdf.Circle(p.x(sh.X), p.y(sh.Y), p.d(sh.Radius*sx), "D")
				} else {
					pdf.Ellipse(p.x(sh.X), p.y(sh.Y), p.d(sh.Radius*sx), p.d(sh.Radius*sy), 0, "D")
				}
			case board.Ellipse:
				pdf.Ellipse(p.x(sh.X), p.y(sh.Y), p.d(sh.RadiusX*sx), p.d(sh.RadiusY*sy), 0, "D")
			case board.Line:
				polyline(pdf, p, sh.Points, sh.X, sh.Y, sx, sy)
			}
		})
	}

	for _, l := range s.Lines {
		c := parseColor(l.Color)
		pdf.SetDrawColor(c.r, c.g, c.b)
		pdf.SetLineWidth(math.Max(p.d(l.StrokeWidth), 0.1))
		polyline(pdf, p, l.Points, 0, 0, 1, 1)
	}

	for _, t := range s.Texts {
		c := parseColor(t.Color)
		pdf.SetTextColor(c.r, c.g, c.b)
		size := t.FontSize
		if size <= 0 {
			size = 16
		}
		// font size in points: px → mm → pt
		pt := p.d(size*scaleOr1(t.ScaleY)) / 25.4 * 72
		pdf.SetFont("Helvetica", "", pt)
		rotate(pdf, t.Rotation, p.x(t.X), p.y(t.Y), func() {
			for i, line := range strings.Split(t.Text, "\n") {
				baseline := t.Y + size*scaleOr1(t.ScaleY)*(float64(i)+1)
				pdf.Text(p.x(t.X), p.y(baseline), tr(line))
			}
		})
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func polyline(pdf *gofpdf.Fpdf, p page, pts []float64, dx, dy, sx, sy float64) {
	for i := 2; i+1 < len(pts); i += 2 {
		pdf.Line(
			p.x(dx+pts[i-2]*sx), p.y(dy+pts[i-1]*sy),
			p.x(dx+pts[i]*sx), p.y(dy+pts[i+1]*sy),
		)
	}
}

// rotate draws fn rotated clockwise by deg around x,y, matching canvas rotation.
func rotate(pdf *gofpdf.Fpdf, deg, x, y float64, fn func()) {
	if deg == 0 {
		fn()
		return
	}
	pdf.TransformBegin()
	pdf.TransformRotate(-deg, x, y)
	fn()
	pdf.TransformEnd()
}
