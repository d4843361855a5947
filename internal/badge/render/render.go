// Package render draws badge images and wraps them into single-page PDFs.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/go-pdf/fpdf"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"badgeworks/internal/badge/models"
)

// Fixed badge layout, in pixels. The PDF page uses the same numbers in points.
const (
	CanvasWidth  = 600
	CanvasHeight = 200

	marginX       = 50
	nameY         = 50
	issuerY       = 100
	descriptionY  = 150
	dateY         = 180
	lineHeight    = 20
	ellipsis      = "..."
	nameSize      = 24
	issuerSize    = 18
	bodySize      = 16
	textColor     = "#333333"
	dateLayout    = "1/2/2006"
	documentImage = "badge"
)

// The description wraps inside the side margins. Two lines keep the date
// baseline at 190, inside the 200px canvas.
const (
	descriptionWidth    = CanvasWidth - 2*marginX
	maxDescriptionLines = 2
)

var (
	// ErrTemplateMissing means no base template image was configured.
	ErrTemplateMissing = errors.New("render: base template missing")
	// ErrIncompleteRecord means a field drawn on the badge is blank.
	ErrIncompleteRecord = errors.New("render: record missing required fields")
)

// Artifacts are the rendered outputs for one badge.
type Artifacts struct {
	Image    []byte
	Document []byte
}

type fontSet struct {
	regular *opentype.Font
	bold    *opentype.Font
}

var loadFonts = sync.OnceValues(func() (fontSet, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return fontSet{}, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return fontSet{}, fmt.Errorf("parse bold font: %w", err)
	}
	return fontSet{regular: regular, bold: bold}, nil
})

// Renderer draws badges over a base template. The template is scaled once at
// construction; Render is safe for concurrent use.
type Renderer struct {
	background *image.RGBA
}

// LoadTemplate reads a PNG or JPEG base template from disk.
func LoadTemplate(path string) (image.Image, error) {
	img, err := gg.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateMissing, path, err)
	}
	return img, nil
}

// New builds a renderer over template. A nil template is allowed so callers
// can start without one, but every Render then fails with ErrTemplateMissing.
func New(template image.Image) *Renderer {
	if template == nil {
		return &Renderer{}
	}
	bg := image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))
	draw.CatmullRom.Scale(bg, bg.Bounds(), template, template.Bounds(), draw.Src, nil)
	return &Renderer{background: bg}
}

// Render draws the PNG and the PDF for rec. Output is deterministic for a
// given record and template; the printed date comes from rec.CreatedAt.
func (r *Renderer) Render(rec models.BadgeRecord) (Artifacts, error) {
	if r == nil || r.background == nil {
		return Artifacts{}, ErrTemplateMissing
	}
	if err := checkRecord(rec); err != nil {
		return Artifacts{}, err
	}

	img, err := r.drawImage(rec)
	if err != nil {
		return Artifacts{}, err
	}
	doc, err := wrapDocument(img, rec)
	if err != nil {
		return Artifacts{}, err
	}
	return Artifacts{Image: img, Document: doc}, nil
}

func checkRecord(rec models.BadgeRecord) error {
	switch {
	case rec.FirstName == "" || rec.LastName == "":
		return fmt.Errorf("%w: name", ErrIncompleteRecord)
	case rec.Issuer == "":
		return fmt.Errorf("%w: issuer", ErrIncompleteRecord)
	case rec.KeyDescription == "":
		return fmt.Errorf("%w: key description", ErrIncompleteRecord)
	case rec.CreatedAt.IsZero():
		return fmt.Errorf("%w: issue date", ErrIncompleteRecord)
	}
	return nil
}

func (r *Renderer) drawImage(rec models.BadgeRecord) ([]byte, error) {
	fonts, err := loadFonts()
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(r.background.Bounds())
	copy(canvas.Pix, r.background.Pix)
	dc := gg.NewContextForRGBA(canvas)
	dc.SetHexColor(textColor)

	// Faces carry glyph caches and are not safe for concurrent use, so each
	// render opens its own.
	if err := withFace(dc, fonts.bold, nameSize, func() {
		dc.DrawString(rec.FullName(), marginX, nameY)
	}); err != nil {
		return nil, err
	}
	if err := withFace(dc, fonts.regular, issuerSize, func() {
		dc.DrawString("Issued by: "+rec.Issuer, marginX, issuerY)
	}); err != nil {
		return nil, err
	}

	if err := withFace(dc, fonts.regular, bodySize, func() {
		lines := wrapLines(dc, rec.KeyDescription, descriptionWidth, maxDescriptionLines)
		baselines, dateBaseline := textBaselines(len(lines))
		for i, line := range lines {
			dc.DrawString(line, marginX, baselines[i])
		}
		dc.DrawString("Date: "+rec.CreatedAt.UTC().Format(dateLayout), marginX, dateBaseline)
	}); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// wrapLines word-wraps text to maxWidth with the context's current face.
// Lines are packed greedily and words are never split; a word wider than
// maxWidth gets a line of its own. Past maxLines the text is cut at a word
// boundary and the last kept line ends with an ellipsis.
func wrapLines(dc *gg.Context, text string, maxWidth float64, maxLines int) []string {
	lines := dc.WordWrap(text, maxWidth)
	if len(lines) <= maxLines {
		return lines
	}
	kept := append([]string(nil), lines[:maxLines]...)
	last := kept[maxLines-1]
	for {
		candidate := last + ellipsis
		if w, _ := dc.MeasureString(candidate); w <= maxWidth {
			kept[maxLines-1] = candidate
			return kept
		}
		cut := strings.LastIndex(last, " ")
		if cut < 0 {
			kept[maxLines-1] = candidate
			return kept
		}
		last = strings.TrimRight(last[:cut], " ")
	}
}

// textBaselines places n description lines from descriptionY and the date
// line below them, never above dateY.
func textBaselines(n int) (lines []float64, date float64) {
	lines = make([]float64, n)
	date = dateY
	for i := range lines {
		lines[i] = descriptionY + float64(i*lineHeight)
		date = math.Max(date, lines[i]+lineHeight)
	}
	return lines, date
}

func withFace(dc *gg.Context, f *opentype.Font, size float64, fn func()) error {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return fmt.Errorf("open font face: %w", err)
	}
	defer face.Close()
	dc.SetFontFace(face)
	fn()
	return nil
}

func wrapDocument(png []byte, rec models.BadgeRecord) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: CanvasWidth, Ht: CanvasHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(rec.CreatedAt.UTC())
	pdf.SetModificationDate(rec.CreatedAt.UTC())
	pdf.SetTitle("Badge: "+rec.KeyDescription, true)
	pdf.SetAuthor(rec.Issuer, true)
	pdf.SetSubject(rec.FullName(), true)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(documentImage, opts, bytes.NewReader(png))
	pdf.ImageOptions(documentImage, 0, 0, CanvasWidth, CanvasHeight, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
