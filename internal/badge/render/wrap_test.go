package render

import (
	"strings"
	"testing"

	"github.com/fogleman/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// bodyContext returns a canvas with the description face selected.
func bodyContext(t *testing.T) *gg.Context {
	t.Helper()
	fonts, err := loadFonts()
	require.NoError(t, err)
	face, err := opentype.NewFace(fonts.regular, &opentype.FaceOptions{Size: bodySize, DPI: 72, Hinting: font.HintingFull})
	require.NoError(t, err)
	t.Cleanup(func() { _ = face.Close() })

	dc := gg.NewContext(CanvasWidth, CanvasHeight)
	dc.SetFontFace(face)
	return dc
}

func width(dc *gg.Context, s string) float64 {
	w, _ := dc.MeasureString(s)
	return w
}

func TestWrapLines(t *testing.T) {
	dc := bodyContext(t)

	t.Run("fits on one line", func(t *testing.T) {
		assert.Equal(t, []string{"Intro to CS"}, wrapLines(dc, "Intro to CS", descriptionWidth, 3))
	})

	t.Run("exact fit is not broken", func(t *testing.T) {
		limit := width(dc, "alpha beta")
		assert.Equal(t, []string{"alpha beta"}, wrapLines(dc, "alpha beta", limit, 3))
	})

	t.Run("packs greedily and flushes the final partial line", func(t *testing.T) {
		limit := width(dc, "alpha beta")
		got := wrapLines(dc, "alpha beta alpha beta alpha", limit, 5)
		assert.Equal(t, []string{"alpha beta", "alpha beta", "alpha"}, got)
	})

	t.Run("over-long word keeps its own line", func(t *testing.T) {
		limit := width(dc, "short") + 1
		got := wrapLines(dc, "supercalifragilistic short", limit, 5)
		assert.Equal(t, []string{"supercalifragilistic", "short"}, got)
		assert.Greater(t, width(dc, got[0]), limit)
	})

	t.Run("never splits a word", func(t *testing.T) {
		text := "Advanced Distributed Systems Engineering with Practical Laboratory Sessions and a Capstone"
		got := wrapLines(dc, text, 200, 10)
		require.Greater(t, len(got), 1)
		assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(got, " ")))
		for _, line := range got {
			if width(dc, line) > 200 {
				assert.NotContains(t, line, " ", "only a single word may overflow")
			}
		}
	})
}

func TestWrapLinesTruncatesWithEllipsis(t *testing.T) {
	dc := bodyContext(t)
	limit := width(dc, "alpha beta")

	got := wrapLines(dc, "alpha beta alpha beta alpha beta", limit, 2)

	require.Len(t, got, 2)
	assert.Equal(t, "alpha beta", got[0])
	assert.True(t, strings.HasSuffix(got[1], ellipsis), got[1])
	assert.LessOrEqual(t, width(dc, got[1]), limit)
	assert.True(t, strings.HasPrefix("alpha beta", strings.TrimSuffix(got[1], ellipsis)), got[1])
}

func TestDescriptionStaysOnCanvas(t *testing.T) {
	dc := bodyContext(t)
	text := strings.Repeat("Advanced Distributed Systems Engineering ", 6)

	lines := wrapLines(dc, text, descriptionWidth, maxDescriptionLines)
	require.Len(t, lines, maxDescriptionLines)

	baselines, date := textBaselines(len(lines))
	for _, y := range baselines {
		assert.Less(t, y, date)
	}
	assert.LessOrEqual(t, date, float64(CanvasHeight-lineHeight/2))
}

func TestTextBaselines(t *testing.T) {
	lines, date := textBaselines(1)
	assert.Equal(t, []float64{descriptionY}, lines)
	assert.Equal(t, float64(dateY), date)

	lines, date = textBaselines(2)
	assert.Equal(t, []float64{descriptionY, descriptionY + lineHeight}, lines)
	assert.Equal(t, float64(descriptionY+2*lineHeight), date)
}
