package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixtures(t *testing.T) (catalogPath, templatePath string) {
	t.Helper()
	dir := t.TempDir()

	catalogPath = filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte("MATH200: Linear Algebra\nCS101: Intro to CS\n"), 0o644))

	img := image.NewRGBA(image.Rect(0, 0, 60, 20))
	for x := 0; x < 60; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	templatePath = filepath.Join(dir, "template.png")
	require.NoError(t, os.WriteFile(templatePath, buf.Bytes(), 0o644))
	return catalogPath, templatePath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCatalogCommand(t *testing.T) {
	catalogPath, _ := writeFixtures(t)

	out, err := execute(t, "catalog", "--catalog", catalogPath)
	require.NoError(t, err)
	assert.Contains(t, out, "CS101")
	assert.Contains(t, out, "Linear Algebra")
	assert.Less(t, bytes.Index([]byte(out), []byte("CS101")), bytes.Index([]byte(out), []byte("MATH200")))

	out, err = execute(t, "catalog", "--catalog", catalogPath, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"code": "CS101"`)
}

func TestRenderCommand(t *testing.T) {
	catalogPath, templatePath := writeFixtures(t)
	outDir := t.TempDir()

	_, err := execute(t, "render",
		"--first-name", "Ada", "--last-name", "Lovelace",
		"--issuer", "Analytical Engine Academy", "-k", "CS101",
		"--catalog", catalogPath, "--template", templatePath,
		"--date", "2024-03-14", "-o", outDir,
	)
	require.NoError(t, err)

	pngBytes, err := os.ReadFile(filepath.Join(outDir, "CS101.png"))
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(pngBytes))
	assert.NoError(t, err)

	pdfBytes, err := os.ReadFile(filepath.Join(outDir, "CS101.pdf"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdfBytes, []byte("%PDF")))
}

func TestRenderCommandUnknownKeyCode(t *testing.T) {
	catalogPath, templatePath := writeFixtures(t)

	_, err := execute(t, "render",
		"--first-name", "Ada", "--last-name", "Lovelace", "--issuer", "X", "-k", "NOPE",
		"--catalog", catalogPath, "--template", templatePath,
	)
	assert.ErrorContains(t, err, "unknown key code")
}
