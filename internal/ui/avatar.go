package ui

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderAvatarBase64 renders a base64 image payload as a half-block
// thumbnail. Undecodable payloads render as nothing; an avatar is never
// worth an error path in a view.
func renderAvatarBase64(data string, cols, rows int) string {
	if strings.TrimSpace(data) == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return ""
	}
	return renderAvatarBytes(raw, cols, rows)
}

// renderAvatarBytes renders decoded image bytes as a cols x rows cell
// thumbnail using upper half blocks, two vertical pixels per cell.
func renderAvatarBytes(raw []byte, cols, rows int) string {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	return renderAvatarImage(img, cols, rows)
}

func renderAvatarImage(img image.Image, cols, rows int) string {
	if cols < 1 || rows < 1 {
		return ""
	}
	samples := sampleGrid(img, cols, rows*2)

	var b strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			top := samples[row*2][col]
			bottom := samples[row*2+1][col]
			b.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom)).
				Render("▀"))
		}
		if row < rows-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// sampleGrid averages the image into a rows x cols grid of hex colors.
func sampleGrid(img image.Image, cols, rows int) [][]string {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	grid := make([][]string, rows)
	for row := 0; row < rows; row++ {
		grid[row] = make([]string, cols)
		for col := 0; col < cols; col++ {
			x0 := bounds.Min.X + col*width/cols
			x1 := bounds.Min.X + (col+1)*width/cols
			y0 := bounds.Min.Y + row*height/rows
			y1 := bounds.Min.Y + (row+1)*height/rows
			if x1 <= x0 {
				x1 = x0 + 1
			}
			if y1 <= y0 {
				y1 = y0 + 1
			}
			grid[row][col] = averageColor(img, x0, y0, x1, y1)
		}
	}
	return grid
}

func averageColor(img image.Image, x0, y0, x1, y1 int) string {
	var r, g, b, n uint64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			r += uint64(cr >> 8)
			g += uint64(cg >> 8)
			b += uint64(cb >> 8)
			n++
		}
	}
	if n == 0 {
		return "#000000"
	}
	return fmt.Sprintf("#%02x%02x%02x", r/n, g/n, b/n)
}
