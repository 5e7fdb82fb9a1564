package computer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sort"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	screenWidth  = 1024
	screenHeight = 640
)

var (
	colorBackground = color.RGBA{0xf5, 0xf5, 0xf5, 0xff}
	colorHeader     = color.RGBA{0x25, 0x63, 0xeb, 0xff}
	colorCartPanel  = color.RGBA{0x10, 0xb9, 0x81, 0xff}
	colorFooter     = color.RGBA{0xe5, 0xe7, 0xeb, 0xff}
	colorText       = color.RGBA{0x37, 0x41, 0x51, 0xff}
	colorAccent     = color.RGBA{0x05, 0x96, 0x69, 0xff}
	colorWhite      = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// renderScreenshot draws a deterministic PNG reflecting the simulated state.
// Exact pixel content is a debugging aid, not a contract; the image just has
// to be a valid PNG and vary with the state it depicts.
func renderScreenshot(actionType string, params map[string]any, state map[string]any) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, screenWidth, screenHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorBackground), image.Point{}, draw.Src)

	// Header bar.
	draw.Draw(img, image.Rect(0, 0, screenWidth, 60), image.NewUniform(colorHeader), image.Point{}, draw.Src)
	drawText(img, 20, 35, "MOCK Browser - Computer Use Simulator", colorWhite)

	url, _ := state["url"].(string)
	drawText(img, 30, 100, fmt.Sprintf("URL: %s", url), colorText)

	count, _ := state["action_count"].(int)
	y := 160
	drawText(img, 30, y, fmt.Sprintf("Action #%d: %s", count, strings.ToUpper(actionType)), colorAccent)
	y += 30

	// Parameters, sorted for stable output.
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		drawText(img, 50, y, fmt.Sprintf("- %s: %v", k, params[k]), colorText)
		y += 20
	}

	if notes, ok := state["notes"].([]string); ok {
		y += 10
		for _, note := range notes {
			drawText(img, 50, y, "+ "+note, colorAccent)
			y += 20
		}
	}

	// Page-specific decorations.
	switch {
	case strings.Contains(url, "cart"):
		draw.Draw(img, image.Rect(screenWidth-260, 200, screenWidth-60, 400), image.NewUniform(colorCartPanel), image.Point{}, draw.Src)
		drawText(img, screenWidth-240, 230, "Shopping Cart", colorWhite)
		drawText(img, screenWidth-240, 260, "Black Jacket - $299", colorWhite)
	case strings.Contains(url, "product"):
		draw.Draw(img, image.Rect(50, 250, 350, 450), image.NewUniform(colorFooter), image.Point{}, draw.Src)
		drawText(img, 120, 350, "Jacket Image", colorText)
		drawText(img, 400, 280, "Patagonia Black Jacket - $299", colorText)
	}

	// Footer.
	draw.Draw(img, image.Rect(0, screenHeight-40, screenWidth, screenHeight), image.NewUniform(colorFooter), image.Point{}, draw.Src)
	drawText(img, 20, screenHeight-15, fmt.Sprintf("Mock Mode | Actions: %d", count), colorText)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

func drawText(img draw.Image, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
