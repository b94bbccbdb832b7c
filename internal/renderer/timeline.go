package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/marionette/internal/editor"
	"github.com/ivlev/marionette/internal/system"
)

var (
	background  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	axisColor   = color.RGBA{0xcc, 0xcc, 0xcc, 0xff}
	dotColor    = color.RGBA{0x80, 0x80, 0x80, 0xff}
	selectColor = color.RGBA{0xe0, 0x20, 0x20, 0xff}
	markerColor = color.RGBA{0x20, 0xb0, 0x20, 0xff}
	labelColor  = color.RGBA{0x20, 0x20, 0x20, 0xff}
)

const dotRadius = 4

// Timeline draws the keyframe strip: gray keyframe dots, selected ones in
// red, and a green marker at the playhead.
type Timeline struct {
	Width, Height int
	// Path is where Render writes the PNG. Empty disables Render.
	Path string
	Log  *slog.Logger
}

func NewTimeline(path string, width, height int) *Timeline {
	return &Timeline{Width: width, Height: height, Path: path, Log: slog.Default()}
}

// frameX maps a frame to its horizontal position
func (t *Timeline) frameX(frame, totalFrames int) int {
	if totalFrames <= 0 {
		return 0
	}
	return frame * t.Width / totalFrames
}

// Draw renders s onto a pooled image. Release it with system.PutImage.
func (t *Timeline) Draw(s editor.State) *image.RGBA {
	img := system.GetImage(image.Rect(0, 0, t.Width, t.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	mid := t.Height / 2
	draw.Draw(img, image.Rect(0, mid, t.Width, mid+1), image.NewUniform(axisColor), image.Point{}, draw.Src)

	for _, kf := range s.Keyframes {
		if kf.FrameIndex >= s.Config.TotalFrames {
			continue
		}
		c := dotColor
		if slices.Contains(s.Selected, kf.FrameIndex) {
			c = selectColor
		}
		fillCircle(img, t.frameX(kf.FrameIndex, s.Config.TotalFrames), mid, dotRadius, c)
	}

	x := t.frameX(s.FrameIndex, s.Config.TotalFrames)
	draw.Draw(img, image.Rect(x, 0, x+2, t.Height), image.NewUniform(markerColor), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 13),
	}
	d.DrawString(fmt.Sprintf("%d/%d @%dfps", s.FrameIndex, s.Config.TotalFrames, s.Config.FPS))
	return img
}

// Encode writes s as PNG
func (t *Timeline) Encode(w io.Writer, s editor.State) error {
	img := t.Draw(s)
	defer system.PutImage(img)
	return png.Encode(w, img)
}

// WriteFile writes s as PNG to path
func (t *Timeline) WriteFile(path string, s editor.State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.Encode(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Render refreshes the PNG at Path. Failures are logged.
func (t *Timeline) Render(s editor.State) {
	if t.Path == "" {
		return
	}
	if err := t.WriteFile(t.Path, s); err != nil && t.Log != nil {
		t.Log.Warn("render timeline", "path", t.Path, "err", err)
	}
}

func fillCircle(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				img.SetRGBA(cx+x, cy+y, c)
			}
		}
	}
}
