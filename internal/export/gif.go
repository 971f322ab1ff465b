// Package export writes the assembled frame sequence to disk.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"
)

// ErrWrite marks export failures (unwritable path, disk full). The caller
// decides whether that aborts the run.
var ErrWrite = errors.New("export failed")

// GIF encodes the frames as a single looping animated GIF at path,
// creating parent directories as needed. Each frame is quantized against
// pal; delayCS is the per-frame delay in centiseconds. Nothing is written
// until the full sequence has been encoded in memory.
func GIF(frames []*image.RGBA, pal color.Palette, path string, delayCS int) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frames to encode", ErrWrite)
	}

	anim := &gif.GIF{LoopCount: 0}
	for _, frame := range frames {
		p := image.NewPaletted(frame.Bounds(), pal)
		draw.FloydSteinberg.Draw(p, frame.Bounds(), frame, image.Point{})
		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, delayCS)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", ErrWrite, dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrWrite, path, err)
	}
	defer f.Close()

	if err := gif.EncodeAll(f, anim); err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrWrite, path, err)
	}
	return nil
}
