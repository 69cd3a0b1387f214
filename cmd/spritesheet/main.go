// Command spritesheet converts an image strip into a sprite sheet file
// that matrix -native -sheet can play.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/asset"
	"github.com/wippyai/wasm-matrix/colorspace"
	"github.com/wippyai/wasm-matrix/sink"
)

func main() {
	var (
		in         = flag.String("in", "", "Source image (PNG, GIF, JPEG or BMP)")
		out        = flag.String("out", "", "Output sheet file")
		width      = flag.Int("width", wasmmatrix.DefaultGrid.Width, "Grid width")
		height     = flag.Int("height", wasmmatrix.DefaultGrid.Height, "Grid height")
		ticks      = flag.String("ticks", "", "Per-frame durations in ticks, comma-separated")
		horizontal = flag.Bool("horizontal", false, "Frames run left to right instead of top to bottom")
		preview    = flag.Bool("preview", false, "Print every frame to the terminal")
	)
	flag.Parse()

	if *in == "" || *ticks == "" || (*out == "" && !*preview) {
		fmt.Fprintln(os.Stderr, "Usage: spritesheet -in strip.png -ticks 48,32,32 -out strip.sheet [-width 16 -height 16] [-horizontal] [-preview]")
		os.Exit(1)
	}

	layout := asset.Vertical
	if *horizontal {
		layout = asset.Horizontal
	}
	if err := run(*in, *out, wasmmatrix.Grid{Width: *width, Height: *height}, layout, *ticks, *preview); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(in, out string, grid wasmmatrix.Grid, layout asset.Layout, ticks string, preview bool) error {
	var durations []uint64
	for _, field := range strings.Split(ticks, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return fmt.Errorf("tick %q: %w", field, err)
		}
		durations = append(durations, v)
	}

	f, err := os.Open(in)
	if err != nil {
		return err
	}
	img, err := asset.Decode(f)
	f.Close()
	if err != nil {
		return err
	}

	sheet, err := asset.Build(img, grid, layout, durations)
	if err != nil {
		return err
	}

	if preview {
		r := lipgloss.NewRenderer(os.Stdout)
		logical := make([]colorspace.RGB, grid.Pixels())
		for i, e := range sheet.Entries {
			for p := range logical {
				o := e.Offset + p*wasmmatrix.PixelChannels
				logical[p] = colorspace.RGB{R: sheet.Data[o], G: sheet.Data[o+1], B: sheet.Data[o+2]}
			}
			fmt.Printf("frame %d  until tick %d\n%s\n\n", i, e.EndTick, sink.Render(r, grid, logical, 255))
		}
	}

	if out == "" {
		return nil
	}
	w, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := asset.Write(w, sheet); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Printf("%s: %d frame(s) at %s, %d ticks\n", out, len(sheet.Entries), grid, sheet.Entries[len(sheet.Entries)-1].EndTick)
	return nil
}
