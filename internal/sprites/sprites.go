package sprites

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/png"
)

// Options controls sprite sheet composition.
type Options struct {
	CellWidth  int
	CellHeight int
	Columns    int
	MaxRows    int
	Quality    int
	// Prefix names the generated sheet files, e.g. "sprite" yields
	// sprite-0.jpg, sprite-1.jpg.
	Prefix string
}

// Placement locates one source image inside the generated sheets.
type Placement struct {
	SheetIndex int
	SheetFile  string
	X          int
	Y          int
}

func (o *Options) normalize() {
	if o.CellWidth <= 0 {
		o.CellWidth = 142
	}
	if o.CellHeight <= 0 {
		o.CellHeight = 80
	}
	if o.Columns <= 0 {
		o.Columns = 5
	}
	if o.MaxRows <= 0 {
		o.MaxRows = 5
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 90
	}
	if o.Prefix == "" {
		o.Prefix = "sprite"
	}
}

// Generate composes the source images into one or more sprite sheets under
// destDir and returns a placement per source, in input order. Sheets fill
// left to right, top to bottom; a new sheet starts when the grid is full.
func Generate(sources []string, destDir string, opts Options) ([]Placement, error) {
	if len(sources) == 0 {
		return nil, errors.New("no source images")
	}
	opts.normalize()
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create sprite directory: %w", err)
	}

	perSheet := opts.Columns * opts.MaxRows
	placements := make([]Placement, 0, len(sources))

	for start := 0; start < len(sources); start += perSheet {
		end := start + perSheet
		if end > len(sources) {
			end = len(sources)
		}
		batch := sources[start:end]
		sheetIndex := start / perSheet
		sheetFile := filepath.Join(destDir, fmt.Sprintf("%s-%d.jpg", opts.Prefix, sheetIndex))

		sheetPlacements, err := composeSheet(batch, sheetFile, sheetIndex, opts)
		if err != nil {
			return nil, err
		}
		placements = append(placements, sheetPlacements...)
	}
	return placements, nil
}

func composeSheet(batch []string, sheetFile string, sheetIndex int, opts Options) ([]Placement, error) {
	rows := (len(batch) + opts.Columns - 1) / opts.Columns
	sheet := image.NewRGBA(image.Rect(0, 0, opts.Columns*opts.CellWidth, rows*opts.CellHeight))

	placements := make([]Placement, 0, len(batch))
	for i, source := range batch {
		cell, err := loadScaled(source, opts.CellWidth, opts.CellHeight)
		if err != nil {
			return nil, fmt.Errorf("sprite source %s: %w", filepath.Base(source), err)
		}
		x := (i % opts.Columns) * opts.CellWidth
		y := (i / opts.Columns) * opts.CellHeight
		target := image.Rect(x, y, x+opts.CellWidth, y+opts.CellHeight)
		draw.Draw(sheet, target, cell, image.Point{}, draw.Src)

		placements = append(placements, Placement{
			SheetIndex: sheetIndex,
			SheetFile:  sheetFile,
			X:          x,
			Y:          y,
		})
	}

	out, err := os.Create(sheetFile)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := jpeg.Encode(out, sheet, &jpeg.Options{Quality: opts.Quality}); err != nil {
		out.Close()
		_ = os.Remove(sheetFile)
		return nil, fmt.Errorf("encode sheet: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close sheet: %w", err)
	}
	return placements, nil
}

func loadScaled(path string, width, height int) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return src, nil
	}
	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
	return scaled, nil
}
