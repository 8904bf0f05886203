package sprites

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeImage(t *testing.T, path string, width, height int, fill color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	switch filepath.Ext(path) {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, nil)
	}
	if err != nil {
		t.Fatal(err)
	}
}

func TestGeneratePlacesImagesInGridOrder(t *testing.T) {
	dir := t.TempDir()
	var sources []string
	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, "slide"+string(rune('a'+i))+".jpg")
		writeImage(t, path, 320, 180, color.RGBA{R: uint8(80 * i), A: 255})
		sources = append(sources, path)
	}

	out := filepath.Join(dir, "sprites")
	placements, err := Generate(sources, out, Options{CellWidth: 10, CellHeight: 6, Columns: 2, MaxRows: 5})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(placements) != 3 {
		t.Fatalf("expected 3 placements, got %d", len(placements))
	}

	expected := []struct{ x, y int }{{0, 0}, {10, 0}, {0, 6}}
	for i, placement := range placements {
		if placement.SheetIndex != 0 {
			t.Fatalf("placement %d on sheet %d, want 0", i, placement.SheetIndex)
		}
		if placement.X != expected[i].x || placement.Y != expected[i].y {
			t.Fatalf("placement %d at (%d,%d), want (%d,%d)", i, placement.X, placement.Y, expected[i].x, expected[i].y)
		}
	}

	f, err := os.Open(placements[0].SheetFile)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode sheet: %v", err)
	}
	if cfg.Width != 20 || cfg.Height != 12 {
		t.Fatalf("sheet size %dx%d, want 20x12", cfg.Width, cfg.Height)
	}
}

func TestGenerateSpillsOntoSecondSheet(t *testing.T) {
	dir := t.TempDir()
	var sources []string
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, "s"+string(rune('a'+i))+".png")
		writeImage(t, path, 8, 8, color.RGBA{G: 200, A: 255})
		sources = append(sources, path)
	}

	placements, err := Generate(sources, filepath.Join(dir, "out"), Options{
		CellWidth: 4, CellHeight: 4, Columns: 2, MaxRows: 2,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if placements[3].SheetIndex != 0 {
		t.Fatalf("fourth image should close sheet 0, got sheet %d", placements[3].SheetIndex)
	}
	if placements[4].SheetIndex != 1 {
		t.Fatalf("fifth image should open sheet 1, got sheet %d", placements[4].SheetIndex)
	}
	if placements[4].X != 0 || placements[4].Y != 0 {
		t.Fatalf("fifth image should restart the grid, got (%d,%d)", placements[4].X, placements[4].Y)
	}
	if placements[4].SheetFile == placements[0].SheetFile {
		t.Fatal("second sheet must be a distinct file")
	}
}

func TestGenerateRejectsEmptyInput(t *testing.T) {
	if _, err := Generate(nil, t.TempDir(), Options{}); err == nil {
		t.Fatal("expected error for empty source list")
	}
}

func TestGenerateFailsOnMissingSource(t *testing.T) {
	dir := t.TempDir()
	if _, err := Generate([]string{filepath.Join(dir, "missing.jpg")}, dir, Options{}); err == nil {
		t.Fatal("expected error for missing source image")
	}
}
