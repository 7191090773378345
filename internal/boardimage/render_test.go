package boardimage

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/park285/gungi-arena/internal/gungi"
)

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func cellCenter(row, col int) image.Point {
	return image.Point{
		X: margin + col*squareSize + squareSize/2,
		Y: margin + titleSpace + row*squareSize + squareSize/2,
	}
}

func TestRenderStandardBoard(t *testing.T) {
	data, err := RenderPNG(context.Background(), gungi.StandardBoard(), Options{Title: "m1"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img := decode(t, data)
	want := image.Rect(0, 0, boardSize+margin*2, boardSize+margin*2+titleSpace)
	if img.Bounds() != want {
		t.Fatalf("bounds = %v, want %v", img.Bounds(), want)
	}

	// empty middle cell keeps the square colour
	c := cellCenter(4, 4)
	r, g, b, _ := img.At(c.X, c.Y).RGBA()
	if uint8(r>>8) != lightSquare.R || uint8(g>>8) != lightSquare.G || uint8(b>>8) != lightSquare.B {
		t.Fatalf("empty cell colour = %v", img.At(c.X, c.Y))
	}

	// Player1 tokens are dark, Player2 tokens light (sampled above the label)
	p1 := cellCenter(8, 4)
	if r, _, _, _ := img.At(p1.X, p1.Y-16).RGBA(); r>>8 > 100 {
		t.Fatalf("player1 token too light: %v", img.At(p1.X, p1.Y-16))
	}
	p2 := cellCenter(0, 4)
	if r, _, _, _ := img.At(p2.X, p2.Y-16).RGBA(); r>>8 < 180 {
		t.Fatalf("player2 token too dark: %v", img.At(p2.X, p2.Y-16))
	}
}

func TestRenderHighlight(t *testing.T) {
	b := gungi.StandardBoard()
	plain, err := RenderPNG(context.Background(), b, Options{})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	mv := &gungi.Move{From: gungi.Pos(6, 4, 0), To: gungi.Pos(4, 4, 0)}
	marked, err := RenderPNG(context.Background(), b, Options{Highlight: mv})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	c := cellCenter(4, 4)
	if decode(t, plain).At(c.X, c.Y) == decode(t, marked).At(c.X, c.Y) {
		t.Fatalf("highlight did not change destination cell")
	}
}

func TestRenderStackShowsRings(t *testing.T) {
	single := gungi.NewBoard()
	if _, err := single.Add(gungi.Pawn, gungi.Player1, gungi.Pos(4, 4, 0)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	stacked := single.Clone()
	if _, err := stacked.Add(gungi.Pawn, gungi.Player1, gungi.Pos(4, 4, 1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, h := topOfStack(stacked, 4, 4); h != 2 {
		t.Fatalf("height = %d", h)
	}

	a, err := RenderPNG(context.Background(), single, Options{})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	b, err := RenderPNG(context.Background(), stacked, Options{})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("stack height not visible")
	}
}

func TestRenderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RenderPNG(ctx, gungi.StandardBoard(), Options{}); err == nil {
		t.Fatalf("expected context error")
	}
	if _, err := RenderPNG(context.Background(), nil, Options{}); err == nil {
		t.Fatalf("expected nil board error")
	}
}
