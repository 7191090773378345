package boardimage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strconv"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/gungi-arena/internal/gungi"
)

const (
	squareSize = 64
	margin     = 28
	boardSize  = squareSize * gungi.BoardSize
	titleSpace = 24
)

// Options decorate a rendered board.
type Options struct {
	// Highlight marks the last move's source and destination cells.
	Highlight *gungi.Move
	Title     string
}

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{214, 180, 132, 255}
	gridColor       = color.RGBA{120, 86, 52, 255}
	highlightFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	backgroundColor = color.RGBA{28, 31, 46, 255}
	labelColor      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	darkInk         = color.RGBA{30, 24, 20, 255}
	lightInk        = color.RGBA{246, 240, 228, 255}
)

var abbreviations = map[gungi.PieceType]string{
	gungi.Marshal:    "Ms",
	gungi.General:    "Gn",
	gungi.Lieutenant: "Lt",
	gungi.Major:      "Mj",
	gungi.Minor:      "Mn",
	gungi.Shinobi:    "Sh",
	gungi.Bow:        "Bw",
	gungi.Cannon:     "Cn",
	gungi.Fort:       "Ft",
	gungi.Pawn:       "Pw",
	gungi.Fortress:   "Fs",
	gungi.Lance:      "La",
	gungi.Spy:        "Sp",
}

// RenderPNG draws the top piece of every stack, with one ring per extra tier.
// Player1 sits at the bottom of the image.
func RenderPNG(ctx context.Context, b *gungi.Board, opts Options) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("board is nil")
	}
	width := boardSize + margin*2
	height := boardSize + margin*2 + titleSpace
	origin := image.Point{X: margin, Y: margin + titleSpace}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawSquares(img, origin)
	drawHighlight(img, opts.Highlight, origin)
	if err := drawPieces(ctx, img, b, origin); err != nil {
		return nil, err
	}
	drawCoordinates(img, origin)
	if opts.Title != "" {
		drawText(img, opts.Title, margin, margin+4, labelColor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func cellRect(origin image.Point, row, col int) image.Rectangle {
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func drawSquares(dst imagedraw.Image, origin image.Point) {
	for row := 0; row < gungi.BoardSize; row++ {
		for col := 0; col < gungi.BoardSize; col++ {
			clr := lightSquare
			if (row+col)%2 == 1 {
				clr = darkSquare
			}
			r := cellRect(origin, row, col)
			imagedraw.Draw(dst, r, image.NewUniform(gridColor), image.Point{}, imagedraw.Src)
			imagedraw.Draw(dst, r.Inset(1), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawHighlight(dst imagedraw.Image, mv *gungi.Move, origin image.Point) {
	if mv == nil {
		return
	}
	for _, p := range []gungi.Position{mv.From, mv.To} {
		if !p.InBounds() {
			continue
		}
		r := cellRect(origin, p.Row, p.Col).Inset(1)
		imagedraw.Draw(dst, r, image.NewUniform(highlightFill), image.Point{}, imagedraw.Over)
	}
}

func drawPieces(ctx context.Context, dst imagedraw.Image, b *gungi.Board, origin image.Point) error {
	for row := 0; row < gungi.BoardSize; row++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for col := 0; col < gungi.BoardSize; col++ {
			top, height := topOfStack(b, row, col)
			if height == 0 {
				continue
			}
			token, err := renderToken(top.Owner, height, squareSize)
			if err != nil {
				return err
			}
			r := cellRect(origin, row, col)
			imagedraw.Draw(dst, r, token, image.Point{}, imagedraw.Over)

			ink := darkInk
			if top.Owner == gungi.Player1 {
				ink = lightInk
			}
			label := abbreviations[top.Type]
			drawText(dst, label, r.Min.X+squareSize/2-7, r.Min.Y+squareSize/2+4, ink)
		}
	}
	return nil
}

func topOfStack(b *gungi.Board, row, col int) (gungi.Piece, int) {
	var top gungi.Piece
	height := 0
	for tier := 0; tier < gungi.TierCount; tier++ {
		if p, ok := b.At(gungi.Pos(row, col, tier)); ok {
			top = p
			height = tier + 1
		}
	}
	return top, height
}

func drawCoordinates(dst imagedraw.Image, origin image.Point) {
	for i := 0; i < gungi.BoardSize; i++ {
		n := strconv.Itoa(i)
		drawText(dst, n, origin.X+i*squareSize+squareSize/2-3, origin.Y+boardSize+16, labelColor)
		drawText(dst, n, origin.X-16, origin.Y+i*squareSize+squareSize/2+4, labelColor)
	}
}

func drawText(dst imagedraw.Image, text string, x, baseline int, clr color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(clr),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(text)
}

type tokenKey struct {
	owner  gungi.Player
	height int
	size   int
}

var (
	tokenCache   = map[tokenKey]image.Image{}
	tokenCacheMu sync.RWMutex
)

// renderToken rasterizes the round piece token: a filled disc in the owner's
// colour plus one inner ring per tier above the first.
func renderToken(owner gungi.Player, height, size int) (image.Image, error) {
	key := tokenKey{owner: owner, height: height, size: size}
	tokenCacheMu.RLock()
	if img, ok := tokenCache[key]; ok {
		tokenCacheMu.RUnlock()
		return img, nil
	}
	tokenCacheMu.RUnlock()

	icon, err := oksvg.ReadIconStream(bytes.NewReader(tokenSVG(owner, height)))
	if err != nil {
		return nil, fmt.Errorf("parse token svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	tokenCacheMu.Lock()
	tokenCache[key] = img
	tokenCacheMu.Unlock()
	return img, nil
}

func tokenSVG(owner gungi.Player, height int) []byte {
	fill, stroke := "#2a211b", "#f3e9d2"
	if owner == gungi.Player2 {
		fill, stroke = "#f3e9d2", "#2a211b"
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100" width="100" height="100">`)
	fmt.Fprintf(&buf, `<circle cx="50" cy="50" r="40" fill="%s" stroke="%s" stroke-width="4"/>`, fill, stroke)
	for i := 1; i < height; i++ {
		fmt.Fprintf(&buf, `<circle cx="50" cy="50" r="%d" fill="none" stroke="#c0392b" stroke-width="3"/>`, 40-6*i)
	}
	buf.WriteString(`</svg>`)
	return buf.Bytes()
}
