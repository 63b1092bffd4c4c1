package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/fitdash/charts"
	"github.com/fitdash/models"
	"golang.org/x/image/draw"
)

const tileGap = 12

// Snapshot is the data currently shown on a client's dashboard
type Snapshot struct {
	Charts   []charts.Projection
	Activity *models.ChartData
}

// SnapshotFunc loads the dashboard data for a capture request
type SnapshotFunc func(ctx context.Context, req Request) (Snapshot, error)

// RenderCapturer draws every chart with go-chart and composes the tiles into
// one image, two per row.
type RenderCapturer struct {
	snapshot SnapshotFunc
	tile     charts.TileSize
	columns  int
}

func NewRenderCapturer(snapshot SnapshotFunc, tile charts.TileSize) *RenderCapturer {
	if tile.Width <= 0 || tile.Height <= 0 {
		tile = charts.DefaultTile
	}
	return &RenderCapturer{snapshot: snapshot, tile: tile, columns: 2}
}

func (c *RenderCapturer) Name() string { return "render" }

func (c *RenderCapturer) Capture(ctx context.Context, req Request) ([]byte, error) {
	snap, err := c.snapshot(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	tiles := make([][]byte, 0, len(snap.Charts)+1)
	for _, p := range snap.Charts {
		data, err := charts.RenderPNG(p, c.tile)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, data)
	}
	if snap.Activity != nil {
		data, err := charts.RenderStackedBarPNG(*snap.Activity, c.tile)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, data)
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("nothing to capture")
	}
	return Compose(tiles, c.tile, c.columns)
}

// Compose lays PNG tiles out on a white grid. Tiles of a different size are
// scaled into their cell.
func Compose(tiles [][]byte, tile charts.TileSize, columns int) ([]byte, error) {
	if columns <= 0 {
		columns = 1
	}
	rows := (len(tiles) + columns - 1) / columns
	cols := min(columns, len(tiles))
	width := cols*tile.Width + (cols+1)*tileGap
	height := rows*tile.Height + (rows+1)*tileGap

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i, data := range tiles {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode tile %d: %w", i, err)
		}
		x := tileGap + (i%columns)*(tile.Width+tileGap)
		y := tileGap + (i/columns)*(tile.Height+tileGap)
		cell := image.Rect(x, y, x+tile.Width, y+tile.Height)

		b := img.Bounds()
		if b.Dx() == tile.Width && b.Dy() == tile.Height {
			draw.Draw(canvas, cell, img, b.Min, draw.Over)
			continue
		}
		draw.CatmullRom.Scale(canvas, cell, img, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
