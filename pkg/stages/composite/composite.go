// Package composite implements the contact sheet composition stage.
package composite

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/user/framepump/pkg/pipeline"
	"github.com/user/framepump/pkg/ports"
)

// Stage draws thumbnails and their timestamps onto a single sheet.
type Stage struct {
	renderer   ports.Renderer
	logger     ports.Logger
	numWorkers int
}

// NewStage creates a new composite stage.
func NewStage(renderer ports.Renderer, logger ports.Logger, numWorkers int) *Stage {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Stage{
		renderer:   renderer,
		logger:     logger.WithComponent("composite"),
		numWorkers: numWorkers,
	}
}

// Execute renders the sheet. Thumbnails beyond the number of layout cells are dropped.
func (s *Stage) Execute(ctx context.Context, input pipeline.SheetInput) (pipeline.SheetResult, error) {
	thumbs := input.Thumbnails
	if len(thumbs) > len(input.Layout.Cells) {
		thumbs = thumbs[:len(input.Layout.Cells)]
	}

	s.logger.Debug("Compositing %d thumbnails with %d workers", len(thumbs), s.numWorkers)

	fitted, err := s.fitAll(ctx, thumbs, input.Layout.Cells)
	if err != nil {
		return pipeline.SheetResult{}, err
	}

	sheet := input.Layout.Sheet
	canvas := s.renderer.CreateCanvas(sheet.Width, sheet.Height, input.Theme.BackgroundColor)

	labelStyle := ports.TextStyle{
		FontSize: input.Theme.FontSize,
		Color:    input.Theme.TextColor,
		Align:    ports.AlignCenter,
	}

	if h := input.Layout.Header; h.Height > 0 && input.Title != "" {
		canvas.DrawText(input.Title, h.X, h.Y+h.Height/2, ports.TextStyle{
			FontSize: input.Theme.FontSize * 1.3,
			Color:    input.Theme.TextColor,
			Align:    ports.AlignLeft,
		})
	}

	for i, th := range thumbs {
		cell := input.Layout.Cells[i]
		img := fitted[i]
		b := img.Bounds()

		// Center inside the cell, with a one pixel border.
		x := cell.Image.X + (cell.Image.Width-b.Dx())/2
		y := cell.Image.Y + (cell.Image.Height-b.Dy())/2
		canvas.DrawRect(x-1, y-1, b.Dx()+2, b.Dy()+2, input.Theme.BorderColor)
		canvas.DrawImage(img, x, y)

		canvas.DrawText(Label(th), cell.Label.X+cell.Label.Width/2, cell.Label.Y+cell.Label.Height/2, labelStyle)
	}

	s.logger.Debug("Composition completed")
	return pipeline.SheetResult{Image: canvas.ToImage()}, nil
}

// fitAll scales every thumbnail into its cell on a bounded worker pool.
func (s *Stage) fitAll(ctx context.Context, thumbs []pipeline.Thumbnail, cells []pipeline.Cell) ([]image.Image, error) {
	fitted := make([]image.Image, len(thumbs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.numWorkers)
	for i := range thumbs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img := thumbs[i].Image
			if img == nil {
				return fmt.Errorf("thumbnail %d: no image", thumbs[i].Index)
			}
			w, h := Fit(img.Bounds().Dx(), img.Bounds().Dy(), cells[i].Image.Width, cells[i].Image.Height)
			if w != img.Bounds().Dx() || h != img.Bounds().Dy() {
				img = s.renderer.ResizeImage(img, w, h)
			}
			fitted[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fitted, nil
}

// Fit scales w x h to the largest size inside maxW x maxH keeping the aspect
// ratio. Each side is at least one pixel.
func Fit(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return max(maxW, 1), max(maxH, 1)
	}
	if w*maxH > h*maxW {
		return maxW, max(h*maxW/w, 1)
	}
	return max(w*maxH/h, 1), maxH
}

// Label is the caption of a thumbnail: its timestamp, else its frame number.
func Label(th pipeline.Thumbnail) string {
	if pts, ok := th.PTS.Get(); ok {
		return pipeline.FormatClock(pts)
	}
	return fmt.Sprintf("#%d", th.Index)
}
