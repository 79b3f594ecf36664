// Package layout implements the contact sheet layout stage.
package layout

import (
	"context"

	"github.com/user/framepump/pkg/pipeline"
)

// Stage calculates the contact sheet grid.
// This is a pure function with no external dependencies.
type Stage struct{}

// NewStage creates a new layout stage.
func NewStage() *Stage {
	return &Stage{}
}

// Execute calculates the grid for input.Count thumbnails.
func (s *Stage) Execute(ctx context.Context, input pipeline.LayoutInput) (pipeline.LayoutResult, error) {
	return ComputeLayout(input), nil
}

// ComputeLayout places cells row by row, left to right, below a full-width header.
// Each cell is the thumbnail with its label directly underneath.
//
// Sheet width is padding*2 + columns*cellWidth + gap*(columns-1); the column
// count shrinks to Count when there are fewer cells than columns.
func ComputeLayout(input pipeline.LayoutInput) pipeline.LayoutResult {
	columns := input.Columns
	if columns < 1 {
		columns = 1
	}
	if input.Count > 0 && input.Count < columns {
		columns = input.Count
	}

	rows := 0
	if input.Count > 0 {
		rows = (input.Count + columns - 1) / columns
	}

	rowHeight := input.CellHeight + input.LabelHeight
	width := input.Padding*2 + columns*input.CellWidth + input.Gap*(columns-1)
	height := input.Padding*2 + input.HeaderHeight
	if rows > 0 {
		height += rows*rowHeight + input.Gap*(rows-1)
		if input.HeaderHeight > 0 {
			height += input.Gap
		}
	}

	header := pipeline.Rectangle{}
	top := input.Padding
	if input.HeaderHeight > 0 {
		header = pipeline.Rectangle{
			X:      input.Padding,
			Y:      input.Padding,
			Width:  width - input.Padding*2,
			Height: input.HeaderHeight,
		}
		top += input.HeaderHeight + input.Gap
	}

	cells := make([]pipeline.Cell, input.Count)
	for i := range cells {
		col := i % columns
		row := i / columns
		x := input.Padding + col*(input.CellWidth+input.Gap)
		y := top + row*(rowHeight+input.Gap)

		cells[i] = pipeline.Cell{
			Image: pipeline.Rectangle{X: x, Y: y, Width: input.CellWidth, Height: input.CellHeight},
			Label: pipeline.Rectangle{X: x, Y: y + input.CellHeight, Width: input.CellWidth, Height: input.LabelHeight},
		}
	}

	return pipeline.LayoutResult{
		Sheet:  pipeline.Dimension{Width: width, Height: height},
		Header: header,
		Cells:  cells,
	}
}
