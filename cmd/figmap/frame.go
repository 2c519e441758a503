package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/figmap/server/internal/dataset"
	"github.com/figmap/server/internal/engine"
	"github.com/figmap/server/internal/render"
	"github.com/figmap/server/internal/service"
)

type frameOptions struct {
	data     string
	filters  []string
	colors   []string
	query    string
	start    int
	end      int
	offset   int
	png      string
	cellSize int
}

var frameOpts frameOptions

var frameCmd = &cobra.Command{
	Use:   "frame",
	Short: "Compute one frame and print it as JSON",
	Example: `  figmap frame --data proteins.json --filter category=Transport --end 10
  figmap frame --data proteins.sqlite --query 'SUB("G2", "G1")' --png out.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFrame(frameOpts, cmd.OutOrStdout())
	},
}

func init() {
	f := frameCmd.Flags()
	f.StringVar(&frameOpts.data, "data", "", "Dataset file (.json, .json.zst or .sqlite)")
	f.StringArrayVar(&frameOpts.filters, "filter", nil, "Facet selection as facet=value (repeatable)")
	f.StringArrayVar(&frameOpts.colors, "color", nil, "Colour assignment as value=colour (repeatable)")
	f.StringVar(&frameOpts.query, "query", "", "Genome set query")
	f.IntVar(&frameOpts.start, "start", 0, "Window start")
	f.IntVar(&frameOpts.end, "end", 25, "Window end")
	f.IntVar(&frameOpts.offset, "offset", 0, "Window offset")
	f.StringVar(&frameOpts.png, "png", "", "Also render the frame to this PNG file")
	f.IntVar(&frameOpts.cellSize, "cell-size", 12, "PNG cell size in pixels")
	frameCmd.MarkFlagRequired("data")
}

func runFrame(opts frameOptions, out io.Writer) error {
	ds, err := service.LoadDataset(opts.data)
	if err != nil {
		return err
	}

	s := engine.NewSession(ds, engine.DefaultOptions())
	for _, arg := range opts.filters {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || value == "" {
			return fmt.Errorf("invalid filter %q: want facet=value", arg)
		}
		facet, err := dataset.ParseFacet(name)
		if err != nil {
			return err
		}
		s.ToggleFilter(facet, value)
	}
	for _, arg := range opts.colors {
		value, color, ok := strings.Cut(arg, "=")
		if !ok || color == "" {
			return fmt.Errorf("invalid color %q: want value=colour", arg)
		}
		s.AssignColor(value, color)
	}
	if opts.query != "" {
		if err := s.SubmitQuery(opts.query); err != nil {
			log.Printf("[Frame] Query ignored: %v", err)
		}
	}
	s.SetWindowStart(opts.start)
	s.SetWindowEnd(opts.end)
	s.SetWindowOffset(opts.offset)

	frame := s.Frame()

	if opts.png != "" {
		data, err := render.NewFrameRenderer(render.Config{CellSize: opts.cellSize}).RenderFrame(frame)
		if err != nil {
			return fmt.Errorf("failed to render frame: %w", err)
		}
		if err := os.WriteFile(opts.png, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.png, err)
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(frame)
}
