package commands

import (
	"fmt"
	"os"

	"ugtop-backend/lib/scrapers/ultimateguitar"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var extractMinHits *int64
var extractMinText *int

func init() {
	extractMinHits = extractCmd.Flags().Int64("min-hits", ultimateguitar.DefaultMinHits, "Drop records with fewer hits than this.")
	extractMinText = extractCmd.Flags().Int("min-text", ultimateguitar.DefaultMinTextLength, "Minimum visible text length before extraction runs.")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <path/to/page.html> [--min-hits <n>] [--min-text <n>]",
	Short: "Runs the artist heuristic over a saved HTML page.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		contents, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		extractor := ultimateguitar.NewExtractor(ultimateguitar.ExtractorOptions{
			MinHits:       *extractMinHits,
			MinTextLength: *extractMinText,
		})
		records := extractor.Extract(cmd.Context(), string(contents))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Artist", "Type", "Hits", "Ref"})

		for _, r := range records {
			t.AppendRow(table.Row{r.Artist, r.Type, r.Hits, r.ArtistRef})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
