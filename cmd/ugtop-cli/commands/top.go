package commands

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"ugtop-backend/lib/serviceutil"
	"ugtop-backend/lib/sqliteutil"
	"ugtop-backend/services/toplist"
	"ugtop-backend/services/toplist/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var topDb *string
var topType *string

func init() {
	topDb = topCmd.Flags().String("db", "results.db", "The database to read rows from.")
	topType = topCmd.Flags().String("type", "", "Only print rows of the given type.")
	rootCmd.AddCommand(topCmd)
}

func formatRating(r *float64) string {
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}

func formatVotes(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

var topCmd = &cobra.Command{
	Use:   "top [--db <path/to/results.db>] [--type <chords|tab|guitar_pro|ukulele|bass>]",
	Short: "Prints the stored top list.",
	Run: func(cmd *cobra.Command, args []string) {
		out, err := sqliteutil.OpenDB(db.Schema, *topDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer out.Close()
		store := toplist.NewStore(out)

		meta, ok, err := store.Meta(cmd.Context())
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "no scraped data stored yet, run 'ugtop-cli scrape' first")
			os.Exit(1)
		}
		rows, err := store.Rows(cmd.Context())
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Artist", "Song", "Type", "Hits", "Rating", "Votes", "URL"})

		for _, r := range rows {
			if *topType != "" && r.Type != *topType {
				continue
			}
			t.AppendRow(table.Row{r.Artist, r.Song, r.Type, r.Hits, formatRating(r.Rating), formatVotes(r.Votes), r.URL})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()

		fmt.Printf("%d rows scraped at %s\n", meta.RowCount, meta.ScrapedAt.Format(time.RFC3339))
	},
}
