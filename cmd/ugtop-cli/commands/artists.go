package commands

import (
	"fmt"
	"os"

	"ugtop-backend/lib/serviceutil"
	"ugtop-backend/lib/sqliteutil"
	"ugtop-backend/services/toplist"
	"ugtop-backend/services/toplist/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var artistsDb *string

func init() {
	artistsDb = artistsCmd.Flags().String("db", "results.db", "The database to read artist records from.")
	rootCmd.AddCommand(artistsCmd)
}

var artistsCmd = &cobra.Command{
	Use:   "artists [--db <path/to/results.db>]",
	Short: "Prints the artist records extracted from the scraped pages.",
	Run: func(cmd *cobra.Command, args []string) {
		out, err := sqliteutil.OpenDB(db.Schema, *artistsDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer out.Close()
		store := toplist.NewStore(out)

		records, err := store.Records(cmd.Context())
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

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
