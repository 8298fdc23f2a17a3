package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"ugtop-backend/lib/serviceutil"
	"ugtop-backend/lib/sqliteutil"
	"ugtop-backend/services/toplist"
	"ugtop-backend/services/toplist/db"

	"github.com/spf13/cobra"
)

var mergeDb *string

func init() {
	mergeDb = mergeCmd.Flags().String("db", "results.db", "The database to write the merged rows to.")
	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge <path/to/dumps> [--db <path/to/results.db>]",
	Short: "Merges raw row dumps (json arrays) into a database, deduplicated by URL.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		files, err := filepath.Glob(filepath.Join(args[0], "*.json"))
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		if len(files) == 0 {
			fmt.Fprintf(os.Stderr, "no json files found in %s\n", args[0])
			os.Exit(1)
		}
		sort.Strings(files)

		byUrl := map[string]toplist.TabRow{}
		var urls []string
		for _, file := range files {
			contents, err := os.ReadFile(file)
			if err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
				os.Exit(1)
			}
			var rows []toplist.TabRow
			err = json.Unmarshal(contents, &rows)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %s\n", file, err.Error())
				os.Exit(1)
			}

			for _, r := range rows {
				if r.URL == "" {
					continue
				}
				current, ok := byUrl[r.URL]
				if !ok {
					byUrl[r.URL] = r
					urls = append(urls, r.URL)
					continue
				}
				// duplicates keep whichever dump saw more hits
				if r.Hits > current.Hits {
					byUrl[r.URL] = r
				}
			}
		}

		merged := make([]toplist.TabRow, len(urls))
		for i, url := range urls {
			merged[i] = byUrl[url]
		}
		slices.SortStableFunc(merged, func(a, b toplist.TabRow) int {
			if c := strings.Compare(a.Type, b.Type); c != 0 {
				return c
			}
			if a.Hits != b.Hits {
				if a.Hits > b.Hits {
					return -1
				}
				return 1
			}
			if c := strings.Compare(a.Artist, b.Artist); c != 0 {
				return c
			}
			return strings.Compare(a.Song, b.Song)
		})

		typeSet := map[string]bool{}
		for _, r := range merged {
			if r.Type != "" {
				typeSet[r.Type] = true
			}
		}
		var types []string
		for t := range typeSet {
			types = append(types, t)
		}
		sort.Strings(types)

		out, err := sqliteutil.OpenDB(db.Schema, *mergeDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer out.Close()

		store := toplist.NewStore(out)
		err = store.Replace(cmd.Context(), merged, nil, toplist.Meta{
			ScrapedAt: time.Now().UTC().Truncate(time.Second),
			Types:     types,
			RowCount:  int64(len(merged)),
		})
		if err != nil {
			serviceutil.Fatal("failed to write merged rows", err)
		}

		slog.Info("merged row dumps", "files", len(files), "rows", len(merged))
	},
}
