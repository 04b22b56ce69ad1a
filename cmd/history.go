package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shaharia-lab/audicord/internal/cli"
	"github.com/shaharia-lab/audicord/internal/filesystem"
	"github.com/shaharia-lab/audicord/internal/history"
	"github.com/spf13/cobra"
)

// NewHistoryCmd lists recently played tracks
func NewHistoryCmd(c *cli.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently played tracks",
		Long:  `List the tracks Audicord has shown on Discord, newest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1")
			}

			path := c.Paths[filesystem.HistoryDBPath]
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				c.Theme().Warning().Println("No history recorded yet.")
				if !c.Settings.History.Enabled {
					c.Theme().Info().Println("History is disabled; enable it with 'audicord init'.")
				}
				return nil
			}

			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			plays, err := store.Recent(cmd.Context(), history.ClampLimit(limit))
			if err != nil {
				return err
			}
			if len(plays) == 0 {
				c.Theme().Warning().Println("No history recorded yet.")
				return nil
			}

			renderHistory(cmd.OutOrStdout(), plays)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "Number of plays to show (max "+strconv.Itoa(history.MaxLimit)+")")
	return cmd
}

func renderHistory(w io.Writer, plays []history.Play) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Played at", "Title", "Artist", "Album"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, p := range plays {
		table.Append([]string{
			p.PlayedAt.Local().Format(time.DateTime),
			orDash(p.Track.Title),
			orDash(p.Track.Artist),
			orDash(p.Track.Album),
		})
	}
	table.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
