package cmd

import (
	"fmt"

	"Playa/core/audio"
	"Playa/core/library"
	"Playa/storage"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var rescanWorkers int

var rescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Rebuild the library index",
	Long:  `Walk the library roots, read the tags of every supported file and write a fresh index. A running server picks it up on its next start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lib := library.New(cfg.LibraryRoots, audio.Extractor{},
			storage.NewFileStore[library.Index](cfg.LibraryIndex, nil),
			library.WithWorkers(rescanWorkers))

		out := cmd.OutOrStdout()
		index, err := lib.Scan(cmd.Context(), func(p library.Progress) {
			fmt.Fprintf(out, "\r%d/%d directories, %s tracks", p.Scanned, p.Directories, humanize.Comma(int64(p.Tracks)))
		})
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("rescan: %w", err)
		}
		fmt.Fprintf(out, "Indexed %s tracks into %s\n", humanize.Comma(int64(len(index))), cfg.LibraryIndex)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rescanCmd)
	rescanCmd.Flags().IntVarP(&rescanWorkers, "workers", "w", 4, "directories scanned in parallel")
}
