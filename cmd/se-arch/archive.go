package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hochfrequenz/se-arch/internal/archive"
	"github.com/hochfrequenz/se-arch/internal/domain"
)

var archiveTree bool

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect tar archives written in archive mode",
}

var archiveLsCmd = &cobra.Command{
	Use:   "ls ARCHIVE",
	Short: "List the members of an archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveLs,
}

func init() {
	archiveLsCmd.Flags().BoolVar(&archiveTree, "tree", false, "show members as a directory tree")
	archiveCmd.AddCommand(archiveLsCmd)
	rootCmd.AddCommand(archiveCmd)
}

func runArchiveLs(cmd *cobra.Command, args []string) error {
	members, err := archive.List(args[0])
	if err != nil {
		return err
	}

	if archiveTree {
		fmt.Print(archive.Tree(filepath.Base(args[0]), members))
		return nil
	}

	var total int64
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
	for _, m := range members {
		total += m.Size
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, humanize.Bytes(uint64(m.Size)), m.ModTime.Local().Format(domain.TimeLayout))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d member(s), %s\n", len(members), humanize.Bytes(uint64(total)))
	return nil
}
