package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conveyci/convey/journal"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs, newest first",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfgPath, err := resolveConfigPath()
	if err != nil {
		return err
	}

	dir := stateDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(cfgPath), dir)
	}

	jr, err := journal.Open(dir)
	if err != nil {
		return err
	}
	recs, err := jr.List()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	if historyLimit > 0 && len(recs) > historyLimit {
		recs = recs[:historyLimit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTATUS\tBRANCH\tCOMMIT\tSTARTED\tARTIFACT")
	for _, rec := range recs {
		artifact := "-"
		if rec.Artifact != nil {
			artifact = rec.Artifact.VersionRef()
		}
		commit := rec.Commit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		fmt.Fprintf(w, "#%d\t%s\t%s\t%s\t%s\t%s\n",
			rec.Number, rec.Status, rec.Branch, commit,
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"), artifact)
	}
	return w.Flush()
}
