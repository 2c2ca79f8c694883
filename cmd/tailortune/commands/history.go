package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/tailortune/internal/store"
)

var (
	historyLimit int
	historyRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded generation runs",
	Long: `List generation runs from the ledger, newest first. With --run, list the
per-user outcomes of one run.

Examples:
  tailortune history --limit 5
  tailortune history --run 0b7c9a6e-...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := store.Open(cfg.LedgerPath, log)
		if err != nil {
			return err
		}
		defer ledger.Close()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		if historyRun != "" {
			outs, err := ledger.Outcomes(cmd.Context(), historyRun)
			if err != nil {
				return err
			}
			writeOutcomes(tw, outs)
		} else {
			runs, err := ledger.ListRuns(cmd.Context(), historyLimit)
			if err != nil {
				return err
			}
			writeRuns(tw, runs)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show (0 for all)")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "show the outcomes of this run")
}

func writeRuns(w io.Writer, runs []store.Run) {
	fmt.Fprintln(w, headerStyle.Render("RUN")+"\t"+headerStyle.Render("STARTED")+"\t"+
		headerStyle.Render("VARIANT")+"\t"+headerStyle.Render("BACKEND")+"\t"+
		headerStyle.Render("OK")+"\t"+headerStyle.Render("FAILED")+"\t"+headerStyle.Render("INPUT"))
	for _, r := range runs {
		started := r.StartedAt.Local().Format(time.DateTime)
		if r.FinishedAt == nil {
			started += " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, started, r.Variant, r.Backend, r.Succeeded, r.Failed, r.Input)
	}
}

func writeOutcomes(w io.Writer, outs []store.Outcome) {
	fmt.Fprintln(w, headerStyle.Render("#")+"\t"+headerStyle.Render("USER")+"\t"+
		headerStyle.Render("STATUS")+"\t"+headerStyle.Render("MOOD")+"\t"+
		headerStyle.Render("TITLE")+"\t"+headerStyle.Render("DETAIL"))
	for _, o := range outs {
		detail := o.Dir
		if o.Status != store.StatusOK {
			detail = o.Error
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", o.Seq, o.UserID, o.Status, o.Mood, o.Title, detail)
	}
}
