package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/satindergrewal/tailortune/internal/preference"
	"github.com/satindergrewal/tailortune/internal/prompt"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt for every user without synthesizing",
	Long: `Print each user's mood and generation prompt.

This is a dry run of generate: the same tables are loaded and the same
prompts are built, but nothing is synthesized or written.

Examples:
  tailortune prompt --input prefs.csv
  tailortune prompt --pairwise --input subjects.csv --dictionary genres.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, err := loadJobs()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, job := range jobs {
			fmt.Fprintf(out, "%s  %s\n%s\n\n",
				headerStyle.Render("User "+job.UserID), job.Input.Mood, prompt.Build(job.Input))
		}
		return nil
	},
}

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Print a parsed genre dictionary",
	Long: `Parse a genre dictionary file and print the code to genre mapping.

Lines that do not start with an integer code, have fewer than four
words or name no known genre are skipped.

Example:
  tailortune dict --dictionary genres.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dict, err := preference.LoadDictionaryFile(dictionaryPath)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, headerStyle.Render("CODE")+"\t"+headerStyle.Render("GENRE"))
		for _, code := range dict.Indexes() {
			genre, _ := dict.Lookup(code)
			fmt.Fprintf(tw, "%d\t%s\n", code, genre)
		}
		return tw.Flush()
	},
}

func init() {
	addInputFlags(promptCmd)
	dictCmd.Flags().StringVarP(&dictionaryPath, "dictionary", "d", "", "genre dictionary file (required)")
	dictCmd.MarkFlagRequired("dictionary")
}
