package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "extract [text...]",
		Short: "Print the keywords the analyzer finds in text (args or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			kw, err := a.engine.ExtractKeywords(text)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(kw)
			}
			printImportances(cmd, kw)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newKeywordsCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Show the strongest learned interests",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			top, err := a.engine.TopKeywords(cmd.Context(), n)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(top) == 0 {
				fmt.Fprintln(out, "No interests learned yet. Click some articles first.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEYWORD\tWEIGHT\tUPDATED")
			for _, kw := range top {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", kw.Keyword, formatWeight(kw.Weight), humanize.Time(kw.LastUpdated))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&n, "limit", "n", 10, "number of keywords (0 for all)")
	return cmd
}

// printImportances lists keywords by importance, highest first.
func printImportances(cmd *cobra.Command, kw map[string]float64) {
	keys := make([]string, 0, len(kw))
	for k := range kw {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if kw[keys[i]] != kw[keys[j]] {
			return kw[keys[i]] > kw[keys[j]]
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", k, formatWeight(kw[k]))
	}
}

// formatWeight rounds to three decimals.
func formatWeight(v float64) string {
	return humanize.FormatFloat("#.###", v)
}
