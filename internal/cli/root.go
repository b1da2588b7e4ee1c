package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the newsletter command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "newsletter",
		Short:         "Personal news digest ranked by what you actually read",
		Long:          "Newsletter learns which topics you click on and ranks tomorrow's articles by them. Single Go binary, one local database.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "", "config file (default ./newsletter.yaml or ~/.newsletter/newsletter.yaml)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newExtractCmd())
	root.AddCommand(newTrackCmd())
	root.AddCommand(newClickCmd())
	root.AddCommand(newScoreCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newKeywordsCmd())
	root.AddCommand(newDigestCmd())
	root.AddCommand(newTrainCmd())
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}
