package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lazypower/newsletter/internal/domain"
)

type articleFlags struct {
	title       string
	description string
	category    string
	source      string
}

func (f *articleFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "article title")
	cmd.Flags().StringVar(&f.description, "description", "", "article description")
	cmd.Flags().StringVar(&f.category, "category", "", "article category")
	cmd.Flags().StringVar(&f.source, "source", "", "publisher name")
}

func (f *articleFlags) article(url string) domain.Article {
	return domain.Article{
		URL:         url,
		Title:       f.title,
		Description: f.description,
		Category:    f.category,
		Source:      f.source,
	}
}

func newTrackCmd() *cobra.Command {
	var f articleFlags
	cmd := &cobra.Command{
		Use:   "track <url>",
		Short: "Record an article as sent, fixing its keywords",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			art := f.article(args[0])
			tracked, err := a.engine.TrackArticle(cmd.Context(), &art)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !tracked {
				fmt.Fprintf(out, "already tracked: %s\n", art.URL)
				return nil
			}
			fmt.Fprintf(out, "tracked #%d %s\n", art.ID, art.URL)
			printImportances(cmd, art.Keywords)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newClickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "click <url>",
		Short: "Record a click on a tracked article and update interests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.RecordClick(cmd.Context(), args[0]); err != nil {
				return err
			}
			n, err := a.repo.ClickCount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "click recorded (%s total)\n", humanize.Comma(int64(n)))
			return nil
		},
	}
}

func newScoreCmd() *cobra.Command {
	var f articleFlags
	cmd := &cobra.Command{
		Use:   "score [url]",
		Short: "Score an article against the learned interests",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.title == "" && f.description == "" {
				return fmt.Errorf("--title or --description is required")
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			url := ""
			if len(args) == 1 {
				url = args[0]
			}
			score, err := a.engine.ArticleScore(cmd.Context(), f.article(url))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", score)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

// clickLister is implemented by backends that can list recent clicks.
type clickLister interface {
	Clicks(ctx context.Context, limit int) ([]domain.Click, error)
}

func newHistoryCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent clicks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			cl, ok := a.repo.(clickLister)
			if !ok {
				return fmt.Errorf("click history is not supported by the %s backend", a.cfg.Database.Driver)
			}
			clicks, err := cl.Clicks(cmd.Context(), n)
			if err != nil {
				return err
			}
			for _, c := range clicks {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", age(c.ClickedAt), c.URL)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "limit", "n", 20, "number of clicks")
	return cmd
}

// age renders how long ago t was, or "unknown" for the zero time.
func age(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.Time(t)
}
