package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/newsletter/internal/digest"
)

func newDigestCmd() *cobra.Command {
	var spool, out string
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Build one digest from the candidate spool now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if spool == "" {
				spool = a.cfg.Digest.SpoolFile
			}
			if out == "" {
				out = a.cfg.Digest.OutputDir
			}
			if spool == "" {
				return errors.New("no candidate spool: set digest.spool_file or pass --spool")
			}

			candidates, err := digest.LoadFeed(spool)
			if err != nil {
				return err
			}
			d, err := newSelector(a).Select(cmd.Context(), candidates)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for i, item := range d.Items {
				fmt.Fprintf(w, "%d. [%s] %s (%.3f)\n   %s\n", i+1, item.Category, item.Title, item.Score, item.TrackingURL)
			}
			if out != "" {
				path, err := digest.Write(out, d)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "wrote %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&spool, "spool", "", "candidate articles JSON (overrides digest.spool_file)")
	cmd.Flags().StringVar(&out, "out", "", "directory to write the digest to (overrides digest.output_dir)")
	return cmd
}

func newTrainCmd() *cobra.Command {
	var spool string
	var limit int
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Teach the model interactively by answering y/n/q per article",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if spool == "" {
				spool = a.cfg.Digest.SpoolFile
			}
			if spool == "" {
				return errors.New("no candidate spool: set digest.spool_file or pass --spool")
			}
			candidates, err := digest.LoadFeed(spool)
			if err != nil {
				return err
			}
			ranked, err := a.engine.Rank(cmd.Context(), candidates)
			if err != nil {
				return err
			}
			if limit > 0 && len(ranked) > limit {
				ranked = ranked[:limit]
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			in := bufio.NewScanner(cmd.InOrStdin())
			added := 0

		loop:
			for _, r := range ranked {
				art := r.Article
				fmt.Fprintf(out, "\nTitle: %s\n", art.Title)
				if art.Source != "" {
					fmt.Fprintf(out, "Source: %s (%s)\n", art.Source, age(art.PublishedAt))
				}
				if art.Description != "" {
					fmt.Fprintf(out, "Description: %s\n", art.Description)
				}

				for {
					fmt.Fprint(out, "Would you read this? (y/n/q): ")
					if !in.Scan() {
						break loop
					}
					switch strings.ToLower(strings.TrimSpace(in.Text())) {
					case "y":
						art.Keywords = r.Keywords
						if _, err := a.engine.TrackArticle(ctx, &art); err != nil {
							return err
						}
						if err := a.engine.RecordClick(ctx, art.URL); err != nil {
							return err
						}
						added++
						fmt.Fprintln(out, "✓ Added to interests")
						continue loop
					case "n":
						continue loop
					case "q":
						break loop
					}
				}
			}
			if err := in.Err(); err != nil {
				return fmt.Errorf("read answer: %w", err)
			}

			fmt.Fprintf(out, "\nLearned from %d article(s). Top interests:\n", added)
			top, err := a.engine.TopKeywords(ctx, 10)
			if err != nil {
				return err
			}
			for _, kw := range top {
				fmt.Fprintf(out, "%s: %.3f\n", kw.Keyword, kw.Weight)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&spool, "spool", "", "candidate articles JSON (overrides digest.spool_file)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum articles to ask about (0 for all)")
	return cmd
}
