// cmd/repowiki/show.go
package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/julianshen/repowiki/internal/repometa"
	"github.com/julianshen/repowiki/internal/store"
	"github.com/julianshen/repowiki/internal/tui"
	"github.com/julianshen/repowiki/internal/wiki"
)

func showCmd() *cobra.Command {
	var (
		styleFlag string
		widthFlag int
		rawFlag   bool
	)

	cmd := &cobra.Command{
		Use:   "show <repository> [page-id]",
		Short: "Show a stored wiki in the terminal",
		Long: `Without a page id, list the pages of the latest stored wiki. With a page
id, render that page.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, run, err := latestRun(cfg, args[0])
			if err != nil {
				return err
			}

			var md string
			if len(args) == 2 {
				md, err = pageMarkdown(run, args[1])
				if err != nil {
					return err
				}
			} else {
				md = indexMarkdown(run)
			}

			if rawFlag {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}
			r, err := tui.NewMarkdownRenderer(styleFlag, widthFlag)
			if err != nil {
				return err
			}
			out, err := r.Render(md)
			if err != nil {
				return fmt.Errorf("rendering markdown: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&styleFlag, "style", "dark", "glamour style: dark, light, notty")
	cmd.Flags().IntVar(&widthFlag, "width", 100, "word wrap width")
	cmd.Flags().BoolVar(&rawFlag, "raw", false, "print markdown without terminal styling")

	return cmd
}

// indexMarkdown lists the pages of a run with their ids and importance.
func indexMarkdown(run *store.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", run.Structure.Title)
	if run.Structure.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", run.Structure.Description)
	}
	for _, p := range run.Pages {
		status := ""
		switch {
		case p.Content == wiki.NotGeneratedContent:
			status = " (not generated)"
		case strings.HasPrefix(p.Content, wiki.ErrorContentPrefix):
			status = " (failed)"
		}
		fmt.Fprintf(&b, "- **%s** `%s` %s%s\n", p.Title, p.ID, p.Importance, status)
	}
	if run.Warning != "" {
		fmt.Fprintf(&b, "\n> %s\n", run.Warning)
	}
	return b.String()
}

func pageMarkdown(run *store.Run, id string) (string, error) {
	for _, p := range run.Pages {
		if p.ID == id {
			return p.Content, nil
		}
	}
	return "", fmt.Errorf("page %q not found in wiki %q", id, run.Structure.Title)
}

func runsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs [repository]",
		Short: "List stored wiki runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var repoURL string
			if len(args) == 1 {
				repo, err := repometa.ParseRepository(args[0])
				if err != nil {
					return err
				}
				repoURL = repo.URL()
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(repoURL)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stored runs.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tREPOSITORY\tLANG\tPAGES\tTITLE\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					r.ID[:min(8, len(r.ID))], r.RepoURL, r.Language, r.PageCount, r.Title,
					r.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}
