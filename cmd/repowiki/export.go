// cmd/repowiki/export.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/julianshen/repowiki/internal/config"
	"github.com/julianshen/repowiki/internal/output"
	"github.com/julianshen/repowiki/internal/repometa"
	"github.com/julianshen/repowiki/internal/site"
	"github.com/julianshen/repowiki/internal/store"
	"github.com/julianshen/repowiki/internal/wiki"
)

func exportCmd() *cobra.Command {
	var (
		formatFlag string
		outputFlag string
	)

	cmd := &cobra.Command{
		Use:   "export <repository>",
		Short: "Export the latest stored wiki of a repository",
		Long: `Write the most recent generated wiki for a repository as a single
markdown, json or html document named <repo>_wiki.<ext>. Use --output -
to write to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			repo, run, err := latestRun(cfg, args[0])
			if err != nil {
				return err
			}
			w := output.NewWiki(run.RepoURL, run.Structure, contentMap(run.Pages), run.CreatedAt)
			path, err := writeExport(w, repo.Repo, formatFlag, outputFlag, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if path != "stdout" {
				fmt.Fprintf(cmd.ErrOrStderr(), "repowiki: exported %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "markdown", "export format: markdown, json, html")
	cmd.Flags().StringVar(&outputFlag, "output", ".", "output directory, or - for stdout")

	return cmd
}

func siteCmd() *cobra.Command {
	var (
		formatFlag string
		outputFlag string
	)

	cmd := &cobra.Command{
		Use:   "site <repository>",
		Short: "Render the latest stored wiki as a static site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, run, err := latestRun(cfg, args[0])
			if err != nil {
				return err
			}
			docs := site.Documents(run.Structure, run.Pages)
			if err := site.Render(docs, site.Config{Format: formatFlag, OutputDir: outputFlag}); err != nil {
				return fmt.Errorf("rendering site: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "repowiki: rendered %d documents in %s\n", len(docs), outputFlag)
			return nil
		},
	}

	defaults := site.DefaultConfig()
	cmd.Flags().StringVar(&formatFlag, "format", defaults.Format, "output format: raw-md, hugo, docusaurus")
	cmd.Flags().StringVar(&outputFlag, "output", defaults.OutputDir, "output directory")

	return cmd
}

// latestRun loads the newest stored run for ref in the configured language.
func latestRun(cfg *config.Config, ref string) (wiki.RepoIdentity, *store.Run, error) {
	repo, err := repometa.ParseRepository(ref)
	if err != nil {
		return wiki.RepoIdentity{}, nil, err
	}
	s, err := openStore(cfg)
	if err != nil {
		return repo, nil, err
	}
	defer s.Close()

	run, err := s.LatestRun(repo.URL(), cfg.Generation.Language)
	if err != nil {
		return repo, nil, err
	}
	if run == nil {
		return repo, nil, fmt.Errorf("no stored wiki for %s in language %q: run repowiki generate first", repo, cfg.Generation.Language)
	}
	return repo, run, nil
}
