// cmd/repowiki/generate.go
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/julianshen/repowiki/internal/config"
	"github.com/julianshen/repowiki/internal/integrations"
	"github.com/julianshen/repowiki/internal/output"
	"github.com/julianshen/repowiki/internal/provider"
	"github.com/julianshen/repowiki/internal/repometa"
	"github.com/julianshen/repowiki/internal/runner"
	"github.com/julianshen/repowiki/internal/site"
	"github.com/julianshen/repowiki/internal/store"
	"github.com/julianshen/repowiki/internal/tui"
	"github.com/julianshen/repowiki/internal/wiki"
)

// maxDirectTokens caps completions in direct mode.
const maxDirectTokens = 8192

type generateOptions struct {
	file            string
	mode            string
	server          string
	model           string
	token           string
	maxConcurrent   int
	pageTimeout     time.Duration
	timeout         time.Duration
	useOpenRouter   bool
	openRouterModel string
	localOllama     bool
	exportFormat    string
	exportDir       string
	siteFormat      string
	siteDir         string
	failOn          string
	noStore         bool
}

func generateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate [repository]",
		Short: "Generate a wiki for a repository",
		Long: `Fetch the file tree and README of a repository, ask the model for a wiki
structure, and generate every page.

The repository may be owner/repo, a GitHub, GitLab or Bitbucket URL, or a
local directory. It can also be read from --file or piped on stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			ref, err := runner.ResolveRepository(arg, opts.file, stdinIfPiped())
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cfg); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}

			return runGenerate(ctx, cfg, ref, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.file, "file", "", "read the repository reference from a file")
	f.StringVar(&opts.mode, "mode", "", "generation mode: server or direct (default from config)")
	f.StringVar(&opts.server, "server", "", "streaming endpoint base URL")
	f.StringVar(&opts.model, "model", "", "override model name in direct mode")
	f.StringVar(&opts.token, "token", "", "repository access token (default from config or environment)")
	f.IntVar(&opts.maxConcurrent, "max-concurrent", 0, "pages generated at once (default from config)")
	f.DurationVar(&opts.pageTimeout, "page-timeout", 0, "per-page time limit (default from config)")
	f.DurationVar(&opts.timeout, "timeout", 0, "overall time limit, 0 for none")
	f.BoolVar(&opts.useOpenRouter, "use-openrouter", false, "route generation through OpenRouter")
	f.StringVar(&opts.openRouterModel, "openrouter-model", "", "OpenRouter model name")
	f.BoolVar(&opts.localOllama, "local-ollama", false, "route generation to a local Ollama server")
	f.StringVar(&opts.exportFormat, "export", "", "also export the wiki: markdown, json or html")
	f.StringVar(&opts.exportDir, "export-dir", ".", "directory for the exported file")
	f.StringVar(&opts.siteFormat, "site", "", "also render a static site: raw-md, hugo or docusaurus")
	f.StringVar(&opts.siteDir, "site-dir", site.DefaultConfig().OutputDir, "static site output directory")
	f.StringVar(&opts.failOn, "fail-on", "", "exit non-zero on page failures: any or all")
	f.BoolVar(&opts.noStore, "no-store", false, "do not save the run")

	return cmd
}

// apply copies flag overrides onto cfg.
func (o generateOptions) apply(cfg *config.Config) error {
	if o.mode != "" {
		cfg.Provider.Mode = o.mode
	}
	if o.server != "" {
		cfg.Server.BaseURL = o.server
	}
	if o.model != "" {
		cfg.Provider.Model = o.model
	}
	if o.maxConcurrent != 0 {
		cfg.Generation.MaxConcurrent = o.maxConcurrent
	}
	if o.pageTimeout != 0 {
		cfg.Generation.PageTimeout = o.pageTimeout
	}
	if o.useOpenRouter {
		cfg.Provider.UseOpenRouter = true
	}
	if o.openRouterModel != "" {
		cfg.Provider.OpenRouterModel = o.openRouterModel
	}
	if o.localOllama {
		cfg.Provider.LocalOllama = true
	}
	return cfg.Validate()
}

func runGenerate(ctx context.Context, cfg *config.Config, ref string, opts generateOptions, stdout, stderr io.Writer) error {
	logger := newLogger(stderr)

	repo, err := repometa.ParseRepository(ref)
	if err != nil {
		return err
	}
	token := opts.token
	if token == "" {
		if token, err = cfg.RepositoryToken(string(repo.Type)); err != nil {
			return err
		}
	}

	fmt.Fprintf(stderr, "repowiki: fetching repository structure for %s\n", repo)
	metaCfg := repometa.DefaultConfig()
	metaCfg.Logger = logger
	md, err := repometa.NewFetcher(metaCfg).Fetch(ctx, repo, token)
	if err != nil {
		return err
	}

	completer, err := newCompleter(cfg, logger)
	if err != nil {
		return err
	}
	gen, err := wiki.NewGenerator(completer, wiki.Config{
		Scheduler: wiki.SchedulerConfig{
			MaxConcurrent: cfg.Generation.MaxConcurrent,
			TaskTimeout:   cfg.Generation.PageTimeout,
			Logger:        logger,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	in := wiki.GenerateInput{
		Repo:     repo,
		Branch:   md.Branch,
		FileTree: md.FileTree,
		Readme:   md.Readme,
		Credentials: wiki.Credentials{
			Token:           token,
			LocalOllama:     cfg.Provider.LocalOllama,
			UseOpenRouter:   cfg.Provider.UseOpenRouter,
			OpenRouterModel: cfg.Provider.OpenRouterModel,
		},
		Language: cfg.Generation.Language,
	}

	line := tui.NewProgressLine(100)
	hr := runner.NewHeadlessRunner(gen.Generate, gen.State()).
		WithProgress(time.Second, 3, func(p wiki.Progress) {
			fmt.Fprintln(stderr, line.View(p))
		})
	summary, err := hr.Run(ctx, in)
	if err != nil {
		return err
	}
	res := summary.Result

	if !opts.noStore {
		if err := saveRun(cfg, repo, res, gen.State(), cfg.Generation.Language); err != nil {
			fmt.Fprintf(stderr, "%s\n", tui.WarningStyle.Render("WARNING: "+err.Error()))
		}
	}

	w := output.NewWiki(repo.URL(), res.Structure, contentMap(res.Pages), time.Now())
	if opts.exportFormat != "" {
		path, err := writeExport(w, repo.Repo, opts.exportFormat, opts.exportDir, stdout)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "repowiki: exported %s\n", path)
	}
	if opts.siteFormat != "" {
		if err := site.Render(site.Documents(res.Structure, w.Pages), site.Config{Format: opts.siteFormat, OutputDir: opts.siteDir}); err != nil {
			return fmt.Errorf("rendering site: %w", err)
		}
		fmt.Fprintf(stderr, "repowiki: rendered %s site in %s\n", opts.siteFormat, opts.siteDir)
	}

	printSummary(stdout, res, summary)

	if code := runner.ExitCodeFromPages(summary.Failed, summary.Total, opts.failOn); code != 0 {
		return &runner.ExitError{Code: code}
	}
	return nil
}

// newCompleter returns the transport for generation calls: the streaming
// endpoint in server mode, an OpenAI-compatible API in direct mode.
func newCompleter(cfg *config.Config, logger *log.Logger) (wiki.Completer, error) {
	switch cfg.Provider.Mode {
	case "direct":
		return integrations.NewLLMCompleter(provider.NewSelector(cfg), maxDirectTokens), nil
	case "server", "":
		return integrations.NewStreamClient(integrations.StreamClientConfig{
			BaseURL:           cfg.Server.BaseURL,
			Timeout:           cfg.Server.Timeout,
			RequestsPerSecond: cfg.Server.RequestsPerSecond,
			Logger:            logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider mode %q", cfg.Provider.Mode)
	}
}

func saveRun(cfg *config.Config, repo wiki.RepoIdentity, res *wiki.Result, state *wiki.State, language string) error {
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	originals := map[string]string{}
	for _, p := range res.Pages {
		if o := state.Original(p.ID); o != "" {
			originals[p.ID] = o
		}
	}
	return s.SaveRun(store.Run{
		ID:        res.RunID,
		RepoURL:   repo.URL(),
		Language:  language,
		Structure: res.Structure,
		Pages:     res.Pages,
		Originals: originals,
		Warning:   res.Warning,
	})
}

func contentMap(pages []wiki.Page) map[string]string {
	m := make(map[string]string, len(pages))
	for _, p := range pages {
		m[p.ID] = p.Content
	}
	return m
}

// writeExport formats w and writes it to dir, or to stdout when dir is "-".
func writeExport(w *output.Wiki, repoName, format, dir string, stdout io.Writer) (string, error) {
	if !w.HasContent() {
		return "", output.ErrNothingToExport
	}
	f, err := output.NewFormatter(format)
	if err != nil {
		return "", err
	}
	data, err := f.Format(w)
	if err != nil {
		return "", fmt.Errorf("formatting export: %w", err)
	}
	if dir == "-" {
		_, err := stdout.Write(data)
		return "stdout", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(dir, output.Filename(repoName, f))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}

func printSummary(w io.Writer, res *wiki.Result, s *runner.Summary) {
	title := tui.SuccessStyle.Render(res.Structure.Title)
	fmt.Fprintf(w, "%s: %d pages in %s\n", title, s.Total, s.Duration.Round(100*time.Millisecond))
	for _, f := range res.Failed {
		fmt.Fprintln(w, tui.WarningStyle.Render(fmt.Sprintf("  failed: %s: %v", f.PageID, f.Err)))
	}
	if res.Warning != "" && len(res.Failed) == 0 {
		fmt.Fprintln(w, tui.WarningStyle.Render("  "+res.Warning))
	}
}
