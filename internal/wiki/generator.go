package wiki

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

// ErrorContentPrefix starts the placeholder written for a failed page.
const ErrorContentPrefix = "Error generating content: "

// Config holds generator configuration.
type Config struct {
	Scheduler SchedulerConfig
	Logger    *log.Logger
}

// DefaultConfig returns the default generator configuration.
func DefaultConfig() Config {
	return Config{Scheduler: DefaultSchedulerConfig()}
}

// GenerateInput is everything one run needs.
type GenerateInput struct {
	Repo        RepoIdentity
	// Branch is the branch FileTree was read from; empty means main.
	Branch      string
	FileTree    string
	Readme      string
	Credentials Credentials
	Language    string
}

// PageResult is the outcome of one page task.
type PageResult struct {
	PageID  string
	Skipped bool
	Err     error
}

// Result is the outcome of a completed run.
type Result struct {
	RunID     string
	Structure *Structure
	// Pages holds every page with its best available content.
	Pages  []Page
	Failed []PageResult
	Stats  RunStats
	// Warning is the last page-level error message, if any.
	Warning string
}

// Generator resolves a wiki structure and generates every page through
// the scheduler, recording progress in a shared State.
type Generator struct {
	llm       Completer
	resolver  *Resolver
	scheduler *Scheduler
	state     *State
	logger    *log.Logger

	// resolving spans state reset and structure resolution.
	resolving atomic.Bool
}

// NewGenerator creates a Generator sending all calls through llm.
func NewGenerator(llm Completer, cfg Config) (*Generator, error) {
	if llm == nil {
		return nil, errors.New("wiki: completer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	schedCfg := cfg.Scheduler
	if schedCfg.Logger == nil {
		schedCfg.Logger = logger
	}
	sched, err := NewScheduler(schedCfg)
	if err != nil {
		return nil, err
	}
	return &Generator{
		llm:       llm,
		resolver:  NewResolver(llm),
		scheduler: sched,
		state:     NewState(),
		logger:    logger,
	}, nil
}

// State returns the shared generation state.
func (g *Generator) State() *State { return g.state }

// Generate runs structure resolution followed by content generation for
// every page. Structure-level failures abort the run and are returned as
// *RunError; page failures are recorded on the page and in Result.Failed.
// If another resolution is already running, Generate returns
// ErrResolutionInFlight and leaves the state untouched.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) (*Result, error) {
	if !in.Repo.Complete() {
		err := &ValidationError{Msg: "invalid repository information: owner and repo name are required"}
		return nil, &RunError{Err: err}
	}
	if !g.resolving.CompareAndSwap(false, true) {
		g.logger.Printf("wiki: structure determination already in progress, skipping duplicate call")
		return nil, ErrResolutionInFlight
	}

	runID, runCtx := g.state.Reset(ctx)
	structure, err := g.resolver.Resolve(runCtx, in.FileTree, in.Readme, in.Repo, in.Credentials, in.Language)
	g.resolving.Store(false)
	if errors.Is(err, ErrResolutionInFlight) {
		return nil, err
	}
	if err != nil {
		g.state.SetError(runID, err.Error())
		return nil, &RunError{Err: err}
	}
	if !g.state.Install(runID, structure) {
		return nil, ErrRunSuperseded
	}

	var failed []PageResult
	failedCh := make(chan PageResult, len(structure.Pages))
	stats := g.scheduler.Run(runCtx, structure.Pages,
		func(ctx context.Context, page Page) error {
			res := g.generatePage(ctx, runID, page, in)
			return res.Err
		},
		func(page Page, err error) {
			if err == nil {
				return
			}
			// A panicking task never recorded its result.
			if g.state.Current(runID) && g.state.InProgressHas(page.ID) {
				g.state.Complete(runID, page.ID, ErrorContentPrefix+err.Error(), "")
				g.state.SetError(runID, fmt.Sprintf("Failed to generate content for %s.", page.Title))
			}
			failedCh <- PageResult{PageID: page.ID, Err: err}
		})
	close(failedCh)
	for r := range failedCh {
		failed = append(failed, r)
	}

	if !g.state.Current(runID) {
		return nil, ErrRunSuperseded
	}
	return &Result{
		RunID:     runID,
		Structure: structure,
		Pages:     g.state.ExportPages(),
		Failed:    failed,
		Stats:     stats,
		Warning:   g.state.LastError(),
	}, nil
}

// Reset abandons the current run. Its tasks are cancelled and any result
// they still produce is discarded.
func (g *Generator) Reset() {
	g.state.Reset(context.Background())
}

// GeneratePage generates content for a single page of the current run.
// A second call for a page whose task is still active returns immediately
// with Skipped set and does not contact the model.
func (g *Generator) GeneratePage(ctx context.Context, page Page, in GenerateInput) PageResult {
	return g.generatePage(ctx, g.state.RunID(), page, in)
}

// generatePage never fails past its boundary: errors become placeholder
// content plus PageResult.Err.
func (g *Generator) generatePage(ctx context.Context, runID string, page Page, in GenerateInput) (res PageResult) {
	res.PageID = page.ID

	if g.state.HasContent(page.ID) {
		g.state.Finish(runID, page.ID)
		res.Skipped = true
		return res
	}
	if !g.state.TryBeginPage(runID, page.ID) {
		g.logger.Printf("wiki: page %s (%s) is already being processed, skipping duplicate call", page.ID, page.Title)
		res.Skipped = true
		return res
	}
	defer g.state.EndPage(runID, page.ID)

	content, err := g.renderPage(ctx, runID, page, in)
	if err != nil {
		g.logger.Printf("WARNING: generating content for page %s: %v", page.ID, err)
		g.state.Complete(runID, page.ID, ErrorContentPrefix+err.Error(), "")
		g.state.SetError(runID, fmt.Sprintf("Failed to generate content for %s.", page.Title))
		res.Err = err
		return res
	}

	g.state.Complete(runID, page.ID, content, content)
	g.logger.Printf("wiki: received content for %s, length: %d characters", page.Title, len([]rune(content)))
	return res
}

func (g *Generator) renderPage(ctx context.Context, runID string, page Page, in GenerateInput) (string, error) {
	if !in.Repo.Complete() {
		return "", &ValidationError{Msg: "invalid repository information: owner and repo name are required"}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.state.SetContent(runID, page.ID, LoadingContent)
	g.state.SetOriginal(runID, page.ID, "")

	prompt, err := BuildPagePrompt(in.Repo, page, in.Branch, in.Language)
	if err != nil {
		return "", err
	}
	raw, err := g.llm.Send(ctx, NewUserRequest(in.Repo, in.Credentials, in.Language, prompt))
	if err != nil {
		return "", err
	}
	content := StripFences(raw, "markdown", "md")
	if strings.TrimSpace(content) == "" {
		return "", errors.New("model returned empty content")
	}
	return content, nil
}
