package wiki

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// LoadingContent is written into a page's content while it is generating.
const LoadingContent = "Loading..."

// NotGeneratedContent stands in for pages that have no content at export time.
const NotGeneratedContent = "Content not generated"

// Progress is a point-in-time view of a run for display.
type Progress struct {
	RunID     string
	Completed int
	Total     int
	// Processing lists titles of in-progress pages, capped by the caller's limit.
	Processing []string
	// Overflow counts in-progress pages left out of Processing.
	Overflow int
}

// State is the shared record of per-page status and content for the
// current run. It is reset at the start of every structure resolution.
type State struct {
	mu sync.RWMutex

	runID  string
	cancel context.CancelFunc

	structure  *Structure
	content    map[string]string
	original   map[string]string
	inProgress map[string]bool
	active     map[string]bool
	lastError  string
}

// NewState returns an empty State with no run.
func NewState() *State {
	return &State{
		content:    map[string]string{},
		original:   map[string]string{},
		inProgress: map[string]bool{},
		active:     map[string]bool{},
	}
}

// Reset discards all content, flags and errors, cancels the previous run
// and starts a new one. The returned context is cancelled by the next
// Reset.
func (s *State) Reset(parent context.Context) (string, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	prev := s.cancel
	s.runID = uuid.New().String()
	s.cancel = cancel
	s.structure = nil
	s.content = map[string]string{}
	s.original = map[string]string{}
	s.inProgress = map[string]bool{}
	s.active = map[string]bool{}
	s.lastError = ""
	runID := s.runID
	s.mu.Unlock()

	if prev != nil {
		prev()
	}
	return runID, ctx
}

// RunID returns the identifier of the current run.
func (s *State) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// Current reports whether runID is still the current run.
func (s *State) Current(runID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return runID != "" && s.runID == runID
}

// Install records the structure for runID and marks every page in progress.
func (s *State) Install(runID string, st *Structure) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID != runID {
		return false
	}
	s.structure = st
	for _, p := range st.Pages {
		s.inProgress[p.ID] = true
	}
	return true
}

// Structure returns the installed structure, or nil.
func (s *State) Structure() *Structure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.structure
}

// TryBeginPage sets the guard for a page. It returns false if a task for
// the page is already active or runID is stale.
func (s *State) TryBeginPage(runID, pageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID != runID || s.active[pageID] {
		return false
	}
	s.active[pageID] = true
	return true
}

// EndPage clears the guard set by TryBeginPage.
func (s *State) EndPage(runID, pageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID != runID {
		return
	}
	delete(s.active, pageID)
}

// Active reports whether a task for pageID holds the guard.
func (s *State) Active(pageID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[pageID]
}

// Content returns the page's content.
func (s *State) Content(pageID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.content[pageID]
	return c, ok
}

// HasContent reports whether the page holds real content, not the loading
// sentinel.
func (s *State) HasContent(pageID string) bool {
	c, _ := s.Content(pageID)
	return c != "" && c != LoadingContent
}

// SetContent writes content for a page if runID is current.
func (s *State) SetContent(runID, pageID, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID != runID {
		return false
	}
	s.content[pageID] = content
	return true
}

// SetOriginal records the content as first generated, before any later
// corrective regeneration.
func (s *State) SetOriginal(runID, pageID, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID != runID {
		return false
	}
	s.original[pageID] = content
	return true
}

// Original returns the recorded original content of a page.
func (s *State) Original(pageID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.original[pageID]
}

// Complete records a terminal result for a page and removes it from the
// in-progress set in one step, so a page is never counted as both. An
// empty original leaves the original-content record untouched.
func (s *State) Complete(runID, pageID, content, original string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID != runID {
		return false
	}
	s.content[pageID] = content
	if original != "" {
		s.original[pageID] = original
	}
	delete(s.inProgress, pageID)
	return true
}

// Finish removes the page from the in-progress set.
func (s *State) Finish(runID, pageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID != runID {
		return
	}
	delete(s.inProgress, pageID)
}

// InProgress returns the ids of pages without a terminal result, sorted.
func (s *State) InProgress() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.inProgress))
	for id := range s.inProgress {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// InProgressHas reports whether pageID is still waiting for a terminal
// result.
func (s *State) InProgressHas(pageID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inProgress[pageID]
}

// SetError records a message for user display if runID is current.
func (s *State) SetError(runID, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID != runID {
		return
	}
	s.lastError = msg
}

// LastError returns the most recent error message.
func (s *State) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Progress reports completed/total and up to maxTitles titles of pages
// still in progress, in structure order.
func (s *State) Progress(maxTitles int) Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := Progress{RunID: s.runID}
	if s.structure == nil {
		return p
	}
	p.Total = len(s.structure.Pages)
	p.Completed = p.Total - len(s.inProgress)
	for _, page := range s.structure.Pages {
		if !s.inProgress[page.ID] {
			continue
		}
		if len(p.Processing) < maxTitles {
			p.Processing = append(p.Processing, page.Title)
		} else {
			p.Overflow++
		}
	}
	return p
}

// ExportPages returns every page of the installed structure with its best
// available content. Pages without content get NotGeneratedContent.
func (s *State) ExportPages() []Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.structure == nil {
		return nil
	}
	pages := make([]Page, 0, len(s.structure.Pages))
	for _, p := range s.structure.Pages {
		c := s.content[p.ID]
		if c == "" || c == LoadingContent {
			c = NotGeneratedContent
		}
		p.Content = c
		pages = append(pages, p)
	}
	return pages
}
