package wiki

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func installedState(t *testing.T) (*State, string) {
	t.Helper()
	s, err := ParseStructure(threePageXML)
	require.NoError(t, err)

	st := NewState()
	runID, _ := st.Reset(context.Background())
	require.True(t, st.Install(runID, s))
	return st, runID
}

func TestStateInstallMarksAllInProgress(t *testing.T) {
	st, _ := installedState(t)
	assert.Equal(t, []string{"page-1", "page-2", "page-3"}, st.InProgress())

	p := st.Progress(2)
	assert.Equal(t, 0, p.Completed)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, []string{"Overview", "Architecture"}, p.Processing)
	assert.Equal(t, 1, p.Overflow)
}

func TestStateCompleteMovesPageToTerminal(t *testing.T) {
	st, runID := installedState(t)

	require.True(t, st.Complete(runID, "page-2", "# Arch", "# Arch"))
	assert.Equal(t, []string{"page-1", "page-3"}, st.InProgress())
	assert.False(t, st.InProgressHas("page-2"))
	assert.True(t, st.InProgressHas("page-1"))
	assert.False(t, st.InProgressHas("missing"))
	c, ok := st.Content("page-2")
	require.True(t, ok)
	assert.Equal(t, "# Arch", c)
	assert.Equal(t, "# Arch", st.Original("page-2"))
	assert.Equal(t, 1, st.Progress(5).Completed)

	// An empty original leaves the record alone.
	st.Complete(runID, "page-2", "fixed", "")
	assert.Equal(t, "# Arch", st.Original("page-2"))
}

func TestStateResetClearsEverything(t *testing.T) {
	st, runID := installedState(t)
	st.Complete(runID, "page-1", "body", "body")
	st.SetError(runID, "Failed to generate content for Setup.")
	require.True(t, st.TryBeginPage(runID, "page-3"))

	newID, _ := st.Reset(context.Background())
	assert.NotEqual(t, runID, newID)
	assert.Nil(t, st.Structure())
	assert.Empty(t, st.InProgress())
	assert.Empty(t, st.LastError())
	assert.False(t, st.Active("page-3"))
	_, ok := st.Content("page-1")
	assert.False(t, ok)
}

func TestStateResetCancelsPreviousRun(t *testing.T) {
	st := NewState()
	_, ctx := st.Reset(context.Background())
	require.NoError(t, ctx.Err())

	st.Reset(context.Background())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestStateDiscardsStaleWrites(t *testing.T) {
	st, oldID := installedState(t)
	newID, _ := st.Reset(context.Background())
	s, err := ParseStructure(threePageXML)
	require.NoError(t, err)
	require.True(t, st.Install(newID, s))

	assert.False(t, st.Complete(oldID, "page-1", "stale", "stale"))
	assert.False(t, st.SetContent(oldID, "page-1", "stale"))
	assert.False(t, st.TryBeginPage(oldID, "page-1"))
	assert.False(t, st.Install(oldID, s))
	st.SetError(oldID, "stale")

	assert.Len(t, st.InProgress(), 3)
	assert.False(t, st.HasContent("page-1"))
	assert.Empty(t, st.LastError())
}

func TestStatePageGuard(t *testing.T) {
	st, runID := installedState(t)

	require.True(t, st.TryBeginPage(runID, "page-1"))
	assert.True(t, st.Active("page-1"))
	assert.False(t, st.TryBeginPage(runID, "page-1"))

	st.EndPage(runID, "page-1")
	assert.False(t, st.Active("page-1"))
	assert.True(t, st.TryBeginPage(runID, "page-1"))
}

func TestStateHasContentIgnoresLoading(t *testing.T) {
	st, runID := installedState(t)
	st.SetContent(runID, "page-1", LoadingContent)
	assert.False(t, st.HasContent("page-1"))
	st.SetContent(runID, "page-1", "done")
	assert.True(t, st.HasContent("page-1"))
}

func TestStateExportPages(t *testing.T) {
	st, runID := installedState(t)
	st.Complete(runID, "page-1", "# Overview", "# Overview")
	st.SetContent(runID, "page-2", LoadingContent)

	pages := st.ExportPages()
	require.Len(t, pages, 3)
	assert.Equal(t, "# Overview", pages[0].Content)
	assert.Equal(t, NotGeneratedContent, pages[1].Content)
	assert.Equal(t, NotGeneratedContent, pages[2].Content)
}

func TestStateExportPagesWithoutStructure(t *testing.T) {
	assert.Nil(t, NewState().ExportPages())
}
