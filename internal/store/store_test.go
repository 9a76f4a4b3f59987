package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/repowiki/internal/wiki"
)

const repoURL = "https://github.com/acme/widgets"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(id, language string) Run {
	st := &wiki.Structure{
		Title:       "Widgets Wiki",
		Description: "How widgets work",
		Pages: []wiki.Page{
			{ID: "page-1", Title: "Overview", FilePaths: []string{"README.md"}, Importance: wiki.ImportanceHigh},
			{ID: "page-2", Title: "Architecture", Importance: wiki.ImportanceMedium, RelatedPages: []string{"page-1"}},
		},
	}
	return Run{
		ID:        id,
		RepoURL:   repoURL,
		Language:  language,
		Structure: st,
		Pages: []wiki.Page{
			{ID: "page-1", Title: "Overview", Content: "# Overview"},
			{ID: "page-2", Title: "Architecture", Content: wiki.ErrorContentPrefix + "boom"},
		},
		Originals: map[string]string{"page-1": "# Overview"},
		Warning:   "Failed to generate content for Architecture.",
	}
}

func TestNewStoreInMemory(t *testing.T) {
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NoError(t, s.Close())
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveRun(testRun("run-1", "en")))

	got, err := s.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, repoURL, got.RepoURL)
	assert.Equal(t, "en", got.Language)
	assert.Equal(t, "Widgets Wiki", got.Structure.Title)
	assert.Equal(t, "Failed to generate content for Architecture.", got.Warning)
	assert.False(t, got.CreatedAt.IsZero())

	require.Len(t, got.Pages, 2)
	assert.Equal(t, "Overview", got.Pages[0].Title)
	assert.Equal(t, []string{"README.md"}, got.Pages[0].FilePaths)
	assert.Equal(t, "# Overview", got.Pages[0].Content)
	assert.Equal(t, []string{"page-1"}, got.Pages[1].RelatedPages)
	assert.Equal(t, wiki.ErrorContentPrefix+"boom", got.Pages[1].Content)
	assert.Equal(t, map[string]string{"page-1": "# Overview"}, got.Originals)

	// The stored structure does not duplicate page content.
	for _, p := range got.Structure.Pages {
		assert.Empty(t, p.Content)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetRun("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetRunFillsMissingPages(t *testing.T) {
	s := newTestStore(t)
	run := testRun("run-1", "en")
	run.Pages = run.Pages[:1]
	require.NoError(t, s.SaveRun(run))

	got, err := s.GetRun("run-1")
	require.NoError(t, err)
	require.Len(t, got.Pages, 2)
	assert.Equal(t, wiki.NotGeneratedContent, got.Pages[1].Content)
}

func TestSaveRunReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveRun(testRun("run-1", "en")))

	run := testRun("run-1", "en")
	run.Pages[0].Content = "# Overview v2"
	require.NoError(t, s.SaveRun(run))

	got, err := s.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "# Overview v2", got.Pages[0].Content)

	runs, err := s.ListRuns("")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSaveRunRequiresIDAndStructure(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.SaveRun(Run{Structure: &wiki.Structure{}}))
	assert.Error(t, s.SaveRun(Run{ID: "x"}))
}

func TestLatestRun(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveRun(testRun("run-1", "en")))
	require.NoError(t, s.SaveRun(testRun("run-2", "en")))
	require.NoError(t, s.SaveRun(testRun("run-3", "ja")))

	got, err := s.LatestRun(repoURL, "en")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run-2", got.ID)

	got, err = s.LatestRun(repoURL, "ja")
	require.NoError(t, err)
	assert.Equal(t, "run-3", got.ID)

	got, err = s.LatestRun(repoURL, "zh")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveRun(testRun("run-1", "en")))
	other := testRun("run-2", "en")
	other.RepoURL = "https://gitlab.com/acme/gadgets"
	require.NoError(t, s.SaveRun(other))

	runs, err := s.ListRuns(repoURL)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "Widgets Wiki", runs[0].Title)
	assert.Equal(t, 2, runs[0].PageCount)

	all, err := s.ListRuns("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "run-2", all[0].ID)
}

func TestDeleteRunCascadesPages(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveRun(testRun("run-1", "en")))
	require.NoError(t, s.DeleteRun("run-1"))

	got, err := s.GetRun("run-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM pages WHERE run_id = ?`, "run-1").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestForeignKeyEnforcement(t *testing.T) {
	s := newTestStore(t)
	_, err := s.db.Exec(
		`INSERT INTO pages (run_id, page_id, position, content) VALUES (?, ?, ?, ?)`,
		"nonexistent-run", "page-1", 0, "x",
	)
	require.Error(t, err, "foreign key constraint should reject orphan page")
}

func TestStoreOperationsAfterClose(t *testing.T) {
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Error(t, s.SaveRun(testRun("x", "en")))
	_, err = s.GetRun("x")
	assert.Error(t, err)
	_, err = s.LatestRun(repoURL, "en")
	assert.Error(t, err)
	_, err = s.ListRuns("")
	assert.Error(t, err)
	assert.Error(t, s.DeleteRun("x"))
}
