package wiki

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructure(t *testing.T) {
	s, err := ParseStructure(threePageXML)
	require.NoError(t, err)

	assert.Equal(t, "Widgets Wiki", s.Title)
	assert.Equal(t, "All about widgets", s.Description)
	require.Len(t, s.Pages, 3)

	assert.Equal(t, "page-1", s.Pages[0].ID)
	assert.Equal(t, "Overview", s.Pages[0].Title)
	assert.Equal(t, ImportanceHigh, s.Pages[0].Importance)
	assert.Equal(t, []string{"README.md"}, s.Pages[0].FilePaths)
	assert.Equal(t, []string{"page-2"}, s.Pages[0].RelatedPages)

	assert.Equal(t, []string{"cmd/main.go", "internal/core.go"}, s.Pages[1].FilePaths)
	assert.Empty(t, s.Pages[1].RelatedPages)
	assert.Equal(t, ImportanceLow, s.Pages[2].Importance)
	assert.Empty(t, s.Pages[2].FilePaths)
}

func TestParseStructureFencedAndSurrounded(t *testing.T) {
	resp := "```xml\nHere is the structure:\n" + threePageXML + "\nHope this helps.\n```"
	s, err := ParseStructure(resp)
	require.NoError(t, err)
	assert.Len(t, s.Pages, 3)
}

func TestParseStructureDefaults(t *testing.T) {
	resp := `<wiki_structure>
  <title>T</title>
  <pages>
    <page><title>No id</title></page>
    <page id="dup"><title>First</title><importance>CRITICAL</importance></page>
    <page id="dup"><title>Second</title><importance> High </importance></page>
  </pages>
</wiki_structure>`
	s, err := ParseStructure(resp)
	require.NoError(t, err)
	require.Len(t, s.Pages, 3)

	assert.Equal(t, "page-1", s.Pages[0].ID)
	assert.Equal(t, ImportanceMedium, s.Pages[0].Importance)
	assert.Equal(t, "dup", s.Pages[1].ID)
	assert.Equal(t, ImportanceMedium, s.Pages[1].Importance)
	assert.Equal(t, "page-3", s.Pages[2].ID)
	assert.Equal(t, ImportanceHigh, s.Pages[2].Importance)
}

func TestParseStructureWithoutWrappers(t *testing.T) {
	resp := `<wiki_structure><title>T</title><page id="p1"><title>A</title><file_path>a.go</file_path></page></wiki_structure>`
	s, err := ParseStructure(resp)
	require.NoError(t, err)
	assert.Equal(t, "T", s.Title)
	require.Len(t, s.Pages, 1)
	assert.Equal(t, "p1", s.Pages[0].ID)
	assert.Equal(t, "A", s.Pages[0].Title)
	assert.Equal(t, []string{"a.go"}, s.Pages[0].FilePaths)
}

func TestParseStructureNestedAtAnyDepth(t *testing.T) {
	resp := `<wiki_structure>
  <title>Widgets</title>
  <description>About widgets</description>
  <sections>
    <section id="s1"><title>Core</title>
      <page id="p1">
        <title>Engine</title>
        <files><group><file_path>engine.go</file_path></group><file_path>gear.go</file_path></files>
        <related>p2</related>
      </page>
    </section>
  </sections>
  <page id="p2"><title>Setup</title><description>How to install</description></page>
</wiki_structure>`
	s, err := ParseStructure(resp)
	require.NoError(t, err)

	assert.Equal(t, "Widgets", s.Title)
	assert.Equal(t, "About widgets", s.Description)
	require.Len(t, s.Pages, 2)
	assert.Equal(t, "Engine", s.Pages[0].Title)
	assert.Equal(t, []string{"engine.go", "gear.go"}, s.Pages[0].FilePaths)
	assert.Equal(t, []string{"p2"}, s.Pages[0].RelatedPages)
	assert.Equal(t, "p2", s.Pages[1].ID)
	assert.Equal(t, "How to install", s.Pages[1].Description)
	assert.Empty(t, s.Pages[1].FilePaths)
}

func TestParseStructureNoBlock(t *testing.T) {
	_, err := ParseStructure("I could not analyze this repository.")
	var nsf *NoStructureFoundError
	require.ErrorAs(t, err, &nsf)
	assert.Equal(t, "I could not analyze this repository.", nsf.Excerpt)
}

func TestParseStructureMalformed(t *testing.T) {
	_, err := ParseStructure("<wiki_structure><title>T</title><pages><page></pages></wiki_structure>")
	var mal *MalformedStructureError
	require.ErrorAs(t, err, &mal)
}

func TestResolverResolve(t *testing.T) {
	llm := &mockCompleter{responses: map[string]string{"wiki structure": threePageXML}}
	r := NewResolver(llm)

	s, err := r.Resolve(context.Background(), "README.md\ncmd/main.go", "# Widgets", testRepo, Credentials{}, "en")
	require.NoError(t, err)
	assert.Len(t, s.Pages, 3)

	require.Equal(t, 1, llm.callCount())
	assert.Contains(t, llm.calls[0], "acme/widgets")
	assert.Contains(t, llm.calls[0], "cmd/main.go")
	assert.Contains(t, llm.calls[0], "# Widgets")
	assert.False(t, r.InFlight())
}

func TestResolverIncompleteIdentity(t *testing.T) {
	llm := &mockCompleter{}
	r := NewResolver(llm)

	_, err := r.Resolve(context.Background(), "", "", RepoIdentity{Owner: "acme"}, Credentials{}, "en")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, llm.callCount())
}

func TestResolverTransportFailure(t *testing.T) {
	llm := &mockCompleter{errors: map[string]error{"wiki structure": &TransportError{StatusCode: 500, Status: "Internal Server Error", Body: "boom"}}}
	r := NewResolver(llm)

	_, err := r.Resolve(context.Background(), "", "", testRepo, Credentials{}, "en")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 500, te.StatusCode)
}

func TestResolverRejectsConcurrentCall(t *testing.T) {
	llm := newBlockingCompleter(threePageXML)
	r := NewResolver(llm)

	errCh := make(chan error, 1)
	go func() {
		_, err := r.Resolve(context.Background(), "", "", testRepo, Credentials{}, "en")
		errCh <- err
	}()
	<-llm.started
	assert.True(t, r.InFlight())

	_, err := r.Resolve(context.Background(), "", "", testRepo, Credentials{}, "en")
	assert.True(t, errors.Is(err, ErrResolutionInFlight))

	close(llm.release)
	require.NoError(t, <-errCh)
	assert.False(t, r.InFlight())
}

func TestBuildPagePrompt(t *testing.T) {
	page := Page{ID: "page-2", Title: "Architecture", FilePaths: []string{"cmd/main.go", "internal/core.go"}}
	prompt, err := BuildPagePrompt(testRepo, page, "master", "ja")
	require.NoError(t, err)

	assert.Contains(t, prompt, `"Architecture"`)
	assert.Contains(t, prompt, "- cmd/main.go\n- internal/core.go\n")
	assert.Contains(t, prompt, `href="https://github.com/acme/widgets/blob/master/cmd/main.go"`)
	assert.NotContains(t, prompt, "/blob/main/")
	assert.Contains(t, prompt, "Japanese")
	assert.Contains(t, prompt, "graph TD")
}

func TestBuildPagePromptGitLabLink(t *testing.T) {
	repo := RepoIdentity{Owner: "acme/platform", Repo: "widgets", Type: RepoGitLab}
	prompt, err := BuildPagePrompt(repo, Page{Title: "Setup"}, "develop", "en")
	require.NoError(t, err)
	assert.Contains(t, prompt, `href="https://gitlab.com/acme/platform/widgets/-/blob/develop/README.md"`)
}

func TestRepoIdentityFileURL(t *testing.T) {
	tests := []struct {
		name   string
		repo   RepoIdentity
		branch string
		want   string
	}{
		{"github", RepoIdentity{Owner: "acme", Repo: "widgets", Type: RepoGitHub}, "master", "https://github.com/acme/widgets/blob/master/cmd/main.go"},
		{"github default branch", RepoIdentity{Owner: "acme", Repo: "widgets", Type: RepoGitHub}, "", "https://github.com/acme/widgets/blob/main/cmd/main.go"},
		{"gitlab", RepoIdentity{Owner: "acme", Repo: "widgets", Type: RepoGitLab}, "main", "https://gitlab.com/acme/widgets/-/blob/main/cmd/main.go"},
		{"bitbucket", RepoIdentity{Owner: "acme", Repo: "widgets", Type: RepoBitbucket}, "trunk", "https://bitbucket.org/acme/widgets/src/trunk/cmd/main.go"},
		{"local", RepoIdentity{Owner: "src", Repo: "widgets", Type: RepoLocal, LocalPath: "/src/widgets"}, "", "/src/widgets/cmd/main.go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.repo.FileURL(tt.branch, "cmd/main.go"))
		})
	}
}

func TestLanguageNameFallback(t *testing.T) {
	assert.Equal(t, "English", LanguageName("xx"))
	assert.Equal(t, "Spanish (Español)", LanguageName("es"))
}
