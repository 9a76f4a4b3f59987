package wiki

import (
	"bytes"
	"fmt"
	"text/template"
)

// languageNames maps language codes to the names used in prompts.
var languageNames = map[string]string{
	"en": "English",
	"ja": "Japanese (日本語)",
	"zh": "Mandarin Chinese (中文)",
	"es": "Spanish (Español)",
	"kr": "Korean (한국어)",
	"vi": "Vietnamese (Tiếng Việt)",
}

// LanguageName returns the prompt name for a language code. Unknown codes
// fall back to English.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return languageNames["en"]
}

// ---------- prompt templates ----------

var structureTmpl = template.Must(template.New("structure").Parse(
	`Analyze this repository {{.Repo}} and create a wiki structure for it.

1. The complete file tree of the project:
<file_tree>
{{.FileTree}}
</file_tree>

2. The README file of the project:
<readme>
{{.Readme}}
</readme>

I want to create a wiki for this repository. Determine the most logical structure for a wiki based on the repository's content.

IMPORTANT: The wiki content will be generated in {{.Language}} language.

When designing the wiki structure, include pages that would benefit from visual diagrams, such as:
- Architecture overviews
- Data flow descriptions
- Component relationships
- Process workflows
- State machines
- Class hierarchies

Return your analysis in the following XML format:

<wiki_structure>
  <title>[Overall title for the wiki]</title>
  <description>[Brief description of the repository]</description>
  <pages>
    <page id="page-1">
      <title>[Page title]</title>
      <description>[Brief description of what this page will cover]</description>
      <importance>high|medium|low</importance>
      <relevant_files>
        <file_path>[Path to a relevant file]</file_path>
      </relevant_files>
      <related_pages>
        <related>page-2</related>
      </related_pages>
    </page>
  </pages>
</wiki_structure>

IMPORTANT FORMATTING INSTRUCTIONS:
- Return ONLY the valid XML structure specified above
- DO NOT wrap the XML in markdown code blocks
- DO NOT include any explanation text before or after the XML
- Ensure the XML is properly formatted and valid
- Start directly with <wiki_structure> and end with </wiki_structure>

IMPORTANT:
1. Create 4-6 pages that would make a comprehensive wiki for this repository
2. Each page should focus on a specific aspect of the codebase (e.g., architecture, key features, setup)
3. The relevant_files should be actual files from the repository that would be used to generate that page
4. Return ONLY valid XML with the structure specified above, with no markdown code block delimiters`))

var pageTmpl = template.Must(template.New("page").Parse(
	`Generate comprehensive wiki page content for "{{.Title}}" in the repository {{.Repo}}.

This page should focus on the following files:
{{range .FilePaths}}- {{.}}
{{end}}
IMPORTANT: Generate the content in {{.Language}} language.

Include:
- Clear introduction explaining what "{{.Title}}" is
- Explanation of purpose and functionality
- Code snippets when helpful (less than 20 lines)
- At least one Mermaid diagram [Flow or Sequence] (use "graph TD" for vertical orientation)
- Proper markdown formatting with code blocks and headings
- Source links to relevant files, for example: <p>Sources: <a href="{{.FileURL}}" target="_blank" rel="noopener noreferrer">{{.FirstFile}}</a></p>
- An explicit explanation of how this component/feature integrates with the overall architecture

Use proper markdown formatting for code blocks and include a vertical Mermaid diagram.

### Mermaid Diagrams:
1. MANDATORY: Include AT LEAST ONE relevant Mermaid diagram, most people prefer sequence diagrams if applicable.
2. CRITICAL: All diagrams MUST follow strict vertical orientation:
   - Use "graph TD" (top-down) directive for flow diagrams
   - NEVER use "graph LR" (left-right)
   - Maximum node width should be 3-4 words
   - Example:
     ` + "```mermaid" + `
     graph TD
       A[Start Process] --> B[Middle Step]
       B --> C[End Result]
     ` + "```" + `

3. Flow Diagram Requirements:
   - Use descriptive node IDs (e.g., UserAuth, DataProcess)
   - ALL connections MUST use double dashes with arrows (-->)
   - NEVER use single dash connections
   - Add clear labels to connections when necessary: A -->|triggers| B
   - Use appropriate node shapes based on type:
     - Rectangle [Text] for components/modules
     - Stadium ([Text]) for inputs/starting points
     - Circle((Text)) for junction points
     - Rhombus{Text} for decision points

4. Sequence Diagram Requirements:
   - Start with "sequenceDiagram" directive on its own line
   - Define ALL participants at the beginning
   - Use descriptive but concise participant names
   - Use the correct arrow types:
     - ->> for request/asynchronous messages
     - -->> for response messages
     - -x for failed messages
   - Include activation boxes using +/- notation
   - Add notes for clarification using "Note over" or "Note right of"
`))

// BuildStructurePrompt renders the structure-discovery prompt.
func BuildStructurePrompt(repo RepoIdentity, fileTree, readme, language string) (string, error) {
	var buf bytes.Buffer
	err := structureTmpl.Execute(&buf, struct {
		Repo     string
		FileTree string
		Readme   string
		Language string
	}{
		Repo:     repo.String(),
		FileTree: fileTree,
		Readme:   readme,
		Language: LanguageName(language),
	})
	if err != nil {
		return "", fmt.Errorf("rendering structure prompt: %w", err)
	}
	return buf.String(), nil
}

// BuildPagePrompt renders the content prompt for a single page. Source
// links point at branch, the branch the file tree was read from.
func BuildPagePrompt(repo RepoIdentity, page Page, branch, language string) (string, error) {
	first := "README.md"
	if len(page.FilePaths) > 0 {
		first = page.FilePaths[0]
	}
	var buf bytes.Buffer
	err := pageTmpl.Execute(&buf, struct {
		Title     string
		Repo      string
		FileURL   string
		FilePaths []string
		FirstFile string
		Language  string
	}{
		Title:     page.Title,
		Repo:      repo.String(),
		FileURL:   repo.FileURL(branch, first),
		FilePaths: page.FilePaths,
		FirstFile: first,
		Language:  LanguageName(language),
	})
	if err != nil {
		return "", fmt.Errorf("rendering page prompt: %w", err)
	}
	return buf.String(), nil
}
