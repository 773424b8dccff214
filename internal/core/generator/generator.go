// Package generator turns a deployment brief into a static web application.
//
// Generation is a pure function of (brief, checks, attachments, round): the
// same inputs always yield the same file map. The orchestrator treats this
// package as an external collaborator and never inspects what it produces.
package generator

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pagesmith/pagesmith/internal/core/domain"
)

// =============================================================================
// Task Kinds
// =============================================================================

// Kind selects which application template a brief maps to.
type Kind string

const (
	KindCaptchaSolver     Kind = "captcha-solver"
	KindSumOfSales        Kind = "sum-of-sales"
	KindMarkdownToHTML    Kind = "markdown-to-html"
	KindGitHubUserCreated Kind = "github-user-created"
	KindGeneric           Kind = "generic"
)

// DetectKind maps a brief to a template kind by keyword.
// Unknown briefs fall back to the generic template.
func DetectKind(brief string) Kind {
	b := strings.ToLower(brief)
	switch {
	case strings.Contains(b, "captcha"):
		return KindCaptchaSolver
	case strings.Contains(b, "sales") || strings.Contains(b, "sum") || strings.Contains(b, "csv"):
		return KindSumOfSales
	case strings.Contains(b, "markdown") || strings.Contains(b, ".md"):
		return KindMarkdownToHTML
	case strings.Contains(b, "github") && strings.Contains(b, "user"):
		return KindGitHubUserCreated
	default:
		return KindGeneric
	}
}

// =============================================================================
// Generator
// =============================================================================

// Input carries everything the generator needs for one task.
type Input struct {
	Brief       string
	Checks      []string
	Attachments []domain.Attachment
	Round       int
}

// Generator produces static application file maps.
// Author is used in the LICENSE file; it is typically the hosting username.
type Generator struct {
	Author string
}

// New creates a generator.
func New(author string) *Generator {
	if author == "" {
		author = "Author"
	}
	return &Generator{Author: author}
}

// Generate builds the file map for a brief. Paths are repo-relative.
// Returns an error when decoding an attachment fails.
func (g *Generator) Generate(in Input) (map[string]string, error) {
	var files map[string]string
	var title string

	switch DetectKind(in.Brief) {
	case KindCaptchaSolver:
		title = "Captcha Solver"
		files = map[string]string{"index.html": captchaSolverHTML()}
	case KindSumOfSales:
		seed := ExtractSeed(in.Brief)
		title = "Sales Summary " + seed
		files = map[string]string{"index.html": sumOfSalesHTML(seed, in.Round, in.Brief)}
	case KindMarkdownToHTML:
		title = "Markdown to HTML Converter"
		files = map[string]string{"index.html": markdownToHTMLPage(in.Round, in.Brief)}
	case KindGitHubUserCreated:
		seed := ExtractSeed(in.Brief)
		title = "GitHub User Info"
		files = map[string]string{"index.html": githubUserHTML(seed, in.Round, in.Brief)}
	default:
		title = "Application"
		files = map[string]string{"index.html": genericHTML()}
	}

	for _, att := range in.Attachments {
		content, err := DecodeAttachment(att.URL)
		if err != nil {
			return nil, fmt.Errorf("attachment %q: %w", att.Name, err)
		}
		files["assets/"+att.Name] = content
	}

	files["README.md"] = g.readme(title, in.Brief, in.Checks)
	files["LICENSE"] = g.mitLicense()

	return files, nil
}

// =============================================================================
// Helpers
// =============================================================================

var seedPattern = regexp.MustCompile(`seed[:\s]+([a-zA-Z0-9-]+)`)

// ExtractSeed pulls a seed token out of a brief, falling back to "default".
func ExtractSeed(brief string) string {
	if m := seedPattern.FindStringSubmatch(brief); m != nil {
		return m[1]
	}
	return "default"
}

func (g *Generator) readme(title, brief string, checks []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n## Summary\n%s\n\n## Features\nThis application implements the following requirements:\n", title, brief)
	for _, check := range checks {
		fmt.Fprintf(&b, "- %s\n", check)
	}
	b.WriteString(`
## Usage
1. Open the GitHub Pages URL in your browser
2. The application loads and displays the required functionality
3. Parameterized features accept query parameters (e.g. ` + "`?url=...`, `?token=...`" + `)

## Setup
This is a static HTML application hosted on GitHub Pages. No build process required.
`)
	return b.String()
}

func (g *Generator) mitLicense() string {
	return fmt.Sprintf(`MIT License

Copyright (c) %d %s

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
`, time.Now().Year(), g.Author)
}
