package generator

import (
	"encoding/base64"
	"testing"

	"github.com/pagesmith/pagesmith/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Kind Detection Tests
// =============================================================================

func TestDetectKind_Captcha(t *testing.T) {
	assert.Equal(t, KindCaptchaSolver, DetectKind("Build a CAPTCHA solver page"))
}

func TestDetectKind_Sales(t *testing.T) {
	assert.Equal(t, KindSumOfSales, DetectKind("Show the sum of sales from data.csv"))
}

func TestDetectKind_Markdown(t *testing.T) {
	assert.Equal(t, KindMarkdownToHTML, DetectKind("Convert markdown to HTML"))
}

func TestDetectKind_GitHubUser(t *testing.T) {
	assert.Equal(t, KindGitHubUserCreated, DetectKind("Show when a GitHub user was created"))
}

func TestDetectKind_Generic(t *testing.T) {
	assert.Equal(t, KindGeneric, DetectKind("Build something nice"))
}

// =============================================================================
// Seed Extraction Tests
// =============================================================================

func TestExtractSeed_Found(t *testing.T) {
	assert.Equal(t, "abc-123", ExtractSeed("Sales page, seed: abc-123, show total"))
}

func TestExtractSeed_Fallback(t *testing.T) {
	assert.Equal(t, "default", ExtractSeed("no seed here"))
}

// =============================================================================
// Attachment Decoding Tests
// =============================================================================

func TestDecodeAttachment_DataURL(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("product,sales\nwidget,10"))
	content, err := DecodeAttachment("data:text/csv;base64," + payload)
	require.NoError(t, err)
	assert.Equal(t, "product,sales\nwidget,10", content)
}

func TestDecodeAttachment_PlainURL(t *testing.T) {
	content, err := DecodeAttachment("https://example.com/data.csv")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/data.csv", content)
}

func TestDecodeAttachment_InvalidBase64(t *testing.T) {
	_, err := DecodeAttachment("data:text/plain;base64,!!!not-base64!!!")
	assert.Error(t, err)
}

// =============================================================================
// Generation Tests
// =============================================================================

func TestGenerate_AlwaysIncludesReadmeAndLicense(t *testing.T) {
	g := New("octocat")
	files, err := g.Generate(Input{Brief: "anything", Round: 1})
	require.NoError(t, err)

	assert.Contains(t, files, "index.html")
	assert.Contains(t, files, "README.md")
	assert.Contains(t, files, "LICENSE")
	assert.Contains(t, files["LICENSE"], "MIT License")
	assert.Contains(t, files["LICENSE"], "octocat")
}

func TestGenerate_ReadmeListsChecks(t *testing.T) {
	g := New("octocat")
	files, err := g.Generate(Input{
		Brief:  "Show sales from data.csv",
		Checks: []string{"has license", "displays total"},
		Round:  1,
	})
	require.NoError(t, err)

	assert.Contains(t, files["README.md"], "- has license")
	assert.Contains(t, files["README.md"], "- displays total")
}

func TestGenerate_AttachmentsLandInAssets(t *testing.T) {
	g := New("octocat")
	payload := base64.StdEncoding.EncodeToString([]byte("hello"))
	files, err := g.Generate(Input{
		Brief: "markdown converter",
		Round: 1,
		Attachments: []domain.Attachment{
			{Name: "input.md", URL: "data:text/markdown;base64," + payload},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", files["assets/input.md"])
}

func TestGenerate_BadAttachmentFails(t *testing.T) {
	g := New("octocat")
	_, err := g.Generate(Input{
		Brief:       "markdown converter",
		Round:       1,
		Attachments: []domain.Attachment{{Name: "x", URL: "data:text/plain;base64,%%%"}},
	})
	assert.Error(t, err)
}

func TestGenerate_Deterministic(t *testing.T) {
	g := New("octocat")
	in := Input{Brief: "sum of sales, seed: s1", Round: 2}

	a, err := g.Generate(in)
	require.NoError(t, err)
	b, err := g.Generate(in)
	require.NoError(t, err)

	assert.Equal(t, a["index.html"], b["index.html"])
}

// =============================================================================
// Round Variant Tests
// =============================================================================

func TestGenerate_SalesRound1_NoTable(t *testing.T) {
	g := New("octocat")
	files, err := g.Generate(Input{Brief: "sum of sales with a product table", Round: 1})
	require.NoError(t, err)
	assert.NotContains(t, files["index.html"], "product-sales")
}

func TestGenerate_SalesRound2_Table(t *testing.T) {
	g := New("octocat")
	files, err := g.Generate(Input{Brief: "sum of sales with a product table", Round: 2})
	require.NoError(t, err)
	assert.Contains(t, files["index.html"], `id="product-sales"`)
}

func TestGenerate_SalesRound2_Currency(t *testing.T) {
	g := New("octocat")
	files, err := g.Generate(Input{Brief: "sum of sales with a currency picker", Round: 2})
	require.NoError(t, err)
	assert.Contains(t, files["index.html"], `id="currency-picker"`)
}

func TestGenerate_MarkdownRound2_WordCount(t *testing.T) {
	g := New("octocat")
	files, err := g.Generate(Input{Brief: "markdown converter with a word count badge", Round: 2})
	require.NoError(t, err)
	assert.Contains(t, files["index.html"], "markdown-word-count")
}

func TestGenerate_GitHubUserRound2_Status(t *testing.T) {
	g := New("octocat")
	files, err := g.Generate(Input{Brief: "github user lookup with a status line", Round: 2})
	require.NoError(t, err)
	assert.Contains(t, files["index.html"], `id="github-status"`)
}

func TestGenerate_SeedAppearsInSalesTitle(t *testing.T) {
	g := New("octocat")
	files, err := g.Generate(Input{Brief: "sum of sales, seed: zz9", Round: 1})
	require.NoError(t, err)
	assert.Contains(t, files["index.html"], "Sales Summary zz9")
}
