package application

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const (
	maxSnippetLength = 200
	untitled         = "Untitled Article"
)

// RenderedMarkdown contains the results of processing a markdown document
type RenderedMarkdown struct {
	Title   string
	Snippet string
	HTML    []byte
}

type relativeLinkTransformer struct {
	siteURL string
}

func (t *relativeLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := n.(type) {
		case *ast.Image:
			if isRelativeLink(string(v.Destination)) {
				v.Destination = []byte(t.siteURL + "/images/" + path.Base(string(v.Destination)))
			}
		case *ast.Link:
			if isRelativeLink(string(v.Destination)) {
				// links between articles point at the article's slug
				dest := path.Base(string(v.Destination))
				dest = strings.TrimSuffix(dest, ".md")
				dest = strings.TrimSuffix(dest, ".html")
				v.Destination = []byte(t.siteURL + "/articles/" + dest)
			}
		}

		return ast.WalkContinue, nil
	})
}

func isRelativeLink(dest string) bool {
	if strings.HasPrefix(dest, "/") {
		return !strings.HasPrefix(dest, "//")
	}

	if strings.HasPrefix(dest, "./") || strings.HasPrefix(dest, "../") {
		return true
	}

	return !strings.Contains(dest, ":")
}

// MarkdownRenderer converts article markdown to HTML.
type MarkdownRenderer interface {
	Render(markdown []byte) (*RenderedMarkdown, error)
}

type GoldmarkRenderer struct {
	renderer goldmark.Markdown
}

// NewMarkdownRenderer builds a GFM renderer. Relative links and images are
// rewritten against siteURL; an empty siteURL leaves them site-relative.
func NewMarkdownRenderer(siteURL string) *GoldmarkRenderer {
	renderer := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(&relativeLinkTransformer{siteURL: strings.TrimSuffix(siteURL, "/")}, 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &GoldmarkRenderer{
		renderer: renderer,
	}
}

func (r *GoldmarkRenderer) Render(markdown []byte) (*RenderedMarkdown, error) {
	var buf bytes.Buffer
	if err := r.renderer.Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	return &RenderedMarkdown{
		Title:   extractTitle(markdown),
		Snippet: extractSnippet(markdown),
		HTML:    buf.Bytes(),
	}, nil
}

func extractTitle(markdown []byte) string {
	firstLine, _, _ := strings.Cut(string(markdown), "\n")

	title, found := strings.CutPrefix(strings.TrimSpace(firstLine), "# ")
	if !found {
		return untitled
	}

	return strings.TrimSpace(title)
}

// stripTitle drops a leading "# " heading line so the article body does not repeat the title.
func stripTitle(markdown []byte) string {
	firstLine, rest, _ := strings.Cut(string(markdown), "\n")
	if strings.HasPrefix(strings.TrimSpace(firstLine), "# ") {
		return strings.TrimLeft(rest, "\n")
	}
	return string(markdown)
}

func extractSnippet(markdown []byte) string {
	var paragraph []string

	for _, line := range strings.Split(string(markdown), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") {
			if len(paragraph) > 0 {
				break
			}
			continue
		}

		if trimmed == "" {
			if len(paragraph) > 0 {
				break
			}
			continue
		}

		// Stop at code blocks, horizontal rules, lists, tables
		if strings.HasPrefix(trimmed, "```") ||
			strings.HasPrefix(trimmed, "---") ||
			strings.HasPrefix(trimmed, "***") ||
			strings.HasPrefix(trimmed, "- ") ||
			strings.HasPrefix(trimmed, "* ") ||
			strings.HasPrefix(trimmed, "+ ") ||
			strings.HasPrefix(trimmed, "|") {
			if len(paragraph) > 0 {
				break
			}
			continue
		}

		paragraph = append(paragraph, trimmed)
	}

	if len(paragraph) == 0 {
		return ""
	}

	snippet := []rune(strings.Join(paragraph, " "))
	if len(snippet) <= maxSnippetLength {
		return string(snippet)
	}

	cut := string(snippet[:maxSnippetLength])
	if lastSpace := strings.LastIndexAny(cut, " \t"); lastSpace > 0 {
		cut = cut[:lastSpace]
	}
	return cut + "..."
}
