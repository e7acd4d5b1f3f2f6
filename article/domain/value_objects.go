package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dfryer1193/rhyon/shared/apperr"
	"github.com/google/uuid"
)

const (
	MaxTitleLength   = 200
	MaxSummaryLength = 500

	// generatedSummaryLength bounds the content prefix used for a generated summary
	generatedSummaryLength = 200
	summaryEllipsis        = "..."
)

// ID is the store-assigned technical identifier. The zero value means "not persisted yet".
type ID uuid.UUID

// ParseID parses the textual form of an ID.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, apperr.Validation(fmt.Sprintf("invalid article id %q", s))
	}
	return ID(u), nil
}

func (id ID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ID) UUID() uuid.UUID { return uuid.UUID(id) }
func (id ID) String() string  { return uuid.UUID(id).String() }

// Title is a trimmed, non-empty article title of at most MaxTitleLength characters.
type Title struct {
	value string
}

func NewTitle(title string) (Title, error) {
	title = strings.TrimSpace(title)

	if title == "" {
		return Title{}, apperr.Validation("article title cannot be empty")
	}

	if utf8.RuneCountInString(title) > MaxTitleLength {
		return Title{}, apperr.Validation(fmt.Sprintf("article title is too long (max %d characters)", MaxTitleLength))
	}

	return Title{value: title}, nil
}

func (t Title) String() string { return t.value }

// Slug is the lowercase natural key used in URLs.
type Slug struct {
	value string
}

func NewSlug(slug string) (Slug, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))

	if slug == "" {
		return Slug{}, apperr.Validation("article slug cannot be empty")
	}

	return Slug{value: slug}, nil
}

// SlugFromTitle derives a slug from a title: ASCII letters and digits are kept,
// whitespace becomes '-', everything else becomes '_', and doubled hyphens are
// collapsed. The result goes through NewSlug, so a derived slug can still be rejected.
func SlugFromTitle(title string) (Slug, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('-')
		default:
			b.WriteByte('_')
		}
	}

	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	return NewSlug(slug)
}

func (s Slug) String() string { return s.value }

// Summary is a short description of at most MaxSummaryLength characters.
type Summary struct {
	value string
}

func NewSummary(summary string) (Summary, error) {
	summary = strings.TrimSpace(summary)

	if utf8.RuneCountInString(summary) > MaxSummaryLength {
		return Summary{}, apperr.Validation(fmt.Sprintf("summary is too long (max %d characters)", MaxSummaryLength))
	}

	return Summary{value: summary}, nil
}

// GenerateSummary builds a summary from content. Short content is used verbatim.
// Longer content is cut after the last sentence terminator or newline within the
// first 200 characters (or hard-cut at 200) and suffixed with "...".
func GenerateSummary(content Content) Summary {
	runes := []rune(content.value)
	if len(runes) <= generatedSummaryLength {
		return Summary{value: content.value}
	}

	head := runes[:generatedSummaryLength]
	end := len(head)
	for i := len(head) - 1; i >= 0; i-- {
		if isSummaryBreak(head[i]) {
			end = i + 1
			break
		}
	}

	text := strings.TrimRightFunc(string(head[:end]), unicode.IsSpace)
	return Summary{value: text + summaryEllipsis}
}

func isSummaryBreak(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}

func (s Summary) String() string { return s.value }
func (s Summary) IsEmpty() bool  { return s.value == "" }

// Content is the free-form article body.
type Content struct {
	value string
}

func NewContent(content string) Content {
	return Content{value: content}
}

func (c Content) String() string { return c.value }

// IsEmpty reports whether the content is blank once whitespace is trimmed.
func (c Content) IsEmpty() bool {
	return strings.TrimSpace(c.value) == ""
}

// Status is the publication state of an article.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusDraft:
		return StatusDraft, nil
	case StatusPublished:
		return StatusPublished, nil
	default:
		return "", apperr.Validation(fmt.Sprintf("invalid article status %q", s))
	}
}

func (s Status) String() string { return string(s) }
