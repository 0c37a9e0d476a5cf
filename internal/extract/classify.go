package extract

import (
	"regexp"
	"strings"

	"github.com/nao1215/cvsync/internal/model"
)

// maxTitleRunes is the length of the heading derived from a publication block.
const maxTitleRunes = 100

// titleEllipsis marks a shortened title.
const titleEllipsis = "..."

var (
	// yearPattern matches a standalone 20xx year. \b is ASCII-only in RE2,
	// so "2021년" matches as well as "(2021)".
	yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)

	// datePattern matches "2023.05", "2023.05.17" or "May 2023".
	datePattern = regexp.MustCompile(`\d{4}\.\d{2}(?:\.\d{2})?|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) \d{4}`)
)

var (
	bookKeywords        = []string{"저서", "Co-authored"}
	translationKeywords = []string{"역서", "Translation"}
)

// publication classifies a research block.
func publication(b Block) model.Publication {
	year := model.UnknownYear
	if m := yearPattern.FindStringSubmatch(b.Text); m != nil {
		year = m[1]
	}

	title, cut := truncateRunes(b.Text, maxTitleRunes)
	if cut {
		title = strings.TrimRight(title, " ") + titleEllipsis
	}

	return model.Publication{
		Year:     year,
		Category: category(b.Text),
		Title:    title,
		Source:   b.Text,
		Link:     b.Link,
	}
}

// category detects the publication type. Book keywords win over
// translation keywords.
func category(text string) model.Category {
	switch {
	case containsAny(text, bookKeywords):
		return model.CategoryBook
	case containsAny(text, translationKeywords):
		return model.CategoryTranslation
	default:
		return model.CategoryPaper
	}
}

// lecture classifies a lecture or conference block.
func lecture(b Block) model.Lecture {
	date := model.RecentDate
	if m := datePattern.FindString(b.Text); m != "" {
		date = m
	}
	return model.Lecture{
		Date: date,
		Text: b.Text,
	}
}
