package model

import "fmt"

// SectionKind identifies one of the three CV sections cvsync extracts.
type SectionKind string

const (
	// SectionResearch is the "Research & Publications" section.
	SectionResearch SectionKind = "research"

	// SectionLectures is the "Special Lectures" (invited talks) section.
	SectionLectures SectionKind = "lectures"

	// SectionConferences is the "Conferences" section.
	SectionConferences SectionKind = "conferences"
)

// Sections lists all section kinds in the order they are rendered and patched.
var Sections = []SectionKind{SectionResearch, SectionLectures, SectionConferences}

// String returns the section name.
func (k SectionKind) String() string {
	return string(k)
}

// Valid reports whether k is one of the known section kinds.
func (k SectionKind) Valid() bool {
	switch k {
	case SectionResearch, SectionLectures, SectionConferences:
		return true
	default:
		return false
	}
}

// ParseSectionKind converts a string to a SectionKind.
func ParseSectionKind(s string) (SectionKind, error) {
	k := SectionKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown section %q", s)
	}
	return k, nil
}

// Category classifies a publication. The site filters publications by the
// CSS class derived from the category.
type Category string

const (
	// CategoryPaper is a journal or conference paper. It is the default.
	CategoryPaper Category = "paper"

	// CategoryBook is an authored or co-authored book.
	CategoryBook Category = "book"

	// CategoryTranslation is a translated work.
	CategoryTranslation Category = "trans"
)

// CSSClass returns the class name used by the site's tab filter,
// e.g. "category-paper".
func (c Category) CSSClass() string {
	if c == "" {
		c = CategoryPaper
	}
	return "category-" + string(c)
}
