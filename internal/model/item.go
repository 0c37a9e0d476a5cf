package model

// UnknownYear is used when no year could be found in a publication block.
const UnknownYear = "N/A"

// RecentDate is used when no date could be found in a lecture block.
const RecentDate = "Recent"

// Publication is a single entry of the research section.
type Publication struct {
	// Year is the first 20xx year found in the block, or UnknownYear.
	Year string `json:"year"`

	// Category is the publication type detected from keywords.
	Category Category `json:"category"`

	// Title is a shortened form of the block text used as a heading.
	Title string `json:"title"`

	// Source is the full block text.
	Source string `json:"source"`

	// Link is the first hyperlink in the block, resolved against the page URL.
	// Empty when the block has no link.
	Link string `json:"link,omitempty"`
}

// Lecture is a single entry of the lectures or conferences section.
type Lecture struct {
	// Date is the first date-like token in the block, or RecentDate.
	Date string `json:"date"`

	// Text is the full block text.
	Text string `json:"text"`
}

// Extraction holds everything extracted from one page.
type Extraction struct {
	Research    []Publication `json:"research"`
	Lectures    []Lecture     `json:"lectures"`
	Conferences []Lecture     `json:"conferences"`
}

// Count returns the number of items extracted for the given section.
func (e *Extraction) Count(kind SectionKind) int {
	if e == nil {
		return 0
	}
	switch kind {
	case SectionResearch:
		return len(e.Research)
	case SectionLectures:
		return len(e.Lectures)
	case SectionConferences:
		return len(e.Conferences)
	default:
		return 0
	}
}

// Total returns the number of items across all sections.
func (e *Extraction) Total() int {
	total := 0
	for _, kind := range Sections {
		total += e.Count(kind)
	}
	return total
}
