package extract

import (
	"github.com/nao1215/cvsync/internal/config"
	"github.com/nao1215/cvsync/internal/model"
)

// Rule holds the keywords that delimit one section.
type Rule struct {
	// Headers mark the start of the section. The first visible text node
	// containing any of them is used.
	Headers []string

	// Stops end the section. A following block whose text contains any of
	// them is not part of the section.
	Stops []string
}

// DefaultRules returns the Korean/English keywords of the CV page.
// A section's own header is never one of its stops, so a bilingual header
// block such as "초청 강연 (Special Lectures)" does not end the section.
func DefaultRules() map[model.SectionKind]Rule {
	return map[model.SectionKind]Rule{
		model.SectionResearch: {
			Headers: []string{"연구 성과", "Research & Publications"},
			Stops:   []string{"Special Lectures", "초청 강연", "Conferences", "학술 대회"},
		},
		model.SectionLectures: {
			Headers: []string{"초청 강연", "Special Lectures"},
			Stops:   []string{"Conferences", "학술 대회", "수상 내역", "Awards"},
		},
		model.SectionConferences: {
			Headers: []string{"학술 대회", "Conferences"},
			Stops:   []string{"Special Lectures", "초청 강연", "수상 내역", "Awards"},
		},
	}
}

// mergeRules overlays the configured keywords on the defaults. An empty
// keyword list keeps the default list.
func mergeRules(base map[model.SectionKind]Rule, overrides map[model.SectionKind]config.SectionRules) map[model.SectionKind]Rule {
	merged := make(map[model.SectionKind]Rule, len(base))
	for kind, rule := range base {
		merged[kind] = rule
	}
	for kind, o := range overrides {
		rule := merged[kind]
		if len(o.Headers) > 0 {
			rule.Headers = o.Headers
		}
		if len(o.Stops) > 0 {
			rule.Stops = o.Stops
		}
		merged[kind] = rule
	}
	return merged
}

// normalizeRule applies the same normalization to keywords as to page text.
func normalizeRule(r Rule) Rule {
	out := Rule{
		Headers: make([]string, 0, len(r.Headers)),
		Stops:   make([]string, 0, len(r.Stops)),
	}
	for _, h := range r.Headers {
		if h = normalize(h); h != "" {
			out.Headers = append(out.Headers, h)
		}
	}
	for _, s := range r.Stops {
		if s = normalize(s); s != "" {
			out.Stops = append(out.Stops, s)
		}
	}
	return out
}
