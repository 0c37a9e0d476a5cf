package render

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nao1215/cvsync/internal/model"
	"github.com/yosssi/gohtml"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// linkLabel is the text of the link rendered under a publication.
const linkLabel = "DOI/Link"

// Research renders publications as
//
//	<div class="pub-item category-paper">
//	  <span class="pub-year">2021</span>
//	  <div class="pub-details">
//	    <h4 class="pub-title">...</h4>
//	    <p class="pub-source">...</p>
//	    <a href="..." class="pub-link">DOI/Link</a>
//	  </div>
//	</div>
//
// An empty list renders as an empty string.
func Research(items []model.Publication) (string, error) {
	nodes := make([]*html.Node, 0, len(items))
	for _, p := range items {
		nodes = append(nodes, publicationNode(p))
	}
	return renderNodes(nodes)
}

// Lectures renders lectures or conferences as
//
//	<div class="lecture-item">
//	  <span class="lecture-date">2023.05</span>
//	  <p>...</p>
//	</div>
//
// An empty list renders as an empty string.
func Lectures(items []model.Lecture) (string, error) {
	nodes := make([]*html.Node, 0, len(items))
	for _, l := range items {
		nodes = append(nodes, lectureNode(l))
	}
	return renderNodes(nodes)
}

// Section renders the fragment for one section of an extraction.
func Section(kind model.SectionKind, e *model.Extraction) (string, error) {
	if e == nil {
		return "", nil
	}
	switch kind {
	case model.SectionResearch:
		return Research(e.Research)
	case model.SectionLectures:
		return Lectures(e.Lectures)
	case model.SectionConferences:
		return Lectures(e.Conferences)
	default:
		return "", fmt.Errorf("unknown section %q", kind)
	}
}

// Pretty indents a fragment for display. It is not used for the patched file.
func Pretty(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	return gohtml.Format(fragment)
}

func publicationNode(p model.Publication) *html.Node {
	category := p.Category
	if category == "" {
		category = model.CategoryPaper
	}
	year := p.Year
	if year == "" {
		year = model.UnknownYear
	}

	item := element(atom.Div, "pub-item "+category.CSSClass())
	item.AppendChild(textElement(atom.Span, "pub-year", year))

	details := element(atom.Div, "pub-details")
	details.AppendChild(textElement(atom.H4, "pub-title", p.Title))
	details.AppendChild(textElement(atom.P, "pub-source", p.Source))
	if href, ok := safeURL(p.Link); ok {
		link := &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.A,
			Data:     atom.A.String(),
			Attr: []html.Attribute{
				{Key: "href", Val: href},
				{Key: "class", Val: "pub-link"},
			},
		}
		link.AppendChild(&html.Node{Type: html.TextNode, Data: linkLabel})
		details.AppendChild(link)
	}
	item.AppendChild(details)

	return item
}

func lectureNode(l model.Lecture) *html.Node {
	date := l.Date
	if date == "" {
		date = model.RecentDate
	}

	item := element(atom.Div, "lecture-item")
	item.AppendChild(textElement(atom.Span, "lecture-date", date))
	item.AppendChild(textElement(atom.P, "", l.Text))
	return item
}

// element creates an element with an optional class attribute.
func element(a atom.Atom, class string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
	}
	if class != "" {
		n.Attr = []html.Attribute{{Key: "class", Val: class}}
	}
	return n
}

// textElement creates an element holding a single text node.
func textElement(a atom.Atom, class, text string) *html.Node {
	n := element(a, class)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

// renderNodes serializes nodes one per line and sanitizes the result.
func renderNodes(nodes []*html.Node) (string, error) {
	if len(nodes) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for i, n := range nodes {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if err := html.Render(&sb, n); err != nil {
			return "", fmt.Errorf("failed to render fragment: %w", err)
		}
	}
	return Sanitize(sb.String()), nil
}

// safeURL accepts absolute http(s) URLs and relative references.
func safeURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
		return raw, true
	default:
		return "", false
	}
}
