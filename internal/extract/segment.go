package extract

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Block is one non-blank sibling block of a section.
type Block struct {
	// Text is the normalized visible text of the block.
	Text string

	// Link is the first hyperlink in the block, resolved against the page
	// URL. Empty when the block has none.
	Link string
}

// findHeader returns the first visible text node, in document order, that
// contains one of the keywords.
func findHeader(doc *html.Node, keywords []string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode && visible(n) && containsAny(normalize(n.Data), keywords) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

// enclosingBlock climbs from n to the nearest element with a class token
// containing "block". If there is none, the text node's parent element is
// used so that plain HTML pages still segment sensibly.
func enclosingBlock(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		for _, c := range strings.Fields(getAttr(p, "class")) {
			if strings.Contains(c, "block") {
				return p
			}
		}
	}
	if n.Parent != nil && n.Parent.Type == html.ElementNode {
		return n.Parent
	}
	return nil
}

// walkSection collects the blocks that follow start until one mentions a
// stop keyword. Blank siblings are skipped.
func walkSection(start *html.Node, stops []string, base *url.URL) []Block {
	var blocks []Block
	for n := start.NextSibling; n != nil; n = n.NextSibling {
		if n.Type == html.CommentNode {
			continue
		}
		text := textContent(n)
		if containsAny(text, stops) {
			break
		}
		if text == "" {
			continue
		}
		blocks = append(blocks, Block{
			Text: text,
			Link: firstLink(n, base),
		})
	}
	return blocks
}

// firstLink returns the resolved href of the first anchor under n.
// Anchors without an href and in-page fragment links are ignored.
func firstLink(n *html.Node, base *url.URL) string {
	var link string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if link != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			href := strings.TrimSpace(getAttr(n, "href"))
			if href != "" && !strings.HasPrefix(href, "#") {
				link = resolveURL(base, href)
				if link != "" {
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return link
}

// resolveURL resolves a reference URL against the base URL.
func resolveURL(base *url.URL, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return refURL.String()
	}
	return base.ResolveReference(refURL).String()
}
