// Package main provides the entry point for the cvsync CLI.
//
// cvsync copies the research, lecture and conference lists of a public
// Notion CV page into the matching elements of a static site's index.html.
//
// Usage:
//
//	cvsync sync https://example.notion.site/CV -i site/index.html
//	cvsync history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
