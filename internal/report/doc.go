// Package report writes sync reports and history listings.
//
// Writers:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter and FullJSONWriter: the full report as JSON
//   - MarkdownWriter: a Markdown summary built with nao1215/markdown
//   - HistoryWriter: recorded runs as a text or Markdown table
package report
