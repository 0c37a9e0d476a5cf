// Package extract pulls the research, lecture and conference sections out of
// a rendered Notion page.
//
// A Notion page is a flat list of sibling "block" elements. A section starts
// at the block containing one of its header keywords and runs over the
// following sibling blocks until a block mentions a stop keyword, typically
// the header of the next section. Each non-blank block in between becomes
// one item, classified with a few regular expressions.
//
// All text is NFC-normalized and whitespace-collapsed before matching, so
// keywords match regardless of how the page was composed or indented.
//
// Years are found with the RE2 word boundary \b, which only knows ASCII word
// characters. Hangul counts as a boundary, so "2021년" yields the year 2021
// rather than no year.
package extract
