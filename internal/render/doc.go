// Package render turns extracted items into the HTML fragments spliced into
// the site's index file.
//
// Fragments are built as golang.org/x/net/html node trees and serialized,
// so item text is always escaped. The result is then passed through a
// bluemonday policy that only allows the handful of elements and classes
// the site's stylesheet knows about.
package render
