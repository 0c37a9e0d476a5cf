// Package patch replaces the contents of elements, found by id, in a static
// HTML file.
//
// The file is parsed with golang.org/x/net/html, so the written document is
// the parser's serialization of it: markup is normalized, content is not.
// Writes go to a temporary file in the same directory that is renamed over
// the original, so a failed run never leaves a half-written index file.
package patch
