// Package fetch retrieves the rendered HTML of a Notion page.
//
// Notion builds page content with JavaScript, so the default Fetcher drives a
// headless Chrome or Chromium and dumps the DOM once the page has settled.
// A plain HTTP Fetcher is provided for pre-rendered or exported pages and for
// tests.
//
// Both fetchers check that the configured wait class is present in the
// document before returning it. A page without it is reported as
// ErrContentNotReady rather than handed to the extractor half-loaded.
package fetch
