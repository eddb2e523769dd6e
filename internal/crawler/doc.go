// Package crawler implements the scraping half of the pipeline: the
// rate-limited fetch client, the album crawler, the image extractor, and the
// image downloader with its retry state machine. Browsing is delegated to a
// Session so the same logic runs over headless Chrome or a static fetcher.
package crawler
