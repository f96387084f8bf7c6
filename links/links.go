// Package links turns the external resources attached to an analysis into
// plain text the model can read alongside the documents.
package links

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/etnz/finsight"
	"github.com/go-shiori/go-readability"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single page fetch.
const DefaultTimeout = 30 * time.Second

// DefaultMaxLen is the maximum number of bytes kept from a page.
const DefaultMaxLen = 20000

// FetchFunc returns the readable text of the page at url.
type FetchFunc func(url string, timeout time.Duration) (string, error)

// Readability fetches url and extracts its main article text.
func Readability(url string, timeout time.Duration) (string, error) {
	article, err := readability.FromURL(url, timeout)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}

// Fetcher takes text snapshots of links.
type Fetcher struct {
	Fetch   FetchFunc     // Readability when nil
	Timeout time.Duration // DefaultTimeout when zero
	MaxLen  int           // DefaultMaxLen when zero
}

// Snapshot returns the text of link framed with its URL.
func (f *Fetcher) Snapshot(ctx context.Context, link finsight.Link) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fetch := f.Fetch
	if fetch == nil {
		fetch = Readability
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxLen := f.MaxLen
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := fetch(link.URL, timeout)
		done <- result{text, err}
	}()

	var text string
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("cannot fetch %s: %w", link.URL, r.err)
		}
		text = strings.TrimSpace(r.text)
	}
	if text == "" {
		return "", fmt.Errorf("no readable content at %s", link.URL)
	}
	return fmt.Sprintf("EXTERNAL RESOURCE: %s\nCONTENT:\n%s", link.URL, truncate(text, maxLen)), nil
}

// Snapshots fetches every link in order. Links that cannot be read are logged
// and skipped.
func (f *Fetcher) Snapshots(ctx context.Context, links []finsight.Link) []string {
	var texts []string
	for _, l := range links {
		text, err := f.Snapshot(ctx, l)
		if err != nil {
			logrus.WithError(err).WithField("url", l.URL).Warn("link skipped")
			continue
		}
		texts = append(texts, text)
	}
	return texts
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s + " [...]"
}
