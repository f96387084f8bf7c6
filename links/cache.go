package links

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/sirupsen/logrus"
)

// diskCache stores successful GET responses under dir. Keys include the day,
// so cached pages expire daily.
type diskCache struct {
	dir  string
	base http.RoundTripper
	now  func() time.Time
}

func (c *diskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return c.base.RoundTrip(req)
	}
	key := fmt.Sprintf("%s %s", c.now().Format(time.DateOnly), req.URL.String())
	file := filepath.Join(c.dir, fmt.Sprintf("%x", sha1.Sum([]byte(key))))

	if content, err := os.ReadFile(file); err == nil {
		if resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req); err == nil {
			return resp, nil
		}
	}

	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"url": req.URL.String(), "status": resp.Status}).Debug("link fetched")
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	// DumpResponse reads the body and replaces it with an in-memory copy.
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return nil, err
	}
	if err := c.put(file, content); err != nil {
		logrus.WithError(err).Warn("link cache write ignored")
	}
	return resp, nil
}

func (c *diskCache) put(file string, content []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(file, content, 0o644)
}

// Cached returns a FetchFunc that keeps a daily copy of every page under dir.
func Cached(dir string) FetchFunc {
	client := &http.Client{Transport: &diskCache{dir: dir, base: http.DefaultTransport, now: time.Now}}
	return func(page string, timeout time.Duration) (string, error) {
		return fetchWith(client, page, timeout)
	}
}

func fetchWith(client *http.Client, page string, timeout time.Duration) (string, error) {
	u, err := url.Parse(page)
	if err != nil {
		return "", err
	}
	c := *client
	c.Timeout = timeout
	resp, err := c.Get(page)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cannot http GET %v%v: %v", u.Host, u.Path, resp.Status)
	}
	article, err := readability.FromReader(resp.Body, u)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}
