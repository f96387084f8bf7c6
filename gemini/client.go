// Package gemini is the generation client: it sends documents and prompts to
// the Gemini API and decodes the structured responses.
//
// A Client never fails to build. The credential is only checked when an
// operation is attempted, and the SDK client is created on first use.
package gemini

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/etnz/finsight"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// DefaultTimeout bounds every call when Config.Timeout is zero.
const DefaultTimeout = 2 * time.Minute

// Config is the generation client configuration.
type Config struct {
	APIKey            string
	Model             string
	Timeout           time.Duration // DefaultTimeout when zero, negative to disable
	RequestsPerMinute int           // unlimited when zero
}

// Generator is the subset of the SDK used by the client.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Option customizes a Client.
type Option func(*Client)

// WithGenerator replaces the SDK backend, the credential is still required.
func WithGenerator(g Generator) Option {
	return func(c *Client) { c.gen = g }
}

// WithChatter replaces the SDK chat backend.
func WithChatter(ch Chatter) Option {
	return func(c *Client) { c.chatter = ch }
}

// Client performs the generation calls.
type Client struct {
	cfg     Config
	limiter *rate.Limiter
	log     *logrus.Entry

	mu      sync.Mutex // guards the lazy SDK handles
	sdk     *genai.Client
	gen     Generator
	chatter Chatter
}

// New returns a client. It does not validate the configuration nor touch the network.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{cfg: cfg, log: logrus.WithField("component", "gemini")}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model name used by the client.
func (c *Client) Model() string { return c.cfg.Model }

// Configured reports whether a credential is present.
func (c *Client) Configured() bool { return strings.TrimSpace(c.cfg.APIKey) != "" }

func (c *Client) checkConfig(op string) error {
	if !c.Configured() {
		return finsight.NewError(finsight.KindConfiguration, op,
			errors.New("GEMINI_API_KEY is missing. Please set this environment variable or the gemini.api_key setting"))
	}
	return nil
}

// client returns the lazily created SDK client.
func (c *Client) client(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sdk != nil {
		return c.sdk, nil
	}
	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	c.sdk = sdk
	return sdk, nil
}

func (c *Client) generator(ctx context.Context) (Generator, error) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	if gen != nil {
		return gen, nil
	}
	sdk, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	return sdk.Models, nil
}

// prepare checks the credential, waits for the rate limiter and applies the timeout.
func (c *Client) prepare(ctx context.Context, op string) (context.Context, context.CancelFunc, error) {
	if err := c.checkConfig(op); err != nil {
		return nil, nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, finsight.NewError(finsight.KindTransport, op, err)
		}
	}
	if c.cfg.Timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	return ctx, cancel, nil
}

// generate performs a single GenerateContent call and returns the response text.
func (c *Client) generate(ctx context.Context, op string, parts []*genai.Part, config *genai.GenerateContentConfig) (string, error) {
	ctx, cancel, err := c.prepare(ctx, op)
	if err != nil {
		return "", err
	}
	defer cancel()

	gen, err := c.generator(ctx)
	if err != nil {
		return "", finsight.NewError(finsight.KindTransport, op, err)
	}

	start := time.Now()
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := gen.GenerateContent(ctx, c.cfg.Model, contents, config)
	if err != nil {
		c.log.WithError(err).WithField("op", op).Error("generation call failed")
		return "", finsight.NewError(finsight.KindTransport, op, err)
	}
	c.log.WithFields(logrus.Fields{"op": op, "model": c.cfg.Model, "elapsed": time.Since(start).Round(time.Millisecond)}).Debug("generation call done")

	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", finsight.NewError(finsight.KindResponseShape, op, errors.New("no response from Gemini"))
	}
	return text, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func blob(doc finsight.Document) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{Data: doc.Data, MIMEType: doc.MIMEType}}
}

func system(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}
