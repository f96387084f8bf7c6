package gemini

import (
	"context"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/prompt"
	"google.golang.org/genai"
)

// ChatSession is a conversation keeping its own history.
type ChatSession interface {
	Send(ctx context.Context, parts ...*genai.Part) (*genai.GenerateContentResponse, error)
}

// Chatter opens conversations.
type Chatter interface {
	NewChat(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (ChatSession, error)
}

type sdkChatter struct{ client *genai.Client }

func (s sdkChatter) NewChat(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (ChatSession, error) {
	return s.client.Chats.Create(ctx, model, config, history)
}

func (c *Client) chatBackend(ctx context.Context) (Chatter, error) {
	c.mu.Lock()
	ch := c.chatter
	c.mu.Unlock()
	if ch != nil {
		return ch, nil
	}
	sdk, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	return sdkChatter{sdk}, nil
}

// NewChat opens a conversation with the assistant persona. Tools are offered
// to the model as is, the caller resolves function calls.
func (c *Client) NewChat(ctx context.Context, tools []*genai.Tool, history []*genai.Content) (ChatSession, error) {
	if err := c.checkConfig(OpChat); err != nil {
		return nil, err
	}
	backend, err := c.chatBackend(ctx)
	if err != nil {
		return nil, finsight.NewError(finsight.KindTransport, OpChat, err)
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: system(prompt.SystemAssistant),
		Tools:             tools,
	}
	s, err := backend.NewChat(ctx, c.cfg.Model, config, history)
	if err != nil {
		return nil, finsight.NewError(finsight.KindTransport, OpChat, err)
	}
	return &chat{client: c, session: s}, nil
}

// chat applies the rate limit and the timeout to every message.
type chat struct {
	client  *Client
	session ChatSession
}

func (ch *chat) Send(ctx context.Context, parts ...*genai.Part) (*genai.GenerateContentResponse, error) {
	ctx, cancel, err := ch.client.prepare(ctx, OpChat)
	if err != nil {
		return nil, err
	}
	defer cancel()
	resp, err := ch.session.Send(ctx, parts...)
	if err != nil {
		return nil, finsight.NewError(finsight.KindTransport, OpChat, err)
	}
	return resp, nil
}
