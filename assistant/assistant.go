// Package assistant is the conversational financial assistant: a chat with
// the model about the uploaded documents, able to look up the memory vault
// and the saved reports.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/gemini"
	"google.golang.org/genai"
)

// DefaultMaxCalls bounds the function call rounds of a single question.
const DefaultMaxCalls = 5

// Welcome is the first message of every conversation.
const Welcome = "Hello! I am your FinSight AI assistant. Upload documents and I can answer questions about them, compare details, or summarize specific sections."

// Opener opens a chat session. *gemini.Client implements it.
type Opener interface {
	NewChat(ctx context.Context, tools []*genai.Tool, history []*genai.Content) (gemini.ChatSession, error)
}

// Assistant is one conversation. The chat keeps what was sent, so the
// documents go out once, with the first question after they were attached.
type Assistant struct {
	MaxCalls int // DefaultMaxCalls when zero

	opener    Opener
	functions []Function
	library   Library

	mu      sync.Mutex // serializes questions
	chat    gemini.ChatSession
	docs    []finsight.Document
	pending bool // docs not sent yet
	history []finsight.ChatMessage
}

// New returns an assistant offering functions to the model. The chat is
// opened on the first question.
func New(opener Opener, docs []finsight.Document, functions ...Function) *Assistant {
	return &Assistant{
		docs:      docs,
		pending:   len(docs) > 0,
		opener:    opener,
		functions: functions,
		library:   NewLibrary(functions),
		history:   []finsight.ChatMessage{finsight.NewChatMessage(finsight.RoleModel, Welcome)},
	}
}

// History returns a copy of the conversation so far.
func (a *Assistant) History() []finsight.ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]finsight.ChatMessage(nil), a.history...)
}

// Attach replaces the documents, they are sent with the next question.
func (a *Assistant) Attach(docs []finsight.Document) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs = docs
	a.pending = len(docs) > 0
}

func (a *Assistant) start(ctx context.Context) error {
	if a.chat != nil {
		return nil
	}
	var tools []*genai.Tool
	if len(a.functions) > 0 {
		tools = []*genai.Tool{{FunctionDeclarations: NewDeclarations(a.functions)}}
	}
	chat, err := a.opener.NewChat(ctx, tools, nil)
	if err != nil {
		return err
	}
	a.chat = chat
	return nil
}

// Ask sends a question and returns the answer text, resolving the function
// calls requested by the model on the way.
func (a *Assistant) Ask(ctx context.Context, question string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.start(ctx); err != nil {
		return "", err
	}

	var parts []*genai.Part
	if a.pending {
		for _, d := range a.docs {
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: d.Data, MIMEType: d.MIMEType}})
		}
	}
	parts = append(parts, &genai.Part{Text: question})

	maxCalls := a.MaxCalls
	if maxCalls <= 0 {
		maxCalls = DefaultMaxCalls
	}
	for round := 0; ; round++ {
		resp, err := a.chat.Send(ctx, parts...)
		if err != nil {
			return "", err
		}
		a.pending = false
		content, err := firstContent(resp)
		if err != nil {
			return "", err
		}
		calls := functionCalls(content)
		if len(calls) == 0 {
			answer := text(content)
			a.history = append(a.history,
				finsight.NewChatMessage(finsight.RoleUser, question),
				finsight.NewChatMessage(finsight.RoleModel, answer))
			return answer, nil
		}
		if round >= maxCalls {
			return "", finsight.Errorf(finsight.KindResponseShape, gemini.OpChat, "more than %d function call rounds", maxCalls)
		}
		parts = make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			parts = append(parts, &genai.Part{FunctionResponse: a.library(ctx, call)})
		}
	}
}

func firstContent(resp *genai.GenerateContentResponse) (*genai.Content, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, finsight.NewError(finsight.KindResponseShape, gemini.OpChat, errors.New("no response from Gemini"))
	}
	return resp.Candidates[0].Content, nil
}

func functionCalls(c *genai.Content) []*genai.FunctionCall {
	var calls []*genai.FunctionCall
	for _, p := range c.Parts {
		if p != nil && p.FunctionCall != nil {
			calls = append(calls, p.FunctionCall)
		}
	}
	return calls
}

func text(c *genai.Content) string {
	var b strings.Builder
	for _, p := range c.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// Transcript renders the conversation as markdown.
func Transcript(history []finsight.ChatMessage) string {
	var b strings.Builder
	for _, m := range history {
		who := "**You**"
		if m.Role == finsight.RoleModel {
			who = "**FinSight**"
		}
		fmt.Fprintf(&b, "%s (%s): %s\n\n", who, m.Timestamp.Format("15:04"), m.Text)
	}
	return b.String()
}
