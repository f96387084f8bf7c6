package assistant

import (
	"context"
	"fmt"

	"github.com/etnz/finsight/docs"
	"github.com/etnz/finsight/renderer"
	"github.com/etnz/finsight/report"
	"github.com/etnz/finsight/vault"
	"google.golang.org/genai"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// VaultFacts lets the model read the memory vault.
func VaultFacts(v *vault.Vault) Function {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "vault_facts",
			Description: `vault_facts returns the facts extracted from the documents the user indexed in the past.
Use it whenever the question is about history, trends or documents that are not attached to the conversation.

` + must(docs.GetTopic("vault")),
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {
						Type:        genai.TypeString,
						Description: "Optional case-insensitive term to restrict the documents by file name, summary or fact. Every document is returned when empty.",
					},
				},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "The vault content: for each document its name, date, summary and key facts.",
			},
		},
		Func: func(_ context.Context, args map[string]any) (string, error) {
			query, err := stringArg(args, "query")
			if err != nil {
				return "", err
			}
			if query == "" {
				if ctx := v.Retrieve(); ctx != "" {
					return ctx, nil
				}
				return "The vault is empty.", nil
			}
			return renderer.VaultMarkdown(v.Search(query)), nil
		},
	}
}

// SavedReports lets the model read the reports saved by the user.
func SavedReports(s *report.Store, opts renderer.Options) Function {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "saved_reports",
			Description: `saved_reports lists the analyses saved by the user, most recent first, or returns one of them in full.
Call it without arguments to get the list with the report IDs, then with an ID to read a report.`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"id": {
						Type:        genai.TypeString,
						Description: "Optional report ID. When set the full report is returned.",
					},
				},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown table of the saved reports, or a single report in markdown.",
			},
		},
		Func: func(_ context.Context, args map[string]any) (string, error) {
			id, err := stringArg(args, "id")
			if err != nil {
				return "", err
			}
			if id == "" {
				return renderer.ReportsMarkdown(s.List()), nil
			}
			r, ok := s.Get(id)
			if !ok {
				return "", fmt.Errorf("no saved report with id %q", id)
			}
			return renderer.RenderSavedReport(r, opts), nil
		},
	}
}
