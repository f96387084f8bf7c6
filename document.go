package finsight

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DocumentType is the classification assigned to a submitted document.
type DocumentType string

const (
	FinancialReport DocumentType = "FINANCIAL_REPORT"
	Invoice         DocumentType = "INVOICE"
	Contract        DocumentType = "CONTRACT"
	BankStatement   DocumentType = "BANK_STATEMENT"
	OtherDocument   DocumentType = "OTHER"
)

// DocumentTypes lists every classification in display order.
var DocumentTypes = []DocumentType{FinancialReport, Invoice, Contract, BankStatement, OtherDocument}

// ParseDocumentType parses a classification. Matching is case-insensitive.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range DocumentTypes {
		if v == t {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid document type %q, expected one of %v", s, DocumentTypes)
}

// OrOther returns t, or OtherDocument when t is empty.
func (t DocumentType) OrOther() DocumentType {
	if t == "" {
		return OtherDocument
	}
	return t
}

// Status is the lifecycle of a submitted document.
type Status string

const (
	StatusUploading Status = "uploading"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

// Document is a file submitted as evidence: its bytes are attached inline to
// the generation request together with the MIME type.
type Document struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	MIMEType string       `json:"mimeType"`
	Data     []byte       `json:"-"`
	Progress int          `json:"progress"`
	Status   Status       `json:"status"`
	Type     DocumentType `json:"docType"`
}

// NewDocument returns a ready to submit document classified as a financial report.
func NewDocument(name, mimeType string, data []byte) Document {
	if mimeType == "" {
		mimeType = DetectMIMEType(name, data)
	}
	return Document{
		ID:       uuid.NewString(),
		Name:     name,
		MIMEType: mimeType,
		Data:     data,
		Progress: 100,
		Status:   StatusDone,
		Type:     FinancialReport,
	}
}

// ReadDocument loads a document from the local filesystem.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("cannot read document %q: %w", path, err)
	}
	return NewDocument(filepath.Base(path), "", data), nil
}

// DetectMIMEType guesses the MIME type from the file extension first, and
// from the content otherwise.
func DetectMIMEType(name string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		// drop parameters like "; charset=utf-8"
		if base, _, err := mime.ParseMediaType(t); err == nil {
			return base
		}
		return t
	}
	t := http.DetectContentType(data)
	if base, _, err := mime.ParseMediaType(t); err == nil {
		return base
	}
	return t
}

// Ready reports whether the document can be sent to the model.
func (d Document) Ready() bool { return d.Status == StatusDone && len(d.Data) > 0 }

// Link is a URL provided as an additional, non-file evidence source.
type Link struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// NewLink validates raw as an absolute http(s) URL.
func NewLink(raw string) (Link, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Link{}, errors.New("empty link")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("invalid link %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return Link{}, fmt.Errorf("invalid link %q: must be an absolute http(s) URL", raw)
	}
	return Link{ID: uuid.NewString(), URL: u.String()}, nil
}

// SourceNames returns the names recorded in a saved report: document names
// followed by link URLs.
func SourceNames(docs []Document, links []Link) []string {
	names := make([]string, 0, len(docs)+len(links))
	for _, d := range docs {
		names = append(names, d.Name)
	}
	for _, l := range links {
		names = append(names, l.URL)
	}
	return names
}
