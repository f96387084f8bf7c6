package finsight

// FinancialFact is a data point extracted from a document.
type FinancialFact struct {
	Metric      string `json:"metric"`
	Value       string `json:"value"`
	DateContext string `json:"dateContext"`
	SourceDoc   string `json:"sourceDoc,omitempty"`
}

// FactExtraction is the model's answer to a fact extraction request.
type FactExtraction struct {
	Summary string          `json:"summary"`
	Facts   []FinancialFact `json:"facts"`
}

// VaultItem is the memory of one indexed document. Immutable once created.
type VaultItem struct {
	ID          string          `json:"id"`
	FileName    string          `json:"fileName"`
	DateIndexed string          `json:"dateIndexed"` // RFC 3339
	DocType     DocumentType    `json:"docType"`
	Facts       []FinancialFact `json:"facts"`
	Summary     string          `json:"summary"`
}

// Key returns the item identifier.
func (v VaultItem) Key() string { return v.ID }
