// Package finsight provides the data model of a financial-document analysis
// tool backed by a hosted generation model (Gemini). It is designed to be
// local-first: documents, saved reports and the memory vault of extracted
// facts never leave the user's workspace except to be sent to the model.
//
// The core functionalities include:
//   - Documents and links: the evidence submitted to an analysis, each
//     document carrying its MIME type and a classification.
//   - Comparison results: the structured output of an analysis (metrics,
//     alerts, forecasts, risk scorecard, insights) with strict validation of
//     every enumerated field and numeric range.
//   - Memory vault items: per-document facts extracted once and re-injected as
//     historical context into later analyses.
//   - Saved reports and what-if scenarios.
//   - An error taxonomy shared by every package of the module.
//
// This package serves as the foundation of the `finsight` command-line tool
// and of its HTTP API, the subpackages implement the schema contracts, the
// prompt builder, the generation client and the local stores.
package finsight
