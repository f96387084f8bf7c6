package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/export"
	"github.com/etnz/finsight/renderer"
	"github.com/etnz/finsight/report"
	"github.com/etnz/finsight/session"
)

type analyzeResponse struct {
	Result  *finsight.ComparisonResult `json:"result"`
	Sources []string                   `json:"sources"`
	Report  *finsight.SavedReport      `json:"report,omitempty"`
}

// documents reads the uploaded files, types holds their classification in
// the same order (FINANCIAL_REPORT when missing).
func documents(files []*multipart.FileHeader, types []string) ([]finsight.Document, error) {
	docs := make([]finsight.Document, 0, len(files))
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("cannot open %q: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot read %q: %w", fh.Filename, err)
		}
		doc := finsight.NewDocument(fh.Filename, finsight.DetectMIMEType(fh.Filename, data), data)
		if i < len(types) && strings.TrimSpace(types[i]) != "" {
			if doc.Type, err = finsight.ParseDocumentType(types[i]); err != nil {
				return nil, err
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func boolValue(r *http.Request, key string, def bool) (bool, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, v)
	}
	return b, nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse upload form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	docs, err := documents(r.MultipartForm.File["files"], r.MultipartForm.Value["types"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req := session.Request{Documents: docs}
	for _, raw := range r.MultipartForm.Value["links"] {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		link, err := finsight.NewLink(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		req.Links = append(req.Links, link)
	}
	if req.Mode, err = finsight.ParseAnalysisMode(r.FormValue("mode")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.UseVault, err = boolValue(r, "useVault", true); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.FetchLinks, err = boolValue(r, "fetchLinks", false); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sess := s.session(r)
	a, err := sess.Analyze(r.Context(), req)
	if err != nil {
		fail(w, err)
		return
	}
	resp := analyzeResponse{Result: a.Result, Sources: a.Sources}
	if title, ok := r.MultipartForm.Value["save"]; ok {
		saved, err := sess.Save(strings.Join(title, " "), a.Result, a.Sources)
		if err != nil {
			fail(w, err)
			return
		}
		resp.Report = &saved
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVault(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.session(r).Vault.Items()})
}

func (s *Server) handleVaultClear(w http.ResponseWriter, r *http.Request) {
	if err := s.session(r).Vault.Clear(); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVaultContext(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, s.session(r).Vault.Retrieve())
}

func (s *Server) handleVaultIndex(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse upload form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("no files provided"))
		return
	}
	docs, err := documents(files, r.MultipartForm.Value["types"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	items, err := s.session(r).Index(r.Context(), docs)
	if err != nil {
		// the documents before the failure stay indexed
		writeJSON(w, status(err), map[string]any{"error": err.Error(), "items": items})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session(r).Reports.List())
}

type saveRequest struct {
	Title     string                     `json:"title"`
	Result    *finsight.ComparisonResult `json:"result"`
	FileNames []string                   `json:"fileNames"`
}

func (s *Server) handleReportSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Result != nil {
		if err := req.Result.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	// without result the last analysis of the session is saved
	saved, err := s.session(r).Save(req.Title, req.Result, req.FileNames)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) (finsight.SavedReport, bool) {
	id := chi.URLParam(r, "id")
	rep, ok := s.session(r).Reports.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no saved report with id %q", id))
	}
	return rep, ok
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusOK, rep)
		return
	}
	v, err := report.Query(rep, q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleReportDelete(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	s.session(r).Reports.Delete(rep.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReportExport(w http.ResponseWriter, r *http.Request) {
	format, ok := strings.CutPrefix(chi.URLParam(r, "file"), "export.")
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown resource %q", chi.URLParam(r, "file")))
		return
	}
	rep, ok := s.report(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	var contentType string
	switch format {
	case "pdf":
		kind, err := export.ParseKind(r.URL.Query().Get("kind"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		date, _ := time.Parse(time.RFC3339, rep.Date)
		if err := export.PDF(&buf, &rep.Result, export.Options{Kind: kind, Date: date, Currency: s.options.Currency}); err != nil {
			fail(w, err)
			return
		}
		contentType = "application/pdf"
	case "xlsx":
		if err := export.Workbook(&buf, &rep.Result); err != nil {
			fail(w, err)
			return
		}
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "md":
		buf.WriteString(renderer.RenderSavedReport(rep, s.options))
		contentType = "text/markdown; charset=utf-8"
	case "html":
		page, err := renderer.HTML(rep.Title, renderer.RenderSavedReport(rep, s.options))
		if err != nil {
			fail(w, err)
			return
		}
		buf.Write(page)
		contentType = "text/html; charset=utf-8"
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown export format %q, use pdf, xlsx, md or html", format))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "FinSight_Report_"+rep.ID+"."+format))
	_, _ = w.Write(buf.Bytes())
}

type scenarioRequest struct {
	ReportID  string                     `json:"reportId"`
	Result    *finsight.ComparisonResult `json:"result"`
	Modifiers finsight.ScenarioModifiers `json:"modifiers"`
}

type scenarioResponse struct {
	Modifiers finsight.ScenarioModifiers `json:"modifiers"`
	Result    *finsight.ScenarioResult   `json:"result"`
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := req.Modifiers.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess := s.session(r)
	result := req.Result
	if req.ReportID != "" {
		rep, ok := sess.Reports.Get(req.ReportID)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("no saved report with id %q", req.ReportID))
			return
		}
		result = &rep.Result
	}
	res, err := sess.Simulate(r.Context(), result, req.Modifiers)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scenarioResponse{Modifiers: req.Modifiers, Result: res})
}

func (s *Server) handleMarketplace(w http.ResponseWriter, r *http.Request) {
	c := s.session(r).Catalog
	writeJSON(w, http.StatusOK, map[string]any{"plugins": c.Plugins(), "integrations": c.Integrations()})
}

func (s *Server) handlePluginToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	active, err := s.session(r).Catalog.TogglePlugin(id)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": active})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	i, err := s.session(r).Connect(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, i)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.session(r).Catalog.Disconnect(chi.URLParam(r, "id")); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, errors.New("empty message"))
		return
	}
	reply, err := s.session(r).Chat(r.Context(), req.Message)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}
