package reportserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"cukereport/internal/resultsdb"
	"cukereport/internal/summary"
	"cukereport/pkg/listener"
)

// NewHandler builds the HTTP handler serving the report page and JSON API
// over a results store.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Store == nil {
		return nil, errors.New("reportserver: store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{store: cfg.Store, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.serveIndex)
	mux.HandleFunc("GET /api/summary", h.serveSummary)
	mux.HandleFunc("GET /api/cases", h.serveCases)
	mux.HandleFunc("GET /api/cases/{uuid}/steps", h.serveSteps)
	mux.HandleFunc("GET /api/history/{historyID}", h.serveHistory)
	mux.HandleFunc("GET /api/attachments/{source}", h.serveAttachment)
	return mux, nil
}

type handler struct {
	store  *resultsdb.Store
	logger *slog.Logger
}

// historyResponse pairs aggregate stats with the individual runs.
type historyResponse struct {
	Stats resultsdb.HistoryStats `json:"stats"`
	Runs  []resultsdb.CaseRow    `json:"runs"`
}

// serveIndex renders the summary page from the stored cases.
func (h *handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	cases, err := h.store.Cases(r.Context(), "")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	templ.Handler(summary.Page(reportFromRows(cases))).ServeHTTP(w, r)
}

func (h *handler) serveSummary(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Summary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) serveCases(w http.ResponseWriter, r *http.Request) {
	status := listener.Status(r.URL.Query().Get("status"))
	cases, err := h.store.Cases(r.Context(), status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if cases == nil {
		cases = []resultsdb.CaseRow{}
	}
	writeJSON(w, http.StatusOK, cases)
}

func (h *handler) serveSteps(w http.ResponseWriter, r *http.Request) {
	steps, err := h.store.Steps(r.Context(), r.PathValue("uuid"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if steps == nil {
		steps = []resultsdb.StepRow{}
	}
	writeJSON(w, http.StatusOK, steps)
}

func (h *handler) serveHistory(w http.ResponseWriter, r *http.Request) {
	historyID := r.PathValue("historyID")
	stats, err := h.store.HistoryStats(r.Context(), historyID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	runs, err := h.store.History(r.Context(), historyID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Stats: stats, Runs: runs})
}

func (h *handler) serveAttachment(w http.ResponseWriter, r *http.Request) {
	data, mediaType, err := h.store.Attachment(r.Context(), r.PathValue("source"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mediaType)
	_, _ = w.Write(data)
}

// fail maps store errors to HTTP responses.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, resultsdb.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	h.logger.Error("report request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// reportFromRows builds the page model from stored case rows.
func reportFromRows(rows []resultsdb.CaseRow) summary.Report {
	report := summary.Report{Total: len(rows), Counts: map[listener.Status]int{}}
	for _, row := range rows {
		status := row.Status
		if status == "" {
			status = "unknown"
		}
		report.Counts[status]++
		line := summary.CaseLine{Name: row.Name, Status: status, Message: row.Message}
		for _, label := range row.Labels {
			if label.Name == "feature" {
				line.Feature = label.Value
				break
			}
		}
		report.Cases = append(report.Cases, line)
	}
	return report
}
