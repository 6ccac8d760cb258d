package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"store-monitor/internal/observability/metrics"
	uptime "store-monitor/internal/uptime/domain"
	"store-monitor/internal/uptime/infrastructure/artifact"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// ReportService is the subset of the runner the endpoints need.
type ReportService interface {
	Trigger(ctx context.Context) (string, error)
	Retrigger(ctx context.Context, reportID string) (*uptime.Job, error)
	OpenReport(ctx context.Context, reportID string) (*uptime.Job, io.ReadCloser, error)
}

// Handler serves the trigger and poll endpoints.
type Handler struct {
	service ReportService
	logger  *zap.Logger
}

// NewHandler constructs a handler.
func NewHandler(service ReportService, logger *zap.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("report handler: nil service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}, nil
}

// Register mounts the endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", h.handleWelcome)
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/trigger_report", h.handleTrigger)
	mux.HandleFunc("/get_report", h.handleGetReport)
}

type triggerRequest struct {
	ReportID string `json:"report_id"`
}

type triggerResponse struct {
	ReportID string `json:"report_id"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) handleWelcome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "store monitor: POST /trigger_report, then GET /get_report?report_id=<id>"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req triggerRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
	}

	reportID := strings.TrimSpace(req.ReportID)
	if reportID == "" {
		id, err := h.service.Trigger(r.Context())
		if err != nil {
			h.logger.Error("trigger_report_failed", zap.String("report_id", id), zap.Error(err))
			if id == "" {
				http.Error(w, "trigger report error", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusServiceUnavailable, triggerResponse{ReportID: id, Status: string(uptime.JobRunning), Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, triggerResponse{ReportID: id})
		return
	}

	job, err := h.service.Retrigger(r.Context(), reportID)
	if err != nil {
		if errors.Is(err, uptime.ErrJobNotFound) {
			writeJSON(w, http.StatusNotFound, statusResponse{Status: "Unknown"})
			return
		}
		h.logger.Error("retrigger_report_failed", zap.String("report_id", reportID), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, triggerResponse{ReportID: reportID, Status: string(uptime.JobRunning), Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, triggerResponse{ReportID: job.ID, Status: string(job.Status)})
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	reportID := strings.TrimSpace(r.URL.Query().Get("report_id"))
	if reportID == "" {
		http.Error(w, "report_id is required", http.StatusBadRequest)
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX && format != FormatPDF {
		http.Error(w, "format must be csv, xlsx or pdf", http.StatusBadRequest)
		return
	}

	job, rc, err := h.service.OpenReport(r.Context(), reportID)
	switch {
	case errors.Is(err, uptime.ErrJobNotFound):
		writeJSON(w, http.StatusNotFound, statusResponse{Status: "Unknown"})
		return
	case errors.Is(err, uptime.ErrArtifactNotFound):
		h.logger.Error("report_artifact_missing", zap.String("report_id", reportID))
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: string(uptime.JobComplete), Error: "report artifact missing"})
		return
	case err != nil:
		h.logger.Error("get_report_failed", zap.String("report_id", reportID), zap.Error(err))
		http.Error(w, "get report error", http.StatusInternalServerError)
		return
	}
	if rc == nil {
		writeJSON(w, http.StatusOK, statusResponse{Status: string(job.Status)})
		return
	}
	defer rc.Close()

	if format == FormatCSV {
		h.serveCSV(w, reportID, rc)
		return
	}
	h.serveRendered(w, job, format, rc)
}

func (h *Handler) serveCSV(w http.ResponseWriter, reportID string, rc io.Reader) {
	name, err := artifact.FileName(reportID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
	if _, err := io.Copy(w, rc); err != nil {
		metrics.IncReportExport(FormatCSV, metrics.ResultError)
		h.logger.Warn("report_stream_interrupted", zap.String("report_id", reportID), zap.Error(err))
		return
	}
	metrics.IncReportExport(FormatCSV, metrics.ResultSuccess)
}

func (h *Handler) serveRendered(w http.ResponseWriter, job *uptime.Job, format string, rc io.Reader) {
	name, err := artifact.FileName(job.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name = strings.TrimSuffix(name, ".csv") + "." + format

	rows, err := artifact.ReadCSV(rc)
	if err != nil {
		metrics.IncReportExport(format, metrics.ResultError)
		h.logger.Error("report_artifact_unreadable", zap.String("report_id", job.ID), zap.Error(err))
		http.Error(w, "report artifact unreadable", http.StatusInternalServerError)
		return
	}

	var (
		body        []byte
		contentType string
	)
	switch format {
	case FormatXLSX:
		body, err = BuildReportXLSX(job, rows)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		body, err = BuildReportPDF(job, rows)
		contentType = "application/pdf"
	}
	if err != nil {
		metrics.IncReportExport(format, metrics.ResultError)
		h.logger.Error("report_render_failed", zap.String("report_id", job.ID), zap.String("format", format), zap.Error(err))
		http.Error(w, "render report error", http.StatusInternalServerError)
		return
	}
	metrics.IncReportExport(format, metrics.ResultSuccess)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
