package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	uptime "store-monitor/internal/uptime/domain"
	"store-monitor/internal/uptime/infrastructure/artifact"
)

type stubService struct {
	triggerID  string
	triggerErr error
	jobs       map[string]*uptime.Job
	artifacts  map[string][]byte
	retriggers []string
}

func (s *stubService) Trigger(context.Context) (string, error) {
	return s.triggerID, s.triggerErr
}

func (s *stubService) Retrigger(_ context.Context, reportID string) (*uptime.Job, error) {
	job, ok := s.jobs[reportID]
	if !ok {
		return nil, uptime.ErrJobNotFound
	}
	s.retriggers = append(s.retriggers, reportID)
	return job, nil
}

func (s *stubService) OpenReport(_ context.Context, reportID string) (*uptime.Job, io.ReadCloser, error) {
	job, ok := s.jobs[reportID]
	if !ok {
		return nil, nil, uptime.ErrJobNotFound
	}
	if job.Status != uptime.JobComplete {
		return job, nil, nil
	}
	body, ok := s.artifacts[reportID]
	if !ok {
		return job, nil, uptime.ErrArtifactNotFound
	}
	return job, io.NopCloser(bytes.NewReader(body)), nil
}

func newTestServer(t *testing.T) (*httptest.Server, *stubService) {
	t.Helper()
	completedAt := time.Date(2024, 1, 1, 16, 5, 0, 0, time.UTC)
	var csvBody bytes.Buffer
	rows := []uptime.ReportRow{{
		StoreID:          "S1",
		UptimeLastHour:   60,
		UptimeLastDay:    decimal.RequireFromString("7.00"),
		UptimeLastWeek:   decimal.RequireFromString("7.00"),
		DowntimeLastHour: 0,
		DowntimeLastDay:  decimal.RequireFromString("0.00"),
		DowntimeLastWeek: decimal.RequireFromString("0.00"),
	}}
	if err := artifact.WriteCSV(&csvBody, rows); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	svc := &stubService{
		triggerID: "r-new",
		jobs: map[string]*uptime.Job{
			"r-running": {ID: "r-running", Status: uptime.JobRunning},
			"r-done":    {ID: "r-done", Status: uptime.JobComplete, Attempts: 1, UpdatedAt: completedAt},
			"r-lost":    {ID: "r-lost", Status: uptime.JobComplete, Attempts: 1, UpdatedAt: completedAt},
		},
		artifacts: map[string][]byte{"r-done": csvBody.Bytes()},
	}
	handler, err := NewHandler(svc, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	mux := http.NewServeMux()
	handler.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, svc
}

func decodeBody(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestTriggerReturnsReportID(t *testing.T) {
	server, _ := newTestServer(t)
	resp, err := http.Post(server.URL+"/trigger_report", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["report_id"] != "r-new" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestTriggerQueueFullStillReturnsID(t *testing.T) {
	server, svc := newTestServer(t)
	svc.triggerErr = errors.New("queue full")
	resp, err := http.Post(server.URL+"/trigger_report", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["report_id"] != "r-new" || body["status"] != "Running" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRetrigger(t *testing.T) {
	server, svc := newTestServer(t)

	resp, err := http.Post(server.URL+"/trigger_report", "application/json", strings.NewReader(`{"report_id":"r-running"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if body := decodeBody(t, resp); resp.StatusCode != http.StatusOK || body["status"] != "Running" {
		t.Fatalf("unexpected retrigger response %d %v", resp.StatusCode, body)
	}
	if len(svc.retriggers) != 1 {
		t.Fatalf("expected one retrigger, got %v", svc.retriggers)
	}

	resp, err = http.Post(server.URL+"/trigger_report", "application/json", strings.NewReader(`{"report_id":"nope"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if body := decodeBody(t, resp); resp.StatusCode != http.StatusNotFound || body["status"] != "Unknown" {
		t.Fatalf("unexpected unknown response %d %v", resp.StatusCode, body)
	}

	resp, err = http.Post(server.URL+"/trigger_report", "application/json", strings.NewReader(`{`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", resp.StatusCode)
	}
}

func TestGetReportStatusFirst(t *testing.T) {
	server, _ := newTestServer(t)

	cases := []struct {
		id     string
		code   int
		status string
		errMsg string
	}{
		{id: "missing", code: http.StatusNotFound, status: "Unknown"},
		{id: "r-running", code: http.StatusOK, status: "Running"},
		{id: "r-lost", code: http.StatusInternalServerError, status: "Complete", errMsg: "report artifact missing"},
	}
	for _, tc := range cases {
		resp, err := http.Get(server.URL + "/get_report?report_id=" + tc.id)
		if err != nil {
			t.Fatalf("get %s: %v", tc.id, err)
		}
		if resp.StatusCode != tc.code {
			t.Fatalf("%s: expected %d, got %d", tc.id, tc.code, resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if body["status"] != tc.status || body["error"] != tc.errMsg {
			t.Fatalf("%s: unexpected body %v", tc.id, body)
		}
	}
}

func TestGetReportServesCSV(t *testing.T) {
	server, _ := newTestServer(t)
	resp, err := http.Get(server.URL + "/get_report?report_id=r-done")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "r-done.csv") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	body, _ := io.ReadAll(resp.Body)
	want := "store_id,uptime_last_hour,uptime_last_day,uptime_last_week,downtime_last_hour,downtime_last_day,downtime_last_week\nS1,60,7.00,7.00,0,0.00,0.00\n"
	if string(body) != want {
		t.Fatalf("unexpected csv:\n%s", body)
	}
}

func TestGetReportRendersXLSXAndPDF(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/get_report?report_id=r-done&format=xlsx")
	if err != nil {
		t.Fatalf("get xlsx: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	book, err := excelize.OpenReader(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	store, err := book.GetCellValue("stores", "A2")
	if err != nil || store != "S1" {
		t.Fatalf("unexpected store cell %q err=%v", store, err)
	}
	minutes, _ := book.GetCellValue("stores", "B2")
	if minutes != "60" {
		t.Fatalf("unexpected minutes cell %q", minutes)
	}

	resp, err = http.Get(server.URL + "/get_report?report_id=r-done&format=pdf")
	if err != nil {
		t.Fatalf("get pdf: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(body, []byte("%PDF")) {
		t.Fatalf("unexpected pdf response %d", resp.StatusCode)
	}
}

func TestGetReportRenderedNameIsChecked(t *testing.T) {
	server, svc := newTestServer(t)
	svc.jobs[".hidden"] = &uptime.Job{ID: ".hidden", Status: uptime.JobComplete, Attempts: 1}
	svc.artifacts[".hidden"] = svc.artifacts["r-done"]

	for _, format := range []string{"xlsx", "pdf"} {
		resp, err := http.Get(server.URL + "/get_report?report_id=.hidden&format=" + format)
		if err != nil {
			t.Fatalf("get %s: %v", format, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 for unsafe id, got %d", format, resp.StatusCode)
		}
	}

	resp, err := http.Get(server.URL + "/get_report?report_id=r-done&format=xlsx")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="r-done.xlsx"` {
		t.Fatalf("unexpected disposition %q", cd)
	}
}

func TestGetReportValidation(t *testing.T) {
	server, _ := newTestServer(t)
	for _, path := range []string{"/get_report", "/get_report?report_id=r-done&format=doc"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, resp.StatusCode)
		}
	}

	resp, err := http.Post(server.URL+"/get_report?report_id=r-done", "text/plain", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestWelcomeAndHealth(t *testing.T) {
	server, _ := newTestServer(t)
	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if body := decodeBody(t, resp); !strings.Contains(body["message"], "trigger_report") {
		t.Fatalf("unexpected welcome %v", body)
	}
	resp, err = http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp, err = http.Get(server.URL + "/nowhere")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
