package artifact

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	uptime "store-monitor/internal/uptime/domain"
)

// ErrInvalidReportID is returned for ids that cannot name an artifact.
var ErrInvalidReportID = errors.New("artifact: invalid report id")

// WriteCSV writes the header and rows in report column order.
func WriteCSV(w io.Writer, rows []uptime.ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(uptime.ReportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses an artifact written by WriteCSV.
func ReadCSV(r io.Reader) ([]uptime.ReportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(uptime.ReportHeader)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("artifact: empty report")
		}
		return nil, err
	}
	if strings.Join(header, ",") != strings.Join(uptime.ReportHeader, ",") {
		return nil, fmt.Errorf("artifact: unexpected header %v", header)
	}
	var rows []uptime.ReportRow
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row, err := uptime.ParseReportRecord(record)
		if err != nil {
			return nil, fmt.Errorf("artifact: line %d: %w", len(rows)+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FileName returns the artifact name for reportID.
func FileName(reportID string) (string, error) {
	if reportID == "" || reportID != path.Base(reportID) || strings.ContainsAny(reportID, `/\`) || strings.HasPrefix(reportID, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidReportID, reportID)
	}
	return reportID + ".csv", nil
}
