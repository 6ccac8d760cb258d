package uptime

import (
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ReportHeader is the column order of the report artifact.
var ReportHeader = []string{
	"store_id",
	"uptime_last_hour",
	"uptime_last_day",
	"uptime_last_week",
	"downtime_last_hour",
	"downtime_last_day",
	"downtime_last_week",
}

// ReportRow is one store's line in the finished report.
// Hour values are whole minutes; day and week values are hours with 2 decimals.
type ReportRow struct {
	StoreID          string
	UptimeLastHour   int64
	UptimeLastDay    decimal.Decimal
	UptimeLastWeek   decimal.Decimal
	DowntimeLastHour int64
	DowntimeLastDay  decimal.Decimal
	DowntimeLastWeek decimal.Decimal
}

// NewReportRow converts raw tallies into presentation units.
func NewReportRow(storeID string, hour, day, week Tally) ReportRow {
	return ReportRow{
		StoreID:          storeID,
		UptimeLastHour:   roundMinutes(hour.Uptime),
		UptimeLastDay:    roundHours(day.Uptime),
		UptimeLastWeek:   roundHours(week.Uptime),
		DowntimeLastHour: roundMinutes(hour.Downtime),
		DowntimeLastDay:  roundHours(day.Downtime),
		DowntimeLastWeek: roundHours(week.Downtime),
	}
}

// Record renders the row in ReportHeader order.
func (r ReportRow) Record() []string {
	return []string{
		r.StoreID,
		strconv.FormatInt(r.UptimeLastHour, 10),
		r.UptimeLastDay.StringFixed(2),
		r.UptimeLastWeek.StringFixed(2),
		strconv.FormatInt(r.DowntimeLastHour, 10),
		r.DowntimeLastDay.StringFixed(2),
		r.DowntimeLastWeek.StringFixed(2),
	}
}

// ParseReportRecord is the inverse of Record.
func ParseReportRecord(record []string) (ReportRow, error) {
	if len(record) != len(ReportHeader) {
		return ReportRow{}, ErrInvalidReportRecord
	}
	var (
		row ReportRow
		err error
	)
	row.StoreID = record[0]
	if row.UptimeLastHour, err = strconv.ParseInt(record[1], 10, 64); err != nil {
		return ReportRow{}, err
	}
	if row.UptimeLastDay, err = decimal.NewFromString(record[2]); err != nil {
		return ReportRow{}, err
	}
	if row.UptimeLastWeek, err = decimal.NewFromString(record[3]); err != nil {
		return ReportRow{}, err
	}
	if row.DowntimeLastHour, err = strconv.ParseInt(record[4], 10, 64); err != nil {
		return ReportRow{}, err
	}
	if row.DowntimeLastDay, err = decimal.NewFromString(record[5]); err != nil {
		return ReportRow{}, err
	}
	if row.DowntimeLastWeek, err = decimal.NewFromString(record[6]); err != nil {
		return ReportRow{}, err
	}
	return row, nil
}

func roundMinutes(d time.Duration) int64 {
	return int64(math.Round(d.Minutes()))
}

var nanosPerHour = decimal.NewFromInt(int64(time.Hour))

func roundHours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(nanosPerHour).Round(2)
}
