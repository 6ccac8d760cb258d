package uptime

import "errors"

var (
	// ErrNoData is returned when the anchor is requested for an empty event set.
	ErrNoData = errors.New("uptime: no status events")
	// ErrInvalidTimezone is returned when a timezone name cannot be resolved.
	ErrInvalidTimezone = errors.New("uptime: invalid timezone")
	// ErrJobNotFound is returned when a report id is unknown.
	ErrJobNotFound = errors.New("uptime: report job not found")
	// ErrInvalidWindow is returned when a window does not satisfy start < end.
	ErrInvalidWindow = errors.New("uptime: invalid window")
	// ErrInvalidStatus is returned when a status string is not active/inactive.
	ErrInvalidStatus = errors.New("uptime: invalid status")
	// ErrInvalidTimeOfDay is returned when a local time cannot be parsed.
	ErrInvalidTimeOfDay = errors.New("uptime: invalid local time")
	// ErrInvalidDayOfWeek is returned when a day index is outside [0,6].
	ErrInvalidDayOfWeek = errors.New("uptime: invalid day of week")
	// ErrInvalidReportRecord is returned when a report line has the wrong shape.
	ErrInvalidReportRecord = errors.New("uptime: invalid report record")
	// ErrArtifactNotFound is returned when a report has no stored artifact.
	ErrArtifactNotFound = errors.New("uptime: report artifact not found")
	// ErrEmptyStoreID is returned when a record carries no store id.
	ErrEmptyStoreID = errors.New("uptime: empty store id")
)
