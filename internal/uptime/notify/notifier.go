package notify

import "context"

// ReportMessage announces a finished report.
type ReportMessage struct {
	ReportID    string            `json:"report_id"`
	ReportURL   string            `json:"report_url"`
	Stores      int               `json:"stores"`
	Anchor      string            `json:"anchor"`
	Attempts    int               `json:"attempts"`
	CompletedAt string            `json:"completed_at"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// Notifier sends notifications.
type Notifier interface {
	Notify(ctx context.Context, msg ReportMessage) error
}
