package syncapi

// StatusResponse represents GET /sync/status
type StatusResponse struct {
	IsSyncing    bool    `json:"is_syncing"`
	TotalEmails  int     `json:"total_emails"`
	LastSync     *string `json:"last_sync"`
	HasHistoryID bool    `json:"has_history_id"`
}

// ProgressResponse represents GET /sync/progress
type ProgressResponse struct {
	IsSyncing bool    `json:"is_syncing"`
	Synced    int     `json:"synced"`
	Total     int     `json:"total"`
	Pct       float64 `json:"pct,omitempty"` // Server-side rounding, ignored
	Error     *string `json:"error"`
}

// LiveCountResponse represents GET /sync/live-count
type LiveCountResponse struct {
	Count int `json:"count"`
}

// LogLine is one entry of either log source
type LogLine struct {
	Level  string  `json:"level"`
	Line   string  `json:"line"`
	TS     *string `json:"ts"`
	Source string  `json:"source,omitempty"`
}

// LogsResponse represents GET /sync/logs
type LogsResponse struct {
	ScriptLines     []LogLine `json:"script_lines"`
	APILogs         []LogLine `json:"api_logs"`
	ScriptLogExists bool      `json:"script_log_exists"`
}

// StartRequest is the body of POST /sync/start
type StartRequest struct {
	MaxEmails int  `json:"max_emails"`
	DaysAgo   *int `json:"days_ago"`
}

// AutoSyncRequest is the body of POST /sync/auto
type AutoSyncRequest struct {
	Enabled bool `json:"enabled"`
}

// AutoSyncResponse represents GET and POST /sync/auto
type AutoSyncResponse struct {
	Enabled       bool    `json:"enabled"`
	IntervalHours float64 `json:"interval_hours"`
	NextRun       *string `json:"next_run"`
}

// MessageResponse is the acknowledgement returned by start endpoints
type MessageResponse struct {
	Message string `json:"message"`
}

// CategorizeResponse represents POST /sync/categorize
type CategorizeResponse struct {
	Updated    int            `json:"updated"`
	Categories map[string]int `json:"categories"`
}

// MeResponse represents GET /auth/me
type MeResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}
