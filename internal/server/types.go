package server

// PingResponse is the health check response
type PingResponse struct {
	Uptime   float64 `json:"uptime"`
	Version  string  `json:"version"`
	BuildID  string  `json:"build_id"`
	Root     string  `json:"root"`
	Requests int64   `json:"requests"`
}

// ErrorResponse is the body of every non-2xx search response.
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
	// Key names the offending filter or parameter for parse errors.
	Key string `json:"key,omitempty"`
	// Location is the unusable search scope for scope errors.
	Location string `json:"location,omitempty"`
}

// IgnoredHeader lists the filters dropped from q, as Key:Value pairs
// separated by commas.
const IgnoredHeader = "X-Filesearch-Ignored"
