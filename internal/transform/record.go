// Package transform turns a single access log line into JSON.
package transform

// AccessLogRecord is the JSON document produced for a parsed line.
// Timestamp and TimestampUTC are the same instant.
type AccessLogRecord struct {
	Host         string `json:"host"`
	Ident        string `json:"ident"`
	AuthUser     string `json:"authuser"`
	Timestamp    string `json:"@timestamp"`
	TimestampUTC string `json:"@timestamp_utc"`
	Request      string `json:"request"`
	Response     uint32 `json:"response"`
	Bytes        uint32 `json:"bytes"`
}
