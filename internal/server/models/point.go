package models

import "time"

// Point is a single time-series sample written into a tenant namespace.
// Timestamp is optional; the store stamps the point at write time when zero.
type Point struct {
	Measurement string            `json:"measurement"`
	Tags        map[string]string `json:"tags,omitempty"`
	Fields      map[string]any    `json:"fields"`
	Timestamp   time.Time         `json:"timestamp,omitempty"`
}

// QueryResult is a columnar time-series result: one row per matching point,
// with the selected field value in the last column.
type QueryResult struct {
	Columns []string `json:"columns"`
	Values  [][]any  `json:"values"`
}
