package store

import "time"

// TagSpend is the list-price cost of billable usage carrying a tag in a period.
type TagSpend struct {
	TagKey    string
	TagValue  string
	Amount    float64
	Currency  string
	StartTime time.Time
	EndTime   time.Time
}

// Dataset is a tabular query result. Values are normalized to string, float64,
// int64, bool or nil.
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]any
}
