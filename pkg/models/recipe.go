package models

import "strings"

// Family is a coarse log format category. The wire values are kept
// compatible with the logformat side-car files consumed by downstream
// filtering and visualization tools.
type Family string

const (
	// FamilyLoadBalancer is AWS ALB access log style.
	FamilyLoadBalancer Family = "ALB"
	// FamilyWebServer is Apache/Nginx common or combined log style.
	FamilyWebServer Family = "HTTPD"
	// FamilyJSON is JSON-lines.
	FamilyJSON Family = "JSON"
	// FamilyCustom is anything else, matched by a custom or grok pattern.
	FamilyCustom Family = "GROK"
)

// IsValid returns true for the four known families.
func (x Family) IsValid() bool {
	switch x {
	case FamilyLoadBalancer, FamilyWebServer, FamilyJSON, FamilyCustom:
		return true
	}
	return false
}

// ColumnType is a primitive type of a recipe column.
type ColumnType string

const (
	ColumnString   ColumnType = "str"
	ColumnInt      ColumnType = "int"
	ColumnFloat    ColumnType = "float"
	ColumnDatetime ColumnType = "datetime"
)

// TimezoneFromLog is the timezone sentinel meaning the offset is embedded
// in each log line.
const TimezoneFromLog = "fromLog"

// Recipe describes how to parse one log file. It is persisted as a JSON
// side-car file (logformat_*.json) next to the input and is the only
// contract with downstream consumers.
type Recipe struct {
	LogFormatFile    string                `json:"logFormatFile"`
	LogPattern       string                `json:"logPattern"`
	PatternType      Family                `json:"patternType"`
	Columns          []string              `json:"columns,omitempty"`
	ColumnTypes      map[string]ColumnType `json:"columnTypes,omitempty"`
	FieldMap         map[string]string     `json:"fieldMap"`
	ResponseTimeUnit string                `json:"responseTimeUnit"`
	Timezone         string                `json:"timezone"`
	SuccessRate      float64               `json:"successRate"`
	Confidence       float64               `json:"confidence"`
}

// HasColumn returns true if the recipe declares the column.
func (x *Recipe) HasColumn(name string) bool {
	for _, col := range x.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// fieldMapCandidates maps canonical roles to common column name variants,
// checked in order.
var fieldMapCandidates = []struct {
	Role     string
	Variants []string
}{
	{"timestamp", []string{"time", "timestamp", "@timestamp", "datetime", "request_time"}},
	{"method", []string{"method", "request_method", "request_verb", "verb", "http_method"}},
	{"url", []string{"url", "request_url", "uri", "request_uri", "path"}},
	{"status", []string{"status", "status_code", "elb_status_code", "http_status", "response_code"}},
	{"responseTime", []string{"response_time", "request_time", "response_time_us", "target_processing_time", "request_processing_time", "duration", "elapsed"}},
	{"clientIp", []string{"client_ip", "remote_addr", "client", "ip", "clientip", "remote_ip"}},
}

// BuildFieldMap infers the canonical role -> column mapping from column
// names. The first matching variant wins per role.
func BuildFieldMap(columns []string) map[string]string {
	fieldMap := map[string]string{}

	for _, cand := range fieldMapCandidates {
		for _, col := range columns {
			if _, ok := fieldMap[cand.Role]; ok {
				break
			}
			lower := strings.ToLower(col)
			for _, v := range cand.Variants {
				if lower == v {
					fieldMap[cand.Role] = col
					break
				}
			}
		}
	}

	return fieldMap
}
