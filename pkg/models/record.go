package models

// ParsedRecord is one parsed log line: column name -> typed value.
// Absent values are stored as nil.
type ParsedRecord map[string]interface{}

// LineNumColumn is the reserved record key carrying the original 1-based
// line number. It is metadata for callers needing true file order, not a
// data column; the assembler drops it unless explicitly requested.
const LineNumColumn = "_line_num"

// FailureEntry is a non-blank line that failed to match or decode.
type FailureEntry struct {
	LineNum int    `json:"line_num"`
	Raw     string `json:"raw"`
}

// ParseStats summarizes one parse call.
type ParseStats struct {
	TotalLines int `json:"total_lines"`
	Success    int `json:"success"`
	Failed     int `json:"failed"`
	Blank      int `json:"blank"`
}

// Consistent checks the accounting invariant of a parse call.
func (x ParseStats) Consistent() bool {
	return x.Success+x.Failed+x.Blank == x.TotalLines
}

// IsAbsent reports whether a captured string is one of the universal
// absent-value tokens.
func IsAbsent(v string) bool {
	return v == "" || v == "-" || v == " "
}

// NormalizeValue converts absent-value tokens to nil and keeps everything
// else as-is.
func NormalizeValue(v string) interface{} {
	if IsAbsent(v) {
		return nil
	}
	return v
}

// Table is the materialized result of one parse call.
type Table struct {
	Columns []string       `json:"columns"`
	Records []ParsedRecord `json:"records"`
}

// Len returns the number of records.
func (x *Table) Len() int { return len(x.Records) }
