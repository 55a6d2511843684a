// Package compiler turns a LogFormat directive string (e.g. `%h %l %u %t
// "%r" %>s %b`) into a matchable pattern plus ordered column names and
// per-column primitive types.
package compiler

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/logsherpa/internal"
	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/pkg/errors"
)

// Compiled is the output of Compile: one capture group per column.
type Compiled struct {
	Pattern     string
	Columns     []string
	ColumnTypes map[string]models.ColumnType
}

type directive struct {
	pattern string
	column  string
	ctype   models.ColumnType
}

// directiveMap maps LogFormat directives to sub-pattern, column name and
// type. Reference: https://httpd.apache.org/docs/2.4/en/mod/mod_log_config.html
var directiveMap = map[string]directive{
	// Client/remote information
	"%h": {`([^ ]+)`, "client_ip", models.ColumnString},
	"%a": {`([^ ]+)`, "client_ip", models.ColumnString},
	"%l": {`([^ ]+)`, "identity", models.ColumnString},
	"%u": {`([^ ]+)`, "user", models.ColumnString},

	// Time
	"%t": {`\[([^\]]+)\]`, "time", models.ColumnDatetime},

	// Request line
	"%r": {`([^"]*)`, "request", models.ColumnString},
	"%m": {`([^ ]+)`, "request_method", models.ColumnString},
	"%U": {`([^ ]+)`, "request_url", models.ColumnString},
	"%q": {`([^ ]*)`, "query_string", models.ColumnString},
	"%H": {`([^ ]+)`, "request_proto", models.ColumnString},

	// Status code
	"%s":  {`([-0-9]+)`, "status", models.ColumnInt},
	"%>s": {`([-0-9]+)`, "status", models.ColumnInt},

	// Bytes sent
	"%b": {`([-0-9]+)`, "bytes_sent", models.ColumnInt},
	"%B": {`([0-9]+)`, "bytes_sent", models.ColumnInt},

	// Timing
	"%D": {`([0-9]+)`, "response_time_us", models.ColumnInt},
	"%T": {`([0-9.]+)`, "response_time_s", models.ColumnFloat},

	// Server information
	"%v": {`([^ ]+)`, "server_name", models.ColumnString},
	"%V": {`([^ ]+)`, "server_name", models.ColumnString},
	"%p": {`([0-9]+)`, "server_port", models.ColumnInt},
	"%A": {`([^ ]+)`, "server_ip", models.ColumnString},

	// Process information
	"%P": {`([0-9]+)`, "process_id", models.ColumnInt},
	"%I": {`([0-9]+)`, "bytes_received", models.ColumnInt},
	"%O": {`([0-9]+)`, "bytes_sent_including_headers", models.ColumnInt},
}

// Presets are common LogFormat strings by name.
var Presets = map[string]string{
	"common":             `%h %l %u %t "%r" %>s %b`,
	"combined":           `%h %l %u %t "%r" %>s %b "%{Referer}i" "%{User-agent}i"`,
	"combined_with_time": `%h %l %u %t "%r" %>s %b "%{Referer}i" "%{User-agent}i" %D`,
	"vhost_combined":     `%v:%p %h %l %u %t "%r" %>s %b "%{Referer}i" "%{User-agent}i"`,
}

// Compile walks the format string and emits one capture group per
// recognized directive. Unknown directives are skipped with a warning.
// The result is deterministic for a given input.
func Compile(format string) (*Compiled, error) {
	var parts []string
	var columns []string
	columnTypes := map[string]models.ColumnType{}

	appendColumn := func(pattern, column string, ctype models.ColumnType) {
		parts = append(parts, pattern)
		columns = append(columns, column)
		if ctype != models.ColumnString {
			columnTypes[column] = ctype
		}
	}

	i := 0
	for i < len(format) {
		c := format[i]

		if c == '%' {
			// Header/environment directive: %{NAME}i, %{NAME}o, %{NAME}e
			if i+1 < len(format) && format[i+1] == '{' {
				close := strings.IndexByte(format[i+2:], '}')
				if close >= 0 && i+2+close+1 < len(format) {
					name := format[i+2 : i+2+close]
					kind := format[i+2+close+1]
					column := strings.ReplaceAll(strings.ToLower(name), "-", "_")

					switch kind {
					case 'i': // request header
						switch strings.ToLower(name) {
						case "referer", "referrer":
							column = "referer"
						case "user-agent", "user_agent":
							column = "user_agent"
						}
						parts = append(parts, `([^"]*)`)
						columns = append(columns, column)
						columnTypes[column] = models.ColumnString
					case 'o': // response header
						parts = append(parts, `([^"]*)`)
						columns = append(columns, "resp_"+column)
						columnTypes["resp_"+column] = models.ColumnString
					case 'e': // environment variable
						parts = append(parts, `([^ ]+)`)
						columns = append(columns, "env_"+column)
						columnTypes["env_"+column] = models.ColumnString
					}

					i += 2 + close + 2
					continue
				}
			}

			// Longest directive first: %>s before %s
			matched := false
			for _, length := range []int{3, 2} {
				if i+length <= len(format) {
					if d, ok := directiveMap[format[i:i+length]]; ok {
						appendColumn(d.pattern, d.column, d.ctype)
						i += length
						matched = true
						break
					}
				}
			}
			if matched {
				continue
			}

			tail := format[i:]
			if len(tail) > 5 {
				tail = tail[:5]
			}
			internal.Logger.WithField("directive", tail).Warn("Unknown LogFormat directive, skipped")
			i++
			continue
		}

		switch c {
		case '"':
			parts = append(parts, `"`)
		case ' ':
			parts = append(parts, ` `)
		case '[':
			parts = append(parts, `\[`)
		case ']':
			parts = append(parts, `\]`)
		default:
			parts = append(parts, regexp.QuoteMeta(string(c)))
		}
		i++
	}

	pattern := strings.Join(parts, "")
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, errors.Wrapf(err, "Failed to compile generated pattern: %s", pattern)
	}

	return &Compiled{
		Pattern:     pattern,
		Columns:     columns,
		ColumnTypes: columnTypes,
	}, nil
}
