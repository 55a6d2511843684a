package resolver

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/itchyny/gojq"
	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/trivago/grok"
)

// defaultLoadBalancerPattern matches the stock ALB access log layout.
// Columns are not declared; the parser's fallback naming applies.
const defaultLoadBalancerPattern = `([^ ]*) ([^ ]*) ([^ ]*) ([^ ]*):([0-9]*) ([^ ]*)[:-]([0-9]*) ([-.0-9]*) ([-.0-9]*) ([-.0-9]*) (|[-0-9]*) (-|[-0-9]*) ([-0-9]*) ([-0-9]*) "([^ ]*) (.*?) (- |[^ ]*)" "([^"]*)" ([A-Z0-9-_]+) ([A-Za-z0-9.-]*) ([^ ]*) "([^"]*)" "([^"]*)" "([^"]*)" ([-.0-9]*) ([^ ]*) "([^"]*)"`

// defaultWebServerPattern matches combined/common web server logs,
// including malformed request lines ("-" 408 -) and missing
// referer/user-agent tails.
const defaultWebServerPattern = `([^ ]*) ([^ ]*) ([^ ]*) \[([^\]]*)\] "([^"]*)" ([0-9]*) ([0-9\-]*)(?: "([^"]*)" "([^"]*)")?`

// buildForFamily returns the default recipe of the classified family.
func buildForFamily(family models.Family, sample []string) *models.Recipe {
	switch family {
	case models.FamilyLoadBalancer:
		return buildLoadBalancer()
	case models.FamilyJSON:
		return buildJSON(sample)
	case models.FamilyWebServer:
		return buildWebServer()
	default:
		return buildCustom(sample)
	}
}

func buildLoadBalancer() *models.Recipe {
	return &models.Recipe{
		LogPattern:  defaultLoadBalancerPattern,
		PatternType: models.FamilyLoadBalancer,
		FieldMap: map[string]string{
			"timestamp":    "time",
			"method":       "request_verb",
			"url":          "request_url",
			"status":       "elb_status_code",
			"responseTime": "target_processing_time",
			"clientIp":     "client_ip",
		},
		ResponseTimeUnit: "s",
		Timezone:         "UTC",
	}
}

func buildWebServer() *models.Recipe {
	return &models.Recipe{
		LogPattern:  defaultWebServerPattern,
		PatternType: models.FamilyWebServer,
		Columns: []string{
			"client_ip", "identity", "user", "time", "request",
			"status", "bytes_sent", "referer", "user_agent",
		},
		ColumnTypes: map[string]models.ColumnType{
			"client_ip":  models.ColumnString,
			"identity":   models.ColumnString,
			"user":       models.ColumnString,
			"time":       models.ColumnDatetime,
			"request":    models.ColumnString,
			"status":     models.ColumnInt,
			"bytes_sent": models.ColumnInt,
			"referer":    models.ColumnString,
			"user_agent": models.ColumnString,
		},
		FieldMap: map[string]string{
			"timestamp": "time",
			"method":    "request_method",
			"url":       "request_url",
			"status":    "status",
			"clientIp":  "client_ip",
		},
		ResponseTimeUnit: "ms",
		Timezone:         models.TimezoneFromLog,
	}
}

// jsonFieldCandidates maps canonical roles to JSON keys probed in order.
var jsonFieldCandidates = []struct {
	Role string
	Keys []string
}{
	{"timestamp", []string{"timestamp", "time", "@timestamp", "datetime"}},
	{"method", []string{"method", "request_method", "verb"}},
	{"url", []string{"url", "uri", "path", "request_uri"}},
	{"status", []string{"status", "status_code", "response_status"}},
	{"responseTime", []string{"response_time", "duration", "elapsed"}},
	{"clientIp", []string{"client_ip", "remote_addr", "ip"}},
}

// buildJSON probes the first decodable sample line for well-known field
// names, including nested ones, via jq queries.
func buildJSON(sample []string) *models.Recipe {
	fieldMap := map[string]string{}

	limit := 10
	if len(sample) < limit {
		limit = len(sample)
	}
	for _, line := range sample[:limit] {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}

		for _, cand := range jsonFieldCandidates {
			if key := probeJSONField(obj, cand.Keys); key != "" {
				fieldMap[cand.Role] = key
			}
		}
		break
	}

	return &models.Recipe{
		LogPattern:       "JSON",
		PatternType:      models.FamilyJSON,
		FieldMap:         fieldMap,
		ResponseTimeUnit: "ms",
		Timezone:         models.TimezoneFromLog,
	}
}

// probeJSONField returns the first candidate key whose jq lookup yields a
// non-null value in the object.
func probeJSONField(obj map[string]interface{}, keys []string) string {
	for _, key := range keys {
		query, err := gojq.Parse(fmt.Sprintf(".[%q]", key))
		if err != nil {
			continue
		}

		iter := query.Run(map[string]interface{}(obj))
		v, ok := iter.Next()
		if !ok {
			continue
		}
		if _, isErr := v.(error); isErr || v == nil {
			continue
		}
		return key
	}
	return ""
}

// grokTemplates are tried in order against custom samples before
// surrendering to the match-anything fallback.
var grokTemplates = []struct {
	name    string
	pattern string
}{
	{"syslog", "%{SYSLOGTIMESTAMP:timestamp} %{SYSLOGHOST:logsource} %{SYSLOGPROG}: %{GREEDYDATA:message}"},
	{"apache_common", "%{COMMONAPACHELOG}"},
	{"apache_combined", "%{COMBINEDAPACHELOG}"},
}

// grokTemplateThreshold is the sample match ratio a template must reach.
const grokTemplateThreshold = 0.5

// buildCustom tries the pre-compiled grok templates against the sample;
// the recipe keeps the grok expression so the parser can re-compile it.
func buildCustom(sample []string) *models.Recipe {
	recipe := &models.Recipe{
		LogPattern:       `.*`,
		PatternType:      models.FamilyCustom,
		FieldMap:         map[string]string{},
		ResponseTimeUnit: "ms",
		Timezone:         models.TimezoneFromLog,
	}

	limit := 20
	if len(sample) < limit {
		limit = len(sample)
	}
	if limit == 0 {
		return recipe
	}

	g, err := grok.New(grok.Config{NamedCapturesOnly: true})
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize grok, using fallback pattern")
		return recipe
	}

	bestRatio := 0.0
	for _, tpl := range grokTemplates {
		compiled, err := g.Compile(tpl.pattern)
		if err != nil {
			logger.WithError(err).WithField("template", tpl.name).Warn("Failed to compile grok template")
			continue
		}

		matched := 0
		for _, line := range sample[:limit] {
			if compiled.MatchString(line) {
				matched++
			}
		}

		ratio := float64(matched) / float64(limit)
		if ratio >= grokTemplateThreshold && ratio > bestRatio {
			bestRatio = ratio
			recipe.LogPattern = tpl.pattern
			fields := compiled.ParseString(sample[0])
			var columns []string
			for key := range fields {
				columns = append(columns, key)
			}
			sort.Strings(columns)
			recipe.FieldMap = models.BuildFieldMap(columns)
		}
	}

	return recipe
}
