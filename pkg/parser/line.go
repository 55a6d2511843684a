package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/pkg/errors"
	"github.com/trivago/grok"
)

// Required non-null fields per family. These lists are acceptance policy
// tuned against real samples, not guaranteed-complete physics; adjust them
// when a format variant trips over them.
var (
	requiredLoadBalancerFields  = []string{"time", "request_url", "request_verb"}
	requiredWebServerTimeFields = []string{"time", "timestamp"}
	requiredWebServerStatusKeys = []string{"status", "status_code"}
	loadBalancerFallbackColumns = []string{
		"type", "time", "elb", "client_ip", "client_port",
		"target_ip", "target_port", "request_processing_time",
		"target_processing_time", "response_processing_time",
		"elb_status_code", "target_status_code",
		"received_bytes", "sent_bytes",
		"request_verb", "request_url", "request_proto",
	}
)

// matcher holds the compiled form of a recipe pattern. It is immutable
// after construction and safe to share across workers.
type matcher struct {
	recipe *models.Recipe
	re     *regexp.Regexp
	names  []string
	named  bool
	grok   *grok.CompiledGrok
}

func newMatcher(recipe *models.Recipe) (*matcher, error) {
	x := &matcher{recipe: recipe}

	switch {
	case recipe.PatternType == models.FamilyJSON:
		// Per-line JSON decode, nothing to compile.

	case recipe.PatternType == models.FamilyCustom && strings.Contains(recipe.LogPattern, "%{"):
		g, err := grok.New(grok.Config{NamedCapturesOnly: true})
		if err != nil {
			return nil, errors.Wrap(err, "Failed to initialize grok")
		}
		compiled, err := g.Compile(recipe.LogPattern)
		if err != nil {
			return nil, models.NewInvalidFormatError(recipe.PatternType, "grok pattern does not compile", err)
		}
		x.grok = compiled

	default:
		// Anchor at line start only, as downstream tools expect
		// prefix matching.
		re, err := regexp.Compile("^(?:" + recipe.LogPattern + ")")
		if err != nil {
			return nil, models.NewInvalidFormatError(recipe.PatternType, "pattern does not compile", err)
		}
		x.re = re
		x.names = re.SubexpNames()
		for _, name := range x.names[1:] {
			if name != "" {
				x.named = true
				break
			}
		}
	}

	return x, nil
}

// parseLine matches one trimmed, non-blank line. Returns (record, true) on
// success and (nil, false) on any per-line failure; it never errors.
func (x *matcher) parseLine(line string) (models.ParsedRecord, bool) {
	if x.recipe.PatternType == models.FamilyJSON {
		return parseJSONLine(line)
	}

	if x.grok != nil {
		fields := x.grok.ParseString(line)
		if len(fields) == 0 {
			return nil, false
		}
		record := models.ParsedRecord{}
		for key, value := range fields {
			record[key] = models.NormalizeValue(value)
		}
		return record, true
	}

	m := x.re.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	if x.named {
		record := models.ParsedRecord{}
		for i, name := range x.names {
			if i == 0 || name == "" {
				continue
			}
			record[name] = models.NormalizeValue(m[i])
		}
		return record, true
	}

	groups := m[1:]
	if len(x.recipe.Columns) > 0 {
		return x.zipColumns(groups)
	}
	return x.fallbackColumns(groups)
}

func parseJSONLine(line string) (models.ParsedRecord, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return nil, false
	}
	return models.ParsedRecord(obj), true
}

// zipColumns maps positional groups against declared columns. Missing
// groups fill remaining columns with null rather than erroring.
func (x *matcher) zipColumns(groups []string) (models.ParsedRecord, bool) {
	record := models.ParsedRecord{}
	for i, col := range x.recipe.Columns {
		if i < len(groups) {
			record[col] = models.NormalizeValue(groups[i])
		} else {
			record[col] = nil
		}
	}

	if !x.accept(record) {
		return nil, false
	}
	return record, true
}

// accept applies the family-specific sanity check: a raw match whose
// required fields are all null is a failure, not a success.
func (x *matcher) accept(record models.ParsedRecord) bool {
	switch x.recipe.PatternType {
	case models.FamilyLoadBalancer:
		return anyFieldSet(record, requiredLoadBalancerFields)
	case models.FamilyWebServer:
		return anyFieldSet(record, requiredWebServerTimeFields) ||
			anyFieldSet(record, requiredWebServerStatusKeys)
	}
	return true
}

func anyFieldSet(record models.ParsedRecord, fields []string) bool {
	for _, field := range fields {
		if v, ok := record[field]; ok && v != nil {
			return true
		}
	}
	return false
}

// fallbackColumns names positional groups when the recipe carries no
// column list.
func (x *matcher) fallbackColumns(groups []string) (models.ParsedRecord, bool) {
	switch x.recipe.PatternType {
	case models.FamilyLoadBalancer:
		record := models.ParsedRecord{}
		n := len(groups)
		if n > len(loadBalancerFallbackColumns) {
			n = len(loadBalancerFallbackColumns)
		}
		for i := 0; i < n; i++ {
			record[loadBalancerFallbackColumns[i]] = models.NormalizeValue(groups[i])
		}
		if len(groups) > n {
			record["_extra_groups"] = append([]string{}, groups[n:]...)
		}
		return record, true

	case models.FamilyWebServer:
		if len(groups) >= 10 {
			columns := []string{
				"client_ip", "user", "time", "request_method", "request_url",
				"request_proto", "status", "bytes_sent", "referer", "user_agent",
			}
			record := models.ParsedRecord{}
			for i, col := range columns {
				record[col] = models.NormalizeValue(groups[i])
			}
			return record, true
		}
	}

	return models.ParsedRecord{"raw_groups": append([]string{}, groups...)}, true
}

// LineMatcher is a compiled, shareable per-line matcher for one recipe.
type LineMatcher struct {
	m *matcher
}

// NewLineMatcher compiles the recipe pattern once for repeated matching.
func NewLineMatcher(recipe *models.Recipe) (*LineMatcher, error) {
	m, err := newMatcher(recipe)
	if err != nil {
		return nil, err
	}
	return &LineMatcher{m: m}, nil
}

// Parse matches one line; matched is false for blank lines and mismatches.
func (x *LineMatcher) Parse(line string) (record models.ParsedRecord, matched bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, false
	}
	return x.m.parseLine(trimmed)
}

// Matches reports whether a line matches the recipe.
func (x *LineMatcher) Matches(line string) bool {
	_, matched := x.Parse(line)
	return matched
}

// ParseLine matches a single line against a recipe, for debugging and
// spot checks. matched is false when the line does not match; err is
// reserved for unusable recipes.
func ParseLine(line string, recipe *models.Recipe) (record models.ParsedRecord, matched bool, err error) {
	m, err := NewLineMatcher(recipe)
	if err != nil {
		return nil, false, err
	}

	record, matched = m.Parse(line)
	return record, matched, nil
}
