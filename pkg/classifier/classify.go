// Package classifier scores sample lines against the known log format
// families via lightweight structural checks.
package classifier

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/m-mizutani/logsherpa/pkg/models"
)

const sampleLimit = 20

// fallbackConfidence is reported when no family matches any sampled line.
const fallbackConfidence = 0.1

// Result is the winning family with its confidence (matching lines /
// sampled lines).
type Result struct {
	Family     models.Family
	Confidence float64
}

var schemeTokens = []string{"http ", "https ", "h2 ", "ws ", "wss "}

// Loose shape of a combined/common web server line:
// IPv4-ish token ... [bracketed] ... "METHOD ..." ... 3-digit status
var webServerRegex = regexp.MustCompile(`\d+\.\d+\.\d+\.\d+.*\[.*\].*"[A-Z]+.*".*\d{3}`)

// families in score tie-break order.
var families = []models.Family{
	models.FamilyLoadBalancer,
	models.FamilyJSON,
	models.FamilyWebServer,
	models.FamilyCustom,
}

// Classify scores at most the first 20 lines against each family
// independently. All-zero scores fall back to the custom family with a
// fixed low confidence instead of erroring.
func Classify(sampleLines []string) Result {
	sample := sampleLines
	if len(sample) > sampleLimit {
		sample = sample[:sampleLimit]
	}

	scores := map[models.Family]int{}
	for _, line := range sample {
		if isLoadBalancerLine(line) {
			scores[models.FamilyLoadBalancer]++
		}
		if isJSONLine(line) {
			scores[models.FamilyJSON]++
		}
		if isWebServerLine(line) {
			scores[models.FamilyWebServer]++
		}
	}

	best := models.FamilyCustom
	bestScore := 0
	for _, family := range families {
		if scores[family] > bestScore {
			best = family
			bestScore = scores[family]
		}
	}

	if bestScore == 0 {
		return Result{Family: models.FamilyCustom, Confidence: fallbackConfidence}
	}

	return Result{
		Family:     best,
		Confidence: float64(bestScore) / float64(len(sample)),
	}
}

func isLoadBalancerLine(line string) bool {
	hasScheme := false
	for _, scheme := range schemeTokens {
		if strings.HasPrefix(line, scheme) {
			hasScheme = true
			break
		}
	}
	if !hasScheme {
		return false
	}

	return len(strings.Fields(line)) > 10 && strings.Contains(line, "app/")
}

func isJSONLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return false
	}

	var v interface{}
	return json.Unmarshal([]byte(trimmed), &v) == nil
}

func isWebServerLine(line string) bool {
	if !strings.Contains(line, `"`) || !strings.Contains(line, "[") {
		return false
	}
	return webServerRegex.MatchString(line)
}
