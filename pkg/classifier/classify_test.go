package classifier_test

import (
	"fmt"
	"testing"

	"github.com/m-mizutani/logsherpa/pkg/classifier"
	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/stretchr/testify/assert"
)

const albLine = `https 2020-10-10T13:55:36.123456Z app/my-lb/50dc6c495c0c9188 192.168.131.39:2817 10.0.0.1:80 0.000 0.001 0.000 200 200 34 366 "GET https://example.com:443/ HTTP/1.1" "curl/7.46.0" ECDHE-RSA-AES128-GCM-SHA256 TLSv1.2 arn:aws:elasticloadbalancing:us-east-1:123456789012:targetgroup/my-targets/73e2d6bc24d8a067 "Root=1-58337281-1d84f3d73c47ec4e58577259" "-" "-" 0 2020-10-10T13:55:35.123000Z "forward" "-" "-" "10.0.0.1:80" "200" "-" "-"`

const webServerLine = `192.168.0.1 - frank [10/Oct/2020:13:55:36 +0000] "GET /index.html HTTP/1.1" 200 2326`

func TestClassifyLoadBalancer(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, albLine)
	}

	result := classifier.Classify(lines)
	assert.Equal(t, models.FamilyLoadBalancer, result.Family)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestClassifyMixedSample(t *testing.T) {
	// 11 of 20 lines match, so confidence is the match ratio.
	var lines []string
	for i := 0; i < 11; i++ {
		lines = append(lines, albLine)
	}
	for i := 0; i < 9; i++ {
		lines = append(lines, "some random noise line")
	}

	result := classifier.Classify(lines)
	assert.Equal(t, models.FamilyLoadBalancer, result.Family)
	assert.InDelta(t, 0.55, result.Confidence, 0.0001)
}

func TestClassifyJSON(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf(`{"time":"2020-10-10T13:55:%02dZ","status":200,"path":"/"}`, i))
	}

	result := classifier.Classify(lines)
	assert.Equal(t, models.FamilyJSON, result.Family)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestClassifyWebServer(t *testing.T) {
	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines, webServerLine)
	}

	result := classifier.Classify(lines)
	assert.Equal(t, models.FamilyWebServer, result.Family)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestClassifyFallback(t *testing.T) {
	lines := []string{
		"Oct 10 13:55:36 host1 sshd[1234]: Accepted publickey for user",
		"Oct 10 13:55:37 host1 sshd[1234]: pam_unix session opened",
	}

	result := classifier.Classify(lines)
	assert.Equal(t, models.FamilyCustom, result.Family)
	assert.Equal(t, 0.1, result.Confidence)
}

func TestClassifySamplesFirstTwentyLines(t *testing.T) {
	// Lines beyond the sample window do not affect the score.
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, albLine)
	}
	for i := 0; i < 100; i++ {
		lines = append(lines, "noise")
	}

	result := classifier.Classify(lines)
	assert.Equal(t, models.FamilyLoadBalancer, result.Family)
	assert.Equal(t, 1.0, result.Confidence)
}
