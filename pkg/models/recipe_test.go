package models_test

import (
	"testing"

	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestFamilyIsValid(t *testing.T) {
	assert.True(t, models.FamilyLoadBalancer.IsValid())
	assert.True(t, models.FamilyWebServer.IsValid())
	assert.True(t, models.FamilyJSON.IsValid())
	assert.True(t, models.FamilyCustom.IsValid())
	assert.False(t, models.Family("CSV").IsValid())
	assert.False(t, models.Family("").IsValid())
}

func TestBuildFieldMap(t *testing.T) {
	t.Run("Web server columns", func(tt *testing.T) {
		fieldMap := models.BuildFieldMap([]string{
			"client_ip", "identity", "user", "time", "request",
			"status", "bytes_sent", "referer", "user_agent",
		})

		assert.Equal(tt, "time", fieldMap["timestamp"])
		assert.Equal(tt, "status", fieldMap["status"])
		assert.Equal(tt, "client_ip", fieldMap["clientIp"])
		_, hasMethod := fieldMap["method"]
		assert.False(tt, hasMethod)
	})

	t.Run("Load balancer columns", func(tt *testing.T) {
		fieldMap := models.BuildFieldMap([]string{
			"time", "request_verb", "request_url", "elb_status_code", "target_processing_time",
		})

		assert.Equal(tt, "time", fieldMap["timestamp"])
		assert.Equal(tt, "request_verb", fieldMap["method"])
		assert.Equal(tt, "request_url", fieldMap["url"])
		assert.Equal(tt, "elb_status_code", fieldMap["status"])
		assert.Equal(tt, "target_processing_time", fieldMap["responseTime"])
	})

	t.Run("First matching column wins", func(tt *testing.T) {
		fieldMap := models.BuildFieldMap([]string{"timestamp", "time"})
		assert.Equal(tt, "timestamp", fieldMap["timestamp"])
	})

	t.Run("No known columns", func(tt *testing.T) {
		fieldMap := models.BuildFieldMap([]string{"foo", "bar"})
		assert.Empty(tt, fieldMap)
	})
}

func TestHasColumn(t *testing.T) {
	recipe := &models.Recipe{Columns: []string{"time", "status"}}
	assert.True(t, recipe.HasColumn("time"))
	assert.False(t, recipe.HasColumn("request"))
}
