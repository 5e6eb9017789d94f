package prommetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsWebhookSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "sheetsync")

	m.RecordWebhookEvent("stripe", "checkout.session.completed", "created")
	m.RecordWebhookProcessingDuration("stripe", "checkout.session.completed", 15*time.Millisecond)
	m.RecordWebhookError("stripe", "auth_failed")
	m.RecordAPICall("stripe", "/v1/customers/{id}", "success")
	m.RecordAPICallDuration("stripe", "/v1/customers/{id}", 80*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}

	for _, want := range []string{
		"sheetsync_billing_webhook_events_total",
		"sheetsync_billing_webhook_processing_duration_seconds",
		"sheetsync_billing_webhook_errors_total",
		"sheetsync_billing_api_calls_total",
		"sheetsync_billing_api_call_duration_seconds",
	} {
		assert.True(t, names[want], "expected metric %s", want)
	}
}
