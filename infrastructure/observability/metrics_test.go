package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordsGameMetrics(t *testing.T) {
	c := NewCollector("garden")

	c.RecordHandler("handle_user_answer", time.Millisecond, nil)
	c.RecordHandler("handle_user_answer", time.Millisecond, errors.New("boom"))
	c.RecordAnswer("accepted")
	c.RecordPlanted("flowers")
	c.RecordPlanted("flowers")
	c.RecordRemoved(3)
	c.RecordWeeded(2)
	c.RecordGardenFull()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.HandlerCalls.WithLabelValues("handle_user_answer", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Answers.WithLabelValues("accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Planted.WithLabelValues("flowers")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.Removed))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Weeded))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GardensFull))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("garden")
	b := NewCollector("garden")
	a.RecordGardenFull()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.GardensFull))
}

func TestMetricsHandler(t *testing.T) {
	c := NewCollector("garden")
	c.RecordHTTPRequest(http.MethodPost, "/fulfillment", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `garden_http_requests_total{method="POST",route="/fulfillment",status="200"} 1`)
}
