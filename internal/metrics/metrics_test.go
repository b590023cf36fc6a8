package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NotPanics(t, func() { Register(reg) })
}

func TestObserveMutation(t *testing.T) {
	before := testutil.ToFloat64(mutationsTotal.WithLabelValues("Book", "CREATE", "error"))
	ObserveMutation("Book", "CREATE", errors.New("boom"))
	after := testutil.ToFloat64(mutationsTotal.WithLabelValues("Book", "CREATE", "error"))
	assert.Equal(t, before+1, after)
}

func TestSubscriberGauge(t *testing.T) {
	SubscriberOpened("books")
	SubscriberOpened("books")
	SubscriberClosed("books")
	assert.Equal(t, float64(1), testutil.ToFloat64(liveSubscribers.WithLabelValues("books")))
	SubscriberClosed("books")
}

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	ObserveRequest("GET", "", 404, 5*time.Millisecond)
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	assert.Equal(t, before+1, after)
}
