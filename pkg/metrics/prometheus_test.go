package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"SentiDash/internal/domain/models"
)

func TestRecorder(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordRun("ok")
	r.RecordRun("ok")
	r.RecordError("degenerate_label")
	r.RecordAccuracy("holdout", 0.56)
	r.RecordPrediction(models.DirectionUp, 0.61)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("degenerate_label")))
	assert.Equal(t, 0.56, testutil.ToFloat64(r.accuracy.WithLabelValues("holdout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lastDirection))
	assert.Equal(t, 0.61, testutil.ToFloat64(r.lastProbUp))
}
