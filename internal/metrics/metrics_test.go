package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveApplyRecordsLabeledHistogram(t *testing.T) {
	ObserveApply("uk-prod", "Applied", 2*time.Second)
	count := testutil.CollectAndCount(ApplyDuration)
	assert.GreaterOrEqual(t, count, 1)
}

func TestObserveReconcileOutcomeIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(ReconcileOutcomes.WithLabelValues("uk-prod", "applied"))
	ObserveReconcileOutcome("uk-prod", "applied")
	after := testutil.ToFloat64(ReconcileOutcomes.WithLabelValues("uk-prod", "applied"))
	assert.Equal(t, before+1, after)
}
