package metrics

import (
	"errors"
	"fmt"
	"testing"

	"debtster_routes/internal/ports"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "store_unavailable", Outcome(fmt.Errorf("read: %w", ports.ErrStoreUnavailable)))
	assert.Equal(t, "internal", Outcome(errors.New("boom")))
}

func TestGateDecisionsCount(t *testing.T) {
	before := testutil.ToFloat64(GateDecisions.WithLabelValues("view-route", "deny"))
	GateDecisions.WithLabelValues("view-route", "deny").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(GateDecisions.WithLabelValues("view-route", "deny")))
}
