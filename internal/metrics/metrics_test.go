package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()

	r.Transition("logged_out", "key_generated")
	r.Transition("logged_out", "key_generated")
	r.Submission("transfer", nil)
	r.Submission("transfer", errors.New("boom"))
	r.StaleResult()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.transitions.WithLabelValues("logged_out", "key_generated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.submissions.WithLabelValues("transfer", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.submissions.WithLabelValues("transfer", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.staleDrops))
}

func TestRecorderProofHistogram(t *testing.T) {
	r := NewRecorder()
	r.ProofFetched(1500*time.Millisecond, nil)

	n, err := testutil.GatherAndCount(r.Registry(), "zklogin_proof_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHandlerServesText(t *testing.T) {
	r := NewRecorder()
	r.Transition("a", "b")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "zklogin_state_transitions_total"))
}
