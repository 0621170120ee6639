package prover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/ports"
)

const proofJSON = `{
  "proofPoints": {
    "a": ["1", "2", "1"],
    "b": [["3", "4"], ["5", "6"], ["1", "0"]],
    "c": ["7", "8", "1"]
  },
  "issBase64Details": {"value": "yJpc3MiOiJodHRwczovL2FjY291bnRzLmdvb2dsZS5jb20iLC", "indexMod4": 1},
  "headerBase64": "eyJhbGciOiJSUzI1NiJ9"
}`

func request() ports.ProofRequest {
	return ports.ProofRequest{
		JWT:                        "header.payload.sig",
		ExtendedEphemeralPublicKey: "123",
		MaxEpoch:                   110,
		JWTRandomness:              "456",
		Salt:                       "42",
		KeyClaimName:               "sub",
	}
}

func TestFetchProof(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(proofJSON))
	}))
	defer srv.Close()

	p, err := NewHTTPProver(srv.URL, time.Second)
	require.NoError(t, err)

	proof, err := p.FetchProof(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "1"}, proof.ProofPoints.A)
	assert.Equal(t, uint8(1), proof.IssBase64Details.IndexMod4)
	assert.Equal(t, "eyJhbGciOiJSUzI1NiJ9", proof.HeaderBase64)

	assert.Equal(t, "header.payload.sig", got["jwt"])
	assert.Equal(t, "123", got["extendedEphemeralPublicKey"])
	assert.Equal(t, float64(110), got["maxEpoch"])
	assert.Equal(t, "456", got["jwtRandomness"])
	assert.Equal(t, "42", got["salt"])
	assert.Equal(t, "sub", got["keyClaimName"])
}

func TestFetchProofErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid jwt", http.StatusBadRequest)
		}},
		{"garbage", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}},
		{"incomplete", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"headerBase64":"x"}`))
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			p, err := NewHTTPProver(srv.URL, time.Second)
			require.NoError(t, err)
			_, err = p.FetchProof(context.Background(), request())
			assert.Error(t, err)
		})
	}
}

func TestNewHTTPProverRequiresURL(t *testing.T) {
	_, err := NewHTTPProver("", 0)
	assert.ErrorIs(t, err, core.ErrMissingConfig)
}
