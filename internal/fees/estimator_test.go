package fees

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	floor      = 10_000
	defaultFee = 100_000
)

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, _ := io.ReadAll(r.Body)
		parsed := gjson.ParseBytes(req)
		assert.Equal(t, "getPriorityFeeEstimate", parsed.Get("method").String())
		assert.Equal(t, "High", parsed.Get("params.0.options.priorityLevel").String())
		assert.Equal(t, int64(2), parsed.Get("params.0.accountKeys.#").Int())
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func accounts() []solana.PublicKey {
	return []solana.PublicKey{solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()}
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     uint64
		degraded bool
	}{
		{"above floor", 200, `{"jsonrpc":"2.0","id":"1","result":{"priorityFeeEstimate":250000}}`, 250_000, false},
		{"fractional rounds up", 200, `{"jsonrpc":"2.0","id":"1","result":{"priorityFeeEstimate":12000.2}}`, 12_001, false},
		{"below floor", 200, `{"jsonrpc":"2.0","id":"1","result":{"priorityFeeEstimate":5}}`, floor, false},
		{"rpc error", 200, `{"jsonrpc":"2.0","id":"1","error":{"code":-32602,"message":"bad params"}}`, defaultFee, true},
		{"missing value", 200, `{"jsonrpc":"2.0","id":"1","result":{}}`, defaultFee, true},
		{"malformed", 200, `{"result":`, defaultFee, true},
		{"server error", 503, `unavailable`, defaultFee, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.status, tt.body)
			core, logs := observer.New(zap.WarnLevel)
			est := NewEstimator(srv.URL, floor, defaultFee, zap.New(core))

			assert.Equal(t, tt.want, est.Estimate(context.Background(), accounts()))
			degraded := logs.FilterField(zap.String("event", "fee-estimate-degraded")).Len()
			assert.Equal(t, tt.degraded, degraded == 1)
		})
	}
}

func TestEstimateNetworkErrorNeverBelowFloor(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	// default below floor still yields the floor
	est := NewEstimator(srv.URL, floor, 1, zap.NewNop())
	assert.Equal(t, uint64(floor), est.Estimate(context.Background(), accounts()))
}
