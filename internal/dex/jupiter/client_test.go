package jupiter

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap/zaptest"
)

const quoteJSON = `{"inputMint":"So11111111111111111111111111111111111111112","outputMint":"MINT",` +
	`"inAmount":"1000000","outAmount":"424242","otherAmountThreshold":"420000","swapMode":"ExactIn",` +
	`"slippageBps":100,"priceImpactPct":"0.01","routePlan":[{"swapInfo":{"ammKey":"AMM","label":"Meteora",` +
	`"inputMint":"So11111111111111111111111111111111111111112","outputMint":"MINT","inAmount":"1000000",` +
	`"outAmount":"424242"},"percent":100}],"contextSlot":7}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret", 1000, zaptest.NewLogger(t))
}

func quoteRequest() QuoteRequest {
	return QuoteRequest{
		InputMint:   solana.WrappedSol.String(),
		OutputMint:  "MINT",
		Amount:      "1000000",
		SlippageBps: 100,
	}
}

func TestQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "100", r.URL.Query().Get("slippageBps"))
		_, _ = io.WriteString(w, quoteJSON)
	})

	quote, err := client.Quote(context.Background(), quoteRequest())
	require.NoError(t, err)
	assert.Equal(t, "424242", quote.OutAmount)
	assert.Equal(t, "420000", quote.OtherAmountThreshold)
	assert.JSONEq(t, quoteJSON, string(quote.Raw))
}

func TestQuoteFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantNoRte bool
	}{
		{"no route error code", http.StatusBadRequest, `{"error":"Could not find any route","errorCode":"COULD_NOT_FIND_ANY_ROUTE"}`, true},
		{"token not tradable", http.StatusBadRequest, `{"error":"not tradable","errorCode":"TOKEN_NOT_TRADABLE"}`, true},
		{"empty route plan", http.StatusOK, `{"outAmount":"0","routePlan":[]}`, true},
		{"server error", http.StatusInternalServerError, `boom`, false},
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := client.Quote(context.Background(), quoteRequest())
			require.Error(t, err)
			assert.Equal(t, tt.wantNoRte, errors.Is(err, ErrNoRoute))
			if !tt.wantNoRte {
				var httpErr *HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, tt.status, httpErr.StatusCode)
			}
		})
	}
}

func signedTransfer(t *testing.T) (*solana.Transaction, solana.PrivateKey) {
	t.Helper()
	payer := solana.NewWallet().PrivateKey
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, payer.PublicKey(), solana.NewWallet().PublicKey()).Build()},
		solana.Hash{1, 2, 3},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer
		}
		return nil
	})
	require.NoError(t, err)
	return tx, payer
}

func TestSwapAndDecode(t *testing.T) {
	tx, payer := signedTransfer(t)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(raw)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			_, _ = io.WriteString(w, quoteJSON)
		case "/swap":
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.Equal(t, payer.PublicKey().String(), gjson.GetBytes(body, "userPublicKey").String())
			assert.Equal(t, "424242", gjson.GetBytes(body, "quoteResponse.outAmount").String())
			assert.Equal(t, int64(50_000), gjson.GetBytes(body, "computeUnitPriceMicroLamports").Int())
			assert.True(t, gjson.GetBytes(body, "wrapAndUnwrapSol").Bool())
			_, _ = io.WriteString(w, `{"swapTransaction":"`+encoded+`","lastValidBlockHeight":2048}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	quote, err := client.Quote(context.Background(), quoteRequest())
	require.NoError(t, err)

	fee := uint64(50_000)
	resp, err := client.Swap(context.Background(), quote, payer.PublicKey(), &fee)
	require.NoError(t, err)
	assert.Equal(t, uint64(2048), resp.LastValidBlockHeight)

	decoded, err := DecodeTransaction(resp.SwapTransaction)
	require.NoError(t, err)
	assert.Equal(t, tx.Message.RecentBlockhash, decoded.Message.RecentBlockhash)
	assert.Equal(t, tx.Signatures, decoded.Signatures)
}

func TestDecodeTransactionInvalid(t *testing.T) {
	_, err := DecodeTransaction("%%%")
	assert.Error(t, err)
	_, err = DecodeTransaction(base64.StdEncoding.EncodeToString([]byte{1}))
	assert.Error(t, err)
}

func TestSwapRequiresQuote(t *testing.T) {
	client := NewClient("", "", 1, zaptest.NewLogger(t))
	_, err := client.Swap(context.Background(), nil, solana.NewWallet().PublicKey(), nil)
	assert.Error(t, err)
}
