// =============================
// File: internal/dex/jupiter/client.go
// =============================
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.jup.ag/swap/v1"

// ErrNoRoute - агрегатор не нашёл маршрут для пары.
var ErrNoRoute = errors.New("aggregator has no route")

// error codes the aggregator uses for "nothing to route through"
var noRouteCodes = map[string]struct{}{
	"COULD_NOT_FIND_ANY_ROUTE": {},
	"NO_ROUTES_FOUND":          {},
	"TOKEN_NOT_TRADABLE":       {},
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a client limited to rps requests per second.
func NewClient(baseURL, apiKey string, rps float64, logger *zap.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		http:    &http.Client{Timeout: 12 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger.Named("jupiter"),
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("jupiter http %d", e.StatusCode)
	}
	return fmt.Sprintf("jupiter http %d: %s", e.StatusCode, b)
}

// Quote запрашивает котировку ExactIn. Отсутствие маршрута - ErrNoRoute.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if req.InputMint == "" || req.OutputMint == "" || req.Amount == "" {
		return nil, fmt.Errorf("inputMint, outputMint and amount are required")
	}

	q := url.Values{}
	q.Set("inputMint", req.InputMint)
	q.Set("outputMint", req.OutputMint)
	q.Set("amount", req.Amount)
	q.Set("slippageBps", fmt.Sprintf("%d", req.SlippageBps))
	if req.SwapMode != "" {
		q.Set("swapMode", req.SwapMode)
	}

	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var out QuoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jupiter quote response: %w", err)
	}
	if len(out.RoutePlan) == 0 || out.OutAmount == "" || out.OutAmount == "0" {
		return nil, ErrNoRoute
	}
	out.Raw = body
	return &out, nil
}

// Swap builds the swap transaction for a previously fetched quote.
func (c *Client) Swap(ctx context.Context, quote *QuoteResponse, user solana.PublicKey, priorityFee *uint64) (*SwapResponse, error) {
	if quote == nil || len(quote.Raw) == 0 {
		return nil, fmt.Errorf("quoteResponse is required")
	}
	payload, err := json.Marshal(SwapRequest{
		QuoteResponse:                 quote.Raw,
		UserPublicKey:                 user.String(),
		WrapAndUnwrapSol:              true,
		DynamicComputeUnitLimit:       true,
		ComputeUnitPriceMicroLamports: priorityFee,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal swap request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/swap", payload)
	if err != nil {
		return nil, err
	}
	var out SwapResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jupiter swap response: %w", err)
	}
	if out.SwapTransaction == "" {
		return nil, fmt.Errorf("jupiter swap response has no transaction")
	}
	return &out, nil
}

// DecodeTransaction разбирает base64 транзакцию, полученную от /swap.
func DecodeTransaction(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode swap transaction base64: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("decode swap transaction: %w", err)
	}
	return tx, nil
}

func (c *Client) do(ctx context.Context, method, u string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}

	res, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		if code := gjson.GetBytes(body, "errorCode").String(); code != "" {
			if _, ok := noRouteCodes[code]; ok {
				c.logger.Debug("No route", zap.String("error_code", code))
				return nil, ErrNoRoute
			}
		}
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}
	return body, nil
}
