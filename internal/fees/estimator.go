// internal/fees/estimator.go
package fees

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/conviction-engine/internal/utils/logger"
)

// PriorityLevel requested from the estimation endpoint.
const PriorityLevel = "High"

// Estimator оценивает priority fee (micro-lamports за CU) по набору аккаунтов.
// Ошибок не возвращает: при любом сбое отдаёт DefaultFee, но не ниже Floor.
type Estimator struct {
	endpoint   string
	floor      uint64
	defaultFee uint64
	http       *http.Client
	logger     *zap.Logger
}

func NewEstimator(endpoint string, floor, defaultFee uint64, logger *zap.Logger) *Estimator {
	return &Estimator{
		endpoint:   endpoint,
		floor:      floor,
		defaultFee: defaultFee,
		http:       &http.Client{Timeout: 5 * time.Second},
		logger:     logger.Named("fee-estimator"),
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// Estimate returns max(estimate, floor).
func (e *Estimator) Estimate(ctx context.Context, accounts []solana.PublicKey) uint64 {
	value, err := e.fetch(ctx, accounts)
	if err != nil {
		e.logger.Warn("Priority fee estimate unavailable, using default",
			logger.Event(logger.EventFeeEstimateDegraded),
			zap.Uint64("default", e.defaultFee),
			zap.Error(err))
		value = e.defaultFee
	}
	if value < e.floor {
		return e.floor
	}
	return value
}

func (e *Estimator) fetch(ctx context.Context, accounts []solana.PublicKey) (uint64, error) {
	keys := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		keys = append(keys, acc.String())
	}
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      "priority-fee",
		Method:  "getPriorityFeeEstimate",
		Params: []interface{}{map[string]interface{}{
			"accountKeys": keys,
			"options":     map[string]string{"priorityLevel": PriorityLevel},
		}},
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := e.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return 0, fmt.Errorf("fee endpoint http %d", res.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return 0, errors.New("malformed fee response")
	}

	parsed := gjson.ParseBytes(body)
	if rpcErr := parsed.Get("error"); rpcErr.Exists() {
		return 0, fmt.Errorf("fee endpoint error: %s", rpcErr.Get("message").String())
	}
	estimate := parsed.Get("result.priorityFeeEstimate")
	if estimate.Type != gjson.Number {
		return 0, errors.New("priorityFeeEstimate missing")
	}
	value := estimate.Float()
	if value < 0 || math.IsNaN(value) || value > math.MaxUint64 {
		return 0, fmt.Errorf("priorityFeeEstimate out of range: %v", value)
	}
	return uint64(math.Ceil(value)), nil
}
