package solbc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// Сигнальные ошибки узла, распознаваемые по тексту RPC-ответа.
var (
	ErrAlreadyProcessed  = errors.New("transaction already processed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBlockhashNotFound = errors.New("blockhash not found")
)

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// Analysis is the structured view of a failed send or simulation.
type Analysis struct {
	Code        int
	Message     string
	Logs        []string
	Anchor      *AnchorError
	Instruction any
	Kind        error // one of the sentinels above, or nil
}

// ErrorAnalyzer provides methods to analyze Solana transaction errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// Analyze разбирает ошибку отправки: код, сообщение, логи программ и вид ошибки.
func (ea *ErrorAnalyzer) Analyze(err error) Analysis {
	if err == nil {
		return Analysis{}
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return Analysis{Message: err.Error(), Kind: classify(err.Error(), nil)}
	}

	result := Analysis{Code: rpcErr.Code, Message: rpcErr.Message}
	if dataMap, ok := rpcErr.Data.(map[string]interface{}); ok {
		if logs, ok := dataMap["logs"].([]interface{}); ok {
			for _, entry := range logs {
				line, ok := entry.(string)
				if !ok {
					continue
				}
				result.Logs = append(result.Logs, line)
				if strings.Contains(line, "AnchorError occurred") {
					anchorErr := parseAnchorErrorLog(line)
					result.Anchor = &anchorErr
					ea.logger.Warn("Anchor error detected",
						zap.Int("code", anchorErr.Code),
						zap.String("name", anchorErr.Name),
						zap.String("message", anchorErr.Msg))
				}
			}
		}
		if instrErr, ok := dataMap["err"]; ok {
			result.Instruction = instrErr
		}
	}
	result.Kind = classify(rpcErr.Message, result.Logs)
	return result
}

// Logs returns the program logs carried by an RPC error, if any.
func (ea *ErrorAnalyzer) Logs(err error) []string {
	return ea.Analyze(err).Logs
}

func classify(message string, logs []string) error {
	haystack := strings.ToLower(message + "\n" + strings.Join(logs, "\n"))
	switch {
	case strings.Contains(haystack, "already been processed"),
		strings.Contains(haystack, "alreadyprocessed"):
		return ErrAlreadyProcessed
	case strings.Contains(haystack, "insufficient funds"),
		strings.Contains(haystack, "insufficient lamports"):
		return ErrInsufficientFunds
	case strings.Contains(haystack, "blockhash not found"):
		return ErrBlockhashNotFound
	}
	return nil
}

// parseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError occurred. Error Code: InstructionFallbackNotFound. Error Number: 101. Error Message: Fallback functions are not supported."
func parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if _, after, ok := strings.Cut(logStr, "Error Number:"); ok {
		num, _, _ := strings.Cut(after, ".")
		fmt.Sscanf(strings.TrimSpace(num), "%d", &result.Code)
	}
	if _, after, ok := strings.Cut(logStr, "Error Code:"); ok {
		name, _, _ := strings.Cut(after, ".")
		result.Name = strings.TrimSpace(name)
	}
	if _, after, ok := strings.Cut(logStr, "Error Message:"); ok {
		result.Msg = strings.TrimSuffix(strings.TrimSpace(after), ".")
	}

	return result
}
