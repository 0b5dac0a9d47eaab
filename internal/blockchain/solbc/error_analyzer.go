package solbc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// ErrorAnalyzer turns raw RPC and execution errors into short, user-facing messages
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// AnalyzeRPCError analyzes a jsonrpc.RPCError and extracts detailed information
func (ea *ErrorAnalyzer) AnalyzeRPCError(err error) map[string]interface{} {
	if err == nil {
		return map[string]interface{}{
			"error": "No error provided",
		}
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return map[string]interface{}{
			"type":    "generic_error",
			"message": err.Error(),
		}
	}

	result := map[string]interface{}{
		"type":    "rpc_error",
		"code":    rpcErr.Code,
		"message": rpcErr.Message,
	}

	if !strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		return result
	}
	result["simulation_failed"] = true

	dataMap, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return result
	}

	if logs, ok := dataMap["logs"].([]interface{}); ok {
		result["logs"] = logs
		for _, logEntry := range logs {
			logStr, ok := logEntry.(string)
			if !ok || !strings.Contains(logStr, "AnchorError occurred") {
				continue
			}
			anchorErr := ea.parseAnchorErrorLog(logStr)
			result["anchor_error"] = anchorErr
			ea.logger.Warn("Anchor error detected",
				zap.Int("code", anchorErr.Code),
				zap.String("name", anchorErr.Name),
				zap.String("message", anchorErr.Msg))
		}
	}

	if instrErr, ok := dataMap["err"]; ok && instrErr != nil {
		result["instruction_error"] = instrErr
	}

	return result
}

// Describe returns a one-line description suitable for a failed status event
func (ea *ErrorAnalyzer) Describe(err error) string {
	if err == nil {
		return ""
	}
	analysis := ea.AnalyzeRPCError(err)
	if analysis["type"] != "rpc_error" {
		return err.Error()
	}

	msg := fmt.Sprintf("%v", analysis["message"])
	if anchorErr, ok := analysis["anchor_error"].(AnchorError); ok && anchorErr.Name != "" {
		return fmt.Sprintf("%s: %s (%d) %s", msg, anchorErr.Name, anchorErr.Code, anchorErr.Msg)
	}
	if instrErr, ok := analysis["instruction_error"]; ok {
		return fmt.Sprintf("%s: %s", msg, FormatTransactionError(instrErr))
	}
	return msg
}

// FormatTransactionError renders the err field of a signature status,
// e.g. {"InstructionError":[0,{"Custom":6001}]}, as compact JSON.
func FormatTransactionError(txErr interface{}) string {
	if txErr == nil {
		return ""
	}
	if s, ok := txErr.(string); ok {
		return s
	}
	raw, err := json.Marshal(txErr)
	if err != nil {
		return fmt.Sprintf("%v", txErr)
	}
	return string(raw)
}

// parseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError occurred. Error Code: InstructionFallbackNotFound. Error Number: 101. Error Message: Fallback functions are not supported."
func (ea *ErrorAnalyzer) parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if parts := strings.SplitN(logStr, "Error Number:", 2); len(parts) == 2 {
		numParts := strings.Split(parts[1], ".")
		fmt.Sscanf(strings.TrimSpace(numParts[0]), "%d", &result.Code)
	}

	if parts := strings.SplitN(logStr, "Error Code:", 2); len(parts) == 2 {
		result.Name = strings.TrimSpace(strings.Split(parts[1], ".")[0])
	}

	if parts := strings.SplitN(logStr, "Error Message:", 2); len(parts) == 2 {
		result.Msg = strings.TrimSpace(strings.Split(parts[1], ".")[0])
	}

	return result
}
