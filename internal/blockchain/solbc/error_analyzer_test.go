package solbc

import (
	"errors"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap/zaptest"
)

func TestDescribeSimulationFailure(t *testing.T) {
	ea := NewErrorAnalyzer(zaptest.NewLogger(t))
	err := &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 2",
		Data: map[string]interface{}{
			"logs": []interface{}{
				"Program log: AnchorError occurred. Error Code: TooMuchSolRequired. Error Number: 6002. Error Message: slippage exceeded.",
			},
		},
	}

	got := ea.Describe(err)
	if !strings.Contains(got, "TooMuchSolRequired (6002)") {
		t.Errorf("Describe() = %q", got)
	}
}

func TestDescribeInstructionError(t *testing.T) {
	ea := NewErrorAnalyzer(zaptest.NewLogger(t))
	err := &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Blockhash not found",
		Data:    map[string]interface{}{"err": "BlockhashNotFound"},
	}
	if got := ea.Describe(err); !strings.HasSuffix(got, ": BlockhashNotFound") {
		t.Errorf("Describe() = %q", got)
	}
}

func TestDescribeGenericError(t *testing.T) {
	ea := NewErrorAnalyzer(zaptest.NewLogger(t))
	if got := ea.Describe(errors.New("dial tcp: connection refused")); got != "dial tcp: connection refused" {
		t.Errorf("Describe() = %q", got)
	}
	if got := ea.Describe(nil); got != "" {
		t.Errorf("Describe(nil) = %q", got)
	}
}

func TestFormatTransactionError(t *testing.T) {
	txErr := map[string]interface{}{
		"InstructionError": []interface{}{float64(0), map[string]interface{}{"Custom": float64(6001)}},
	}
	if got := FormatTransactionError(txErr); got != `{"InstructionError":[0,{"Custom":6001}]}` {
		t.Errorf("FormatTransactionError() = %s", got)
	}
}
