package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

func TestIsNodeRejection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rpc error", &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed"}, true},
		{"wrapped rpc error", NewError(&jsonrpc.RPCError{Code: -32602}, "http://node", "sendTransaction"), true},
		{"http 400", &jsonrpc.HTTPError{Code: 400}, true},
		{"http 429", &jsonrpc.HTTPError{Code: 429}, false},
		{"http 502", &jsonrpc.HTTPError{Code: 502}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := IsNodeRejection(tt.err); got != tt.want {
			t.Errorf("%s: IsNodeRejection() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), true},
		{"net op", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, true},
		{"sentinel", NewError(ErrRateLimit, "http://node", "getSignatureStatuses"), true},
		{"http 503", &jsonrpc.HTTPError{Code: 503}, true},
		{"http 404", &jsonrpc.HTTPError{Code: 404}, false},
		{"connection reset text", errors.New("read: connection reset by peer"), true},
		{"rpc error", &jsonrpc.RPCError{Code: -32002, Message: "invalid"}, false},
	}
	for _, tt := range tests {
		if got := IsTransportError(tt.err); got != tt.want {
			t.Errorf("%s: IsTransportError() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
