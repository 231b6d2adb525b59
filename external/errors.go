package external

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrOrderNotOpen = errors.New("order is not open")
)

type ChainErrorKind int

const (
	KindFatal ChainErrorKind = iota
	// KindAlreadyClosed means another actor closed the order first.
	KindAlreadyClosed
)

func (k ChainErrorKind) String() string {
	if k == KindAlreadyClosed {
		return "already_closed"
	}
	return "fatal"
}

// ChainError is a failed endpoint call with its revert reason, when one could be decoded.
type ChainError struct {
	Kind   ChainErrorKind
	Method string
	Reason string
	Err    error
}

func (e *ChainError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s reverted: %s", e.Method, e.Reason)
	}
	return fmt.Sprintf("%s failed: %v", e.Method, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

func (e *ChainError) Is(target error) bool {
	return target == ErrOrderNotOpen && e.Kind == KindAlreadyClosed
}

var alreadyClosedReasons = map[string]bool{
	"Order is not open": true,
}

const revertPrefix = "execution reverted: "

// ClassifyError maps an error returned by a call to the endpoint contract onto a ChainError.
func ClassifyError(method string, err error) error {
	if err == nil {
		return nil
	}
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr
	}
	reason := RevertReason(err)
	kind := KindFatal
	if alreadyClosedReasons[reason] {
		kind = KindAlreadyClosed
	}
	return &ChainError{
		Kind:   kind,
		Method: method,
		Reason: reason,
		Err:    err,
	}
}

// RevertReason extracts the Error(string) reason of a reverted call. The ABI encoded revert
// data attached to the JSON-RPC error is preferred; nodes that only report the reason in the
// message are handled by parsing the standard "execution reverted: " prefix.
func RevertReason(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, decodeErr := hexutil.Decode(s); decodeErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason
				}
			}
		}
	}
	msg := err.Error()
	if i := strings.Index(msg, revertPrefix); i >= 0 {
		return strings.TrimSpace(msg[i+len(revertPrefix):])
	}
	return ""
}
