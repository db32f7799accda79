package server

import (
	"errors"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/defistate/clmm-oracle-go/ledger"
)

// JSON-RPC error codes for oracle error kinds.
const (
	CodeDecode               = -32001
	CodeInvalidConfiguration = -32002
	CodeUnauthorizedAccess   = -32003
	CodeArithmeticOverflow   = -32004
	CodeAccountNotFound      = -32005
	CodeInternal             = -32000
)

// Error carries an oracle error across the wire with a stable code.
type Error struct {
	Code int
	Msg  string
}

func (e *Error) Error() string  { return e.Msg }
func (e *Error) ErrorCode() int { return e.Code }

// toRPCError maps oracle error kinds to codes the client can switch on.
func toRPCError(err error) error {
	if err == nil {
		return nil
	}
	code := CodeInternal
	switch {
	case errors.Is(err, engine.ErrDecode):
		code = CodeDecode
	case errors.Is(err, engine.ErrInvalidConfiguration):
		code = CodeInvalidConfiguration
	case errors.Is(err, engine.ErrUnauthorizedAccess):
		code = CodeUnauthorizedAccess
	case errors.Is(err, engine.ErrArithmeticOverflow):
		code = CodeArithmeticOverflow
	case errors.Is(err, ledger.ErrAccountNotFound):
		code = CodeAccountNotFound
	}
	return &Error{Code: code, Msg: err.Error()}
}
