package rpc

import (
	"errors"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/ledger"
	"github.com/LeJamon/goAMMd/internal/core/pool"
	"github.com/LeJamon/goAMMd/internal/service"
)

// RpcError is the error shape shared by the HTTP and WebSocket surfaces.
type RpcError struct {
	Code        int    `json:"error_code"`
	ErrorString string `json:"error"`
	Type        string `json:"type"`
	Message     string `json:"error_message,omitempty"`
}

func (e RpcError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorString
}

// RPC error codes. Every core error maps onto exactly one code so
// integrations can branch on error_code instead of parsing messages.
const (
	// Universal errors
	RpcUNKNOWN          = -1
	RpcMETHOD_NOT_FOUND = -32601
	RpcINVALID_PARAMS   = -32602
	RpcINTERNAL         = -32603
	RpcPARSE_ERROR      = -32700

	// General purpose errors
	RpcGENERAL           = 1
	RpcMISSING_COMMAND   = 2
	RpcCOMMAND_UNTRUSTED = 3
	RpcSHUT_DOWN         = 4
	RpcNOT_ENABLED       = 5

	// Pool errors
	RpcPOOL_NOT_FOUND       = 10
	RpcPOOL_EXISTS          = 11
	RpcNO_LIQUIDITY         = 12
	RpcZERO_AMOUNT          = 13
	RpcINSUFFICIENT_SHARES  = 14
	RpcINSUFFICIENT_RESERVE = 15
	RpcINSUFFICIENT_OUTPUT  = 16
	RpcINSUFFICIENT_MINT    = 17
	RpcREENTRANT_CALL       = 18

	// Asset and amount errors
	RpcINVALID_ASSET   = 20
	RpcDUPLICATE_ASSET = 21
	RpcINVALID_AMOUNT  = 22
	RpcAMOUNT_OVERFLOW = 23

	// Ledger errors
	RpcINVALID_ACCOUNT    = 25
	RpcINSUFFICIENT_FUNDS = 26
	RpcTRANSFER_FAILED    = 27
)

// Standard error constructors
func NewRpcError(code int, error, errorType, message string) *RpcError {
	return &RpcError{
		Code:        code,
		ErrorString: error,
		Type:        errorType,
		Message:     message,
	}
}

func RpcErrorUnknown(message string) *RpcError {
	return NewRpcError(RpcUNKNOWN, "unknown", "unknown", message)
}

func RpcErrorInvalidParams(message string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", "invalidParams", message)
}

func RpcErrorMethodNotFound(method string) *RpcError {
	return NewRpcError(RpcMETHOD_NOT_FOUND, "unknownCmd", "unknownCmd", "Unknown method: "+method)
}

func RpcErrorInternal(message string) *RpcError {
	return NewRpcError(RpcINTERNAL, "internal", "internal", message)
}

func RpcErrorShutDown(message string) *RpcError {
	return NewRpcError(RpcSHUT_DOWN, "shutDown", "shutDown", message)
}

func RpcErrorNotEnabled(feature string) *RpcError {
	return NewRpcError(RpcNOT_ENABLED, "notEnabled", "notEnabled", "Feature not enabled: "+feature)
}

func RpcErrorPoolNotFound(message string) *RpcError {
	return NewRpcError(RpcPOOL_NOT_FOUND, "poolNotFound", "poolNotFound", message)
}

// RpcErrorMissingField returns an error for a missing required field.
func RpcErrorMissingField(field string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", "invalidParams", "Missing field '"+field+"'.")
}

// RpcErrorInvalidField returns an error for an invalid field value.
func RpcErrorInvalidField(field string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", "invalidParams", "Invalid field '"+field+"'.")
}

// errorCodes maps each core sentinel onto its code and error string. The
// order matters where sentinels wrap each other; more specific entries
// come first.
var errorCodes = []struct {
	target error
	code   int
	str    string
}{
	{service.ErrPoolNotFound, RpcPOOL_NOT_FOUND, "poolNotFound"},
	{service.ErrPoolExists, RpcPOOL_EXISTS, "poolExists"},
	{service.ErrClosed, RpcSHUT_DOWN, "shutDown"},
	{pool.ErrNoLiquidity, RpcNO_LIQUIDITY, "noLiquidity"},
	{pool.ErrZeroAmount, RpcZERO_AMOUNT, "zeroAmount"},
	{pool.ErrInsufficientShares, RpcINSUFFICIENT_SHARES, "insufficientShares"},
	{pool.ErrInsufficientReserve, RpcINSUFFICIENT_RESERVE, "insufficientReserve"},
	{pool.ErrInsufficientOutputAmount, RpcINSUFFICIENT_OUTPUT, "insufficientOutput"},
	{pool.ErrInsufficientLiquidityMinted, RpcINSUFFICIENT_MINT, "insufficientMint"},
	{pool.ErrReentrantCall, RpcREENTRANT_CALL, "reentrantCall"},
	{pool.ErrInvalidAccount, RpcINVALID_ACCOUNT, "invalidAccount"},
	{asset.ErrDuplicateAsset, RpcDUPLICATE_ASSET, "duplicateAsset"},
	{asset.ErrInvalidAsset, RpcINVALID_ASSET, "invalidAsset"},
	{amount.ErrInvalidAmount, RpcINVALID_AMOUNT, "invalidAmount"},
	{amount.ErrNegative, RpcINVALID_AMOUNT, "invalidAmount"},
	{amount.ErrOverflow, RpcAMOUNT_OVERFLOW, "amountOverflow"},
	{ledger.ErrInsufficientFunds, RpcINSUFFICIENT_FUNDS, "insufficientFunds"},
	{ledger.ErrTransferFailed, RpcTRANSFER_FAILED, "transferFailed"},
	{ledger.ErrInvalidAccount, RpcINVALID_ACCOUNT, "invalidAccount"},
}

// RpcErrorFromError maps a service or core error onto its typed RPC
// error. Unrecognized errors become internal errors.
func RpcErrorFromError(err error) *RpcError {
	if err == nil {
		return nil
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.target) {
			return NewRpcError(entry.code, entry.str, entry.str, err.Error())
		}
	}
	return RpcErrorInternal(err.Error())
}
