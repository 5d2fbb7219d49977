package main

import (
	"errors"
	"net/http"

	errorsmod "cosmossdk.io/errors"

	apitypes "github.com/rexbrahh/lp-vault/api/http/types"
	"github.com/rexbrahh/lp-vault/audit"
	"github.com/rexbrahh/lp-vault/ledger/types"
)

// errorStatuses maps registered ledger errors to HTTP status codes.
var errorStatuses = []struct {
	err    *errorsmod.Error
	status int
}{
	{types.ErrConfigNotFound, http.StatusNotFound},
	{types.ErrVaultNotFound, http.StatusNotFound},
	{types.ErrPositionNotFound, http.StatusNotFound},
	{types.ErrInvalidAuthority, http.StatusForbidden},
	{types.ErrUnauthorized, http.StatusForbidden},
	{types.ErrAlreadyExists, http.StatusConflict},
	{types.ErrProgramPaused, http.StatusConflict},
	{types.ErrVaultHasOpenPositions, http.StatusConflict},
	{types.ErrInvalidPositionStatus, http.StatusConflict},
	{types.ErrInvalidVaultStatus, http.StatusConflict},
	{types.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{types.ErrArithmeticOverflow, http.StatusUnprocessableEntity},
	{types.ErrUnsupportedInstruction, http.StatusNotImplemented},
	{types.ErrInvalidInstructionData, http.StatusBadRequest},
	{types.ErrNotEnoughAccounts, http.StatusBadRequest},
	{types.ErrInvalidDerivedAddress, http.StatusBadRequest},
	{types.ErrInvalidProtocol, http.StatusBadRequest},
	{types.ErrInvalidStrategy, http.StatusBadRequest},
	{types.ErrInvalidFeeConfig, http.StatusBadRequest},
	{types.ErrInvalidFeePercentages, http.StatusBadRequest},
}

// errorResponse classifies err. Unregistered errors are reported as an
// opaque internal error.
func errorResponse(err error) (int, apitypes.ErrorResponse) {
	if errors.Is(err, audit.ErrVaultChanged) {
		return http.StatusServiceUnavailable, apitypes.ErrorResponse{Error: err.Error()}
	}
	for _, entry := range errorStatuses {
		if errors.Is(err, entry.err) {
			return entry.status, apitypes.ErrorResponse{
				Error:     err.Error(),
				Codespace: entry.err.Codespace(),
				Code:      entry.err.ABCICode(),
			}
		}
	}
	return http.StatusInternalServerError, apitypes.ErrorResponse{Error: "internal error"}
}
