package types

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace groups every ledger error code.
const Codespace = "lpvault"

// Ledger errors. Codes 2-17 follow the on-chain program's numbering shifted
// by two; 3 (vault paused), 6 (position closed) and 17 (session wallet
// mismatch) are reserved and reported through the status errors instead.
var (
	ErrInvalidAuthority      = errorsmod.Register(Codespace, 2, "invalid authority")
	ErrVaultHasOpenPositions = errorsmod.Register(Codespace, 4, "vault has open positions")
	ErrPositionNotFound      = errorsmod.Register(Codespace, 5, "position not found")
	ErrInsufficientFunds     = errorsmod.Register(Codespace, 7, "insufficient funds")
	ErrInvalidDerivedAddress = errorsmod.Register(Codespace, 8, "invalid derived address")
	ErrInvalidProtocol       = errorsmod.Register(Codespace, 9, "invalid protocol")
	ErrProgramPaused         = errorsmod.Register(Codespace, 10, "program is paused")
	ErrUnauthorized          = errorsmod.Register(Codespace, 11, "unauthorized")
	ErrInvalidFeeConfig      = errorsmod.Register(Codespace, 12, "invalid fee configuration")
	ErrArithmeticOverflow    = errorsmod.Register(Codespace, 13, "arithmetic overflow")
	ErrInvalidPositionStatus = errorsmod.Register(Codespace, 14, "invalid position status")
	ErrInvalidVaultStatus    = errorsmod.Register(Codespace, 15, "invalid vault status")
	ErrInvalidFeePercentages = errorsmod.Register(Codespace, 16, "fee percentages must sum to 100")

	ErrAlreadyExists          = errorsmod.Register(Codespace, 18, "record already exists")
	ErrConfigNotFound         = errorsmod.Register(Codespace, 19, "config not initialized")
	ErrVaultNotFound          = errorsmod.Register(Codespace, 20, "vault not found")
	ErrInvalidStrategy        = errorsmod.Register(Codespace, 21, "invalid strategy")
	ErrInvalidRecord          = errorsmod.Register(Codespace, 22, "invalid record data")
	ErrInvalidInstructionData = errorsmod.Register(Codespace, 23, "invalid instruction data")
	ErrNotEnoughAccounts      = errorsmod.Register(Codespace, 24, "not enough account keys")
	ErrUnsupportedInstruction = errorsmod.Register(Codespace, 25, "unsupported instruction")
)
