package types

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/rexbrahh/lp-vault/audit"
	ledgertypes "github.com/rexbrahh/lp-vault/ledger/types"
)

// solDecimals is the exponent between lamports and SOL.
const solDecimals = 9

// HealthResponse represents the shape of /healthz responses.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// ErrorResponse is a generic API error payload. Codespace and Code are set
// for registered ledger errors.
type ErrorResponse struct {
	Error     string `json:"error"`
	Codespace string `json:"codespace,omitempty"`
	Code      uint32 `json:"code,omitempty"`
}

// ConfigResponse wraps the global config with its record address.
type ConfigResponse struct {
	Address string                   `json:"address"`
	Config  ledgertypes.GlobalConfig `json:"config"`
	FeePct  string                   `json:"fee_pct"`
}

// VaultResponse is a vault with SOL-denominated display values.
type VaultResponse struct {
	Address    string            `json:"address"`
	Vault      ledgertypes.Vault `json:"vault"`
	Status     string            `json:"status"`
	TVLSol     string            `json:"tvl_sol"`
	FeesSol    string            `json:"fees_paid_sol"`
	DepositSol string            `json:"deposits_sol"`
}

// PositionResponse is a position with SOL-denominated display values.
type PositionResponse struct {
	Address    string               `json:"address"`
	Position   ledgertypes.Position `json:"position"`
	Status     string               `json:"status"`
	Protocol   string               `json:"protocol"`
	Strategy   string               `json:"strategy"`
	TVLSol     string               `json:"tvl_sol"`
	FeePaidSol string               `json:"fee_paid_sol"`
}

// PositionsResponse lists an owner's positions in id order.
type PositionsResponse struct {
	Owner     string             `json:"owner"`
	Positions []PositionResponse `json:"positions"`
}

// BalanceResponse reports an identity's balance in the payments ledger.
type BalanceResponse struct {
	Identity string `json:"identity"`
	Lamports uint64 `json:"lamports"`
	SOL      string `json:"sol"`
}

// AddressResponse is a derived record address and its bump.
type AddressResponse struct {
	Address string `json:"address"`
	Bump    uint8  `json:"bump"`
}

// AuditResponse is the reconciliation report for one vault.
type AuditResponse = audit.Report

// InstructionRequest submits one encoded instruction. Accounts are base58
// addresses in instruction order; an account is treated as signing when it
// also appears in Signers. Data is the base64 wire encoding.
type InstructionRequest struct {
	Signers  []string `json:"signers"`
	Accounts []string `json:"accounts"`
	Data     string   `json:"data"`
}

// InstructionResponse reports the records an instruction produced.
type InstructionResponse struct {
	Instruction string                    `json:"instruction"`
	Owner       string                    `json:"owner,omitempty"`
	PositionID  *uint64                   `json:"position_id,omitempty"`
	Config      *ledgertypes.GlobalConfig `json:"config,omitempty"`
	Vault       *ledgertypes.Vault        `json:"vault,omitempty"`
	Position    *ledgertypes.Position     `json:"position,omitempty"`
}

// ErrNotFound indicates missing resources.
var ErrNotFound = errors.New("not found")

// ToSOL renders lamports as a fixed nine-decimal SOL amount.
func ToSOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -solDecimals).StringFixed(solDecimals)
}

// BpsToPercent renders basis points as a percentage with two decimals.
func BpsToPercent(bps uint16) string {
	return decimal.NewFromInt(int64(bps)).Shift(-2).StringFixed(2)
}

// NewVaultResponse decorates v for display.
func NewVaultResponse(addr string, v ledgertypes.Vault) VaultResponse {
	return VaultResponse{
		Address:    addr,
		Vault:      v,
		Status:     v.Status.String(),
		TVLSol:     ToSOL(v.TotalValueLocked),
		FeesSol:    ToSOL(v.TotalFeesPaid),
		DepositSol: ToSOL(v.TotalDeposits),
	}
}

// NewPositionResponse decorates p for display.
func NewPositionResponse(addr string, p ledgertypes.Position) PositionResponse {
	return PositionResponse{
		Address:    addr,
		Position:   p,
		Status:     p.Status.String(),
		Protocol:   p.Protocol.String(),
		Strategy:   p.Strategy.String(),
		TVLSol:     ToSOL(p.CurrentTVL),
		FeePaidSol: ToSOL(p.FeePaid),
	}
}
