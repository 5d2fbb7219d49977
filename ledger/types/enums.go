package types

import "fmt"

// VaultStatus is the lifecycle state of a vault.
type VaultStatus uint8

const (
	VaultActive VaultStatus = iota
	VaultPaused
	VaultClosed
)

func (s VaultStatus) String() string {
	switch s {
	case VaultActive:
		return "active"
	case VaultPaused:
		return "paused"
	case VaultClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// PositionStatus is the lifecycle state of a position. Open -> Closed only.
type PositionStatus uint8

const (
	PositionOpen PositionStatus = iota
	PositionClosed
)

func (s PositionStatus) String() string {
	switch s {
	case PositionOpen:
		return "open"
	case PositionClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Protocol tags the external pool program a position lives in.
type Protocol uint8

const (
	ProtocolDLMM Protocol = iota
	ProtocolDAMMv2
	ProtocolDAMMv1
	ProtocolDBC
	ProtocolAlphaVault
)

var protocolNames = [...]string{"dlmm", "damm_v2", "damm_v1", "dbc", "alpha_vault"}

// Valid reports whether p is a recognised protocol.
func (p Protocol) Valid() bool {
	return int(p) < len(protocolNames)
}

func (p Protocol) String() string {
	if !p.Valid() {
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
	return protocolNames[p]
}

// Strategy tags the automation applied to a position.
type Strategy uint8

const (
	StrategyManual Strategy = iota
	StrategyAutoCompound
	StrategyRangeRebalance
	StrategyStopLoss
	StrategyTakeProfit
	StrategyAutoCompoundRebalance
)

var strategyNames = [...]string{"manual", "auto_compound", "range_rebalance", "stop_loss", "take_profit", "auto_compound_rebalance"}

// Valid reports whether s is a recognised strategy.
func (s Strategy) Valid() bool {
	return int(s) < len(strategyNames)
}

func (s Strategy) String() string {
	if !s.Valid() {
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
	return strategyNames[s]
}
