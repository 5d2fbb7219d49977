package ledger

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rexbrahh/lp-vault/address"
)

// DefaultProgramID is the program identity used when none is configured.
const DefaultProgramID = "EwRkZPFpeX4s33tUKa8djnEVPKWcti6Rxpz3XpgWTf47"

const (
	envProgramID        = "LEDGER_PROGRAM_ID"
	envEnableCloseVault = "LEDGER_ENABLE_CLOSE_VAULT"
)

// Config holds the engine-wide settings.
type Config struct {
	ProgramID address.Address
	// EnableCloseVault admits the CloseVault instruction at the processor.
	EnableCloseVault bool
}

// DefaultConfig returns the default program identity with CloseVault disabled.
func DefaultConfig() Config {
	return Config{ProgramID: address.MustParse(DefaultProgramID)}
}

// Validate ensures the program identity is set.
func (c Config) Validate() error {
	if c.ProgramID.IsZero() {
		return fmt.Errorf("program id is required")
	}
	return nil
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	if v := os.Getenv(envProgramID); v != "" {
		id, err := address.Parse(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envProgramID, err)
		}
		cfg.ProgramID = id
	}
	if v := os.Getenv(envEnableCloseVault); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envEnableCloseVault, err)
		}
		cfg.EnableCloseVault = enabled
	}
	return cfg, cfg.Validate()
}
