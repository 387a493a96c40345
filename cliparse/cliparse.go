package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string

	// Auth
	JWTSecret string
	Issuer    string
	Audience  string
	KeysDir   string

	// Chain (optional; empty RPCURL disables on-chain writes)
	RPCURL          string
	ContractAddress string
	OperatorKey     string
	ChainID         int64
}

// ParseFlags validates flags and fills in environment fallbacks
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("clear-vote", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Auth (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "HS256 secret for traditional sessions (prefer env)")
	fs.StringVar(&cfg.Issuer, "issuer", "", "Expected JWT issuer")
	fs.StringVar(&cfg.Audience, "audience", "", "Expected JWT audience")
	fs.StringVar(&cfg.KeysDir, "keys-dir", "", "Directory holding the RSA signing key pair")

	// Chain
	fs.StringVar(&cfg.RPCURL, "rpc-url", "", "Ledger RPC endpoint (empty disables chain writes)")
	fs.StringVar(&cfg.ContractAddress, "contract", "", "Voting contract address")
	fs.StringVar(&cfg.OperatorKey, "operator-key", "", "Hex private key of the funded operator (prefer env)")
	fs.Int64Var(&cfg.ChainID, "chain-id", 0, "Chain ID")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3000 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "postgres"
		}
	}

	// Auth - secret MUST be provided
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}

	if cfg.Issuer == "" {
		cfg.Issuer = os.Getenv("OIDC_ISSUER")
		if cfg.Issuer == "" {
			cfg.Issuer = "https://auth.clear-vote.app"
		}
	}
	if cfg.Audience == "" {
		cfg.Audience = os.Getenv("SMART_WALLET_AUDIENCE_ID")
		if cfg.Audience == "" {
			cfg.Audience = "clear-vote-app"
		}
	}
	if cfg.KeysDir == "" {
		cfg.KeysDir = os.Getenv("KEYS_DIR")
		if cfg.KeysDir == "" {
			cfg.KeysDir = "keys"
		}
	}

	// Chain settings are optional as a group: without an RPC URL the server
	// runs in chain-less mode and elections never receive onchain ids.
	if cfg.RPCURL == "" {
		cfg.RPCURL = os.Getenv("ALCHEMY_RPC_URL")
	}
	if cfg.ContractAddress == "" {
		cfg.ContractAddress = os.Getenv("CONTRACT_ADDRESS")
	}
	if cfg.OperatorKey == "" {
		cfg.OperatorKey = os.Getenv("PRIVATE_KEY_OWNER")
	}
	if cfg.ChainID == 0 {
		if idStr := os.Getenv("CHAIN_ID"); idStr != "" {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return Config{}, errors.New("invalid CHAIN_ID env variable")
			}
			cfg.ChainID = id
		} else {
			cfg.ChainID = 137 // Polygon mainnet
		}
	}
	if cfg.RPCURL != "" {
		if cfg.ContractAddress == "" {
			return Config{}, errors.New("CONTRACT_ADDRESS required when an RPC URL is set")
		}
		if cfg.OperatorKey == "" {
			return Config{}, errors.New("PRIVATE_KEY_OWNER required when an RPC URL is set")
		}
	}

	return cfg, nil
}

// ChainEnabled reports whether on-chain writes are configured.
func (c Config) ChainEnabled() bool {
	return c.RPCURL != ""
}
