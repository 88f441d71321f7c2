package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Chuksremi15/wiseramp-backend/internal/types/environments"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/vault"
)

type AppConfig struct {
	Environment environments.Environment
	ApiServer   ApiServerConfig
	Postgres    DBConnection
	Blockchain  BlockchainConfig
	Settlement  SettlementConfig
}

type ApiServerConfig struct {
	Port           string
	AllowedOrigins string
}

type DBConnection struct {
	Host string
	Port string
	User string
	Name string
	Pass string

	SSLMode string
}

type BlockchainConfig struct {
	// RPC endpoints keyed by chain name; chains without an endpoint
	// configured are treated as unsupported.
	EthereumRPCEndpoint string
	BaseRPCEndpoint     string
	PolygonRPCEndpoint  string

	VaultAddress string

	// VaultPrivateKey signs payout transactions from the vault.
	VaultPrivateKey string

	// CollectionWalletSeed is the hex-encoded master seed per-user
	// collection wallets are derived from.
	CollectionWalletSeed string
}

type SettlementConfig struct {
	// ScanInterval is how often each active chain is scanned for transfers.
	ScanInterval time.Duration
	// OrderTTL is how long an order may wait for its crypto leg before it
	// is expired.
	OrderTTL time.Duration
	// SweepMaxRetries caps automatic sweep attempts per queue entry.
	SweepMaxRetries int
}

func New() *AppConfig {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Loads .env.<env> if present; never overrides variables that are
	// already set in the environment.
	godotenv.Load(".env." + env)

	cfg := &AppConfig{
		Environment: environments.Environment(env),
		ApiServer: ApiServerConfig{
			Port:           envVarOrDefault("API_PORT", "8080"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
		Postgres: DBConnection{
			Host:    os.Getenv("DB_HOST"),
			Port:    os.Getenv("DB_PORT"),
			User:    os.Getenv("DB_USER"),
			Name:    os.Getenv("DB_NAME"),
			Pass:    os.Getenv("DB_PASS"),
			SSLMode: os.Getenv("DB_SSL_MODE"),
		},
		Blockchain: BlockchainConfig{
			EthereumRPCEndpoint: os.Getenv("BLOCKCHAIN_ETHEREUM_RPC_ENDPOINT"),
			BaseRPCEndpoint:     os.Getenv("BLOCKCHAIN_BASE_RPC_ENDPOINT"),
			PolygonRPCEndpoint:  os.Getenv("BLOCKCHAIN_POLYGON_RPC_ENDPOINT"),
			VaultAddress:        os.Getenv("BLOCKCHAIN_VAULT_ADDRESS"),
			VaultPrivateKey:     os.Getenv("BLOCKCHAIN_VAULT_PRIVATE_KEY"),

			CollectionWalletSeed: os.Getenv("BLOCKCHAIN_COLLECTION_WALLET_SEED"),
		},
		Settlement: SettlementConfig{
			ScanInterval:    envVarAsDuration("SETTLEMENT_SCAN_INTERVAL", 12*time.Second),
			OrderTTL:        envVarAsDuration("SETTLEMENT_ORDER_TTL", 20*time.Minute),
			SweepMaxRetries: envVarAsInt("SETTLEMENT_SWEEP_MAX_RETRIES", 3),
		},
	}

	cfg.loadVaultSecrets()
	return cfg
}

// loadVaultSecrets replaces signing secrets with values from HashiCorp
// Vault when an address is configured. Env-provided values stand in
// deployments without Vault (local, CI).
func (c *AppConfig) loadVaultSecrets() {
	addr := os.Getenv("SECRET_VAULT_ADDR")
	if addr == "" {
		return
	}

	client, err := vault.New(addr, os.Getenv("SECRET_VAULT_KV_PATH"), os.Getenv("SECRET_VAULT_ROLE"))
	if err != nil {
		panic(err)
	}

	if key, err := client.GetKV("vault_private_key"); err == nil {
		c.Blockchain.VaultPrivateKey = key
	}
	if seed, err := client.GetKV("collection_wallet_seed"); err == nil {
		c.Blockchain.CollectionWalletSeed = seed
	}
}

// RPCEndpointFor returns the configured RPC endpoint for a chain name, or
// an empty string when the chain is not configured.
func (c *AppConfig) RPCEndpointFor(chain string) string {
	switch chain {
	case "ethereum":
		return c.Blockchain.EthereumRPCEndpoint
	case "base":
		return c.Blockchain.BaseRPCEndpoint
	case "polygon":
		return c.Blockchain.PolygonRPCEndpoint
	default:
		return ""
	}
}

func envVarOrDefault(envName, fallback string) string {
	value := os.Getenv(envName)
	if value == "" {
		return fallback
	}
	return value
}

func envVarAsInt(envName string, fallback int) int {
	valueStr := os.Getenv(envName)
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func envVarAsDuration(envName string, fallback time.Duration) time.Duration {
	valueStr := os.Getenv(envName)
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback
	}
	return value
}
