// Package config provides the configuration schema and loader for the
// verivote server.
package config

import "time"

// LogLevel controls log verbosity for the verivote server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// FaceBackend selects the identity store implementation.
type FaceBackend string

const (
	// FaceBackendFile keeps profiles in a JSON document on disk, reloaded
	// before every operation.
	FaceBackendFile FaceBackend = "file"

	// FaceBackendPostgres keeps profiles in PostgreSQL with pgvector.
	FaceBackendPostgres FaceBackend = "postgres"
)

// IsValid reports whether b is a recognised face store backend.
func (b FaceBackend) IsValid() bool {
	return b == FaceBackendFile || b == FaceBackendPostgres
}

// FaceIndex selects the identification scan strategy.
type FaceIndex string

const (
	// FaceIndexNone performs the exact linear scan (or the store's own
	// nearest-neighbor pushdown).
	FaceIndexNone FaceIndex = "none"

	// FaceIndexHNSW maintains an in-memory approximate nearest-neighbor
	// index. Faster at scale, but the returned neighbor is approximate.
	FaceIndexHNSW FaceIndex = "hnsw"
)

// IsValid reports whether ix is a recognised face index mode.
func (ix FaceIndex) IsValid() bool {
	return ix == FaceIndexNone || ix == FaceIndexHNSW
}

// LedgerBackend selects the vote gate implementation.
type LedgerBackend string

const (
	// LedgerBackendEthereum talks to the deployed voting contract over
	// JSON-RPC.
	LedgerBackendEthereum LedgerBackend = "ethereum"

	// LedgerBackendMemory is a process-local gate for demos and tests.
	LedgerBackendMemory LedgerBackend = "memory"
)

// IsValid reports whether b is a recognised ledger backend.
func (b LedgerBackend) IsValid() bool {
	return b == LedgerBackendEthereum || b == LedgerBackendMemory
}

// Config is the root configuration structure for verivote.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	FaceStore FaceStoreConfig `yaml:"face_store"`
	Ledger    LedgerConfig    `yaml:"ledger"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":3000").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// CORSAllowedOrigin is the value served in Access-Control-Allow-Origin.
	// The browser capture frontend runs on a different origin. Default: "*".
	CORSAllowedOrigin string `yaml:"cors_allowed_origin"`

	// AuditLog is the path of the append-only vote audit trail. Empty
	// disables auditing.
	AuditLog string `yaml:"audit_log"`
}

// FaceStoreConfig selects and configures the identity store.
type FaceStoreConfig struct {
	// Backend chooses the store implementation.
	Backend FaceBackend `yaml:"backend"`

	// Path is the JSON document location for the file backend.
	Path string `yaml:"path"`

	// DSN is the PostgreSQL connection string for the postgres backend.
	DSN string `yaml:"dsn"`

	// Index selects the identification scan strategy.
	Index FaceIndex `yaml:"index"`
}

// LedgerConfig configures the vote gate.
type LedgerConfig struct {
	// Backend chooses the gate implementation.
	Backend LedgerBackend `yaml:"backend"`

	// RPCURL is the Ethereum JSON-RPC endpoint.
	RPCURL string `yaml:"rpc_url"`

	// ContractAddress is the deployed voting contract address.
	ContractAddress string `yaml:"contract_address"`

	// PrivateKey is the hex-encoded sender key for vote transactions.
	// Prefer supplying it via the VERIVOTE_LEDGER_KEY environment variable.
	PrivateKey string `yaml:"private_key"`

	// ChainID identifies the target chain; zero fetches it from the node.
	ChainID int64 `yaml:"chain_id"`

	// GasLimit caps the gas per vote transaction.
	GasLimit uint64 `yaml:"gas_limit"`

	// CallTimeout bounds each ledger round-trip.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// RetryBackoff is the pause before the single transient-failure retry.
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}
