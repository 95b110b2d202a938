package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// envLedgerKey is the environment variable that overrides
// [LedgerConfig.PrivateKey] so the key does not have to live in the config
// file.
const envLedgerKey = "VERIVOTE_LEDGER_KEY"

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// environment overrides, and validates the result. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	applyDefaults(cfg)
	if key := os.Getenv(envLedgerKey); key != "" {
		cfg.Ledger.PrivateKey = key
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-value fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":3000"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.CORSAllowedOrigin == "" {
		cfg.Server.CORSAllowedOrigin = "*"
	}
	if cfg.FaceStore.Backend == "" {
		cfg.FaceStore.Backend = FaceBackendFile
	}
	if cfg.FaceStore.Path == "" {
		cfg.FaceStore.Path = "faces.json"
	}
	if cfg.FaceStore.Index == "" {
		cfg.FaceStore.Index = FaceIndexNone
	}
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = LedgerBackendMemory
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if !cfg.FaceStore.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("face_store.backend %q is invalid; valid values: file, postgres", cfg.FaceStore.Backend))
	}
	if cfg.FaceStore.Backend == FaceBackendPostgres && cfg.FaceStore.DSN == "" {
		errs = append(errs, errors.New("face_store.dsn is required when backend is postgres"))
	}
	if !cfg.FaceStore.Index.IsValid() {
		errs = append(errs, fmt.Errorf("face_store.index %q is invalid; valid values: none, hnsw", cfg.FaceStore.Index))
	}

	if !cfg.Ledger.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("ledger.backend %q is invalid; valid values: ethereum, memory", cfg.Ledger.Backend))
	}
	if cfg.Ledger.Backend == LedgerBackendEthereum {
		if cfg.Ledger.RPCURL == "" {
			errs = append(errs, errors.New("ledger.rpc_url is required when backend is ethereum"))
		}
		if cfg.Ledger.ContractAddress == "" {
			errs = append(errs, errors.New("ledger.contract_address is required when backend is ethereum"))
		}
		if cfg.Ledger.PrivateKey == "" {
			errs = append(errs, fmt.Errorf("ledger.private_key is required when backend is ethereum (or set %s)", envLedgerKey))
		}
	}
	if cfg.Ledger.CallTimeout < 0 {
		errs = append(errs, errors.New("ledger.call_timeout must not be negative"))
	}
	if cfg.Ledger.RetryBackoff < 0 {
		errs = append(errs, errors.New("ledger.retry_backoff must not be negative"))
	}

	return errors.Join(errs...)
}
