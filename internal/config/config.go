// Package config loads the node's configuration: the auth and HTTP
// socket addresses, the storage backend selection, genesis parameters,
// and the command actor's queue capacity (spec §6 "CLI"). Loading goes
// through spf13/viper the way the teacher's cmd/evmd root command
// binds its app.toml/client.toml settings, but without any of the
// Cosmos SDK client-context, keyring, or AutoCLI plumbing that config
// pulls in — this node has no accounts module and no keyring.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/moved-network/moved/internal/types"
)

// Backend selects the KV storage engine the store ports are built on
// (spec §6: "db backend (in-memory | heed | rocksdb)"). heed has no Go
// analogue in the retrieval pack; rocksdb is represented here by the
// teacher's cosmos-db dependency, which wraps both pebble and
// goleveldb behind one Go API.
type Backend string

const (
	BackendMemory  Backend = "in-memory"
	BackendPebble  Backend = "pebble"
	BackendGoLevel Backend = "goleveldb"
)

// DefaultMaxBufferedCommands is the command actor's channel capacity
// (internal/actor.DefaultQueueCapacity) when the config file or flags
// leave it unset.
const DefaultMaxBufferedCommands = 1000

// Socket is a bound TCP listener address plus, for the auth socket
// only, the JWT secret used to validate Engine API bearer tokens.
type Socket struct {
	Addr      string
	JWTSecret []byte
}

// Genesis carries the parameters the very first committed block is
// derived from (spec §6: "genesis chain_id, initial_state_root,
// treasury address, L2 contract genesis path, token-list path").
type Genesis struct {
	ChainID           uint64
	InitialStateRoot  common.Hash
	Treasury          common.Address
	L2ContractsPath   string
	TokenListPath     string
	GenesisBaseFee    uint64
}

// Config is the fully-resolved set of settings cmd/moved's start
// command needs to assemble the node (spec §6).
type Config struct {
	Auth    Socket
	HTTP    Socket
	Backend Backend
	DBDir   string
	Purge   bool

	Genesis Genesis

	MaxBufferedCommands int
}

// Load resolves a Config from a viper instance already populated by
// cmd/moved's flag/config-file binding, following the teacher's
// pattern of reading settings through a single AppOptions-like surface
// rather than threading individual flag values through the call
// graph.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Auth: Socket{
			Addr: v.GetString("auth.addr"),
		},
		HTTP: Socket{
			Addr: v.GetString("http.addr"),
		},
		Backend:             Backend(v.GetString("db.backend")),
		DBDir:               v.GetString("db.dir"),
		Purge:               v.GetBool("db.purge"),
		MaxBufferedCommands: v.GetInt("max_buffered_commands"),
	}

	if cfg.MaxBufferedCommands <= 0 {
		cfg.MaxBufferedCommands = DefaultMaxBufferedCommands
	}
	if cfg.Auth.Addr == "" {
		cfg.Auth.Addr = "127.0.0.1:8551"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = "127.0.0.1:8545"
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendMemory
	}

	secretHex := strings.TrimPrefix(v.GetString("auth.jwt_secret"), "0x")
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("config: invalid auth.jwt_secret: %w", err)
	}
	cfg.Auth.JWTSecret = secret

	cfg.Genesis = Genesis{
		ChainID:          v.GetUint64("genesis.chain_id"),
		Treasury:         common.HexToAddress(v.GetString("genesis.treasury")),
		L2ContractsPath:  v.GetString("genesis.l2_contracts_path"),
		TokenListPath:    v.GetString("genesis.token_list_path"),
		GenesisBaseFee:   v.GetUint64("genesis.base_fee"),
	}
	if raw := v.GetString("genesis.initial_state_root"); raw != "" {
		cfg.Genesis.InitialStateRoot = common.HexToHash(raw)
	} else {
		cfg.Genesis.InitialStateRoot = types.EmptyRootHash
	}

	switch cfg.Backend {
	case BackendMemory, BackendPebble, BackendGoLevel:
	default:
		return nil, fmt.Errorf("config: unknown db backend %q", cfg.Backend)
	}

	return cfg, nil
}

// SetDefaults registers every key Load reads, so a freshly generated
// config file documents every setting even before the operator edits
// it, the same role the teacher's InitAppConfig template plays for
// app.toml.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("auth.addr", "127.0.0.1:8551")
	v.SetDefault("http.addr", "127.0.0.1:8545")
	v.SetDefault("db.backend", string(BackendMemory))
	v.SetDefault("db.dir", "")
	v.SetDefault("db.purge", false)
	v.SetDefault("max_buffered_commands", DefaultMaxBufferedCommands)
	v.SetDefault("genesis.chain_id", 0)
	v.SetDefault("genesis.initial_state_root", "")
	v.SetDefault("genesis.treasury", "0x0000000000000000000000000000000000000000")
	v.SetDefault("genesis.l2_contracts_path", "")
	v.SetDefault("genesis.token_list_path", "")
	v.SetDefault("genesis.base_fee", 0)
}
