// Package cmd is the node's CLI, grounded on the teacher's
// cmd/evmd/cmd/root.go cobra-root-plus-viper-config shape (flags bound
// into viper, a single resolved config passed down to the start
// command) with the entire Cosmos SDK client-context/keyring/AutoCLI
// layer stripped out: this node has no accounts module, no keyring,
// and no multi-command tx/query surface, only a config file or flags
// resolving one Config (spec §6 "CLI").
package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moved-network/moved/internal/config"
)

const envPrefix = "MOVED"

// NewRootCmd builds the node's root command: persistent flags for the
// config file and home directory, viper bound to both flags and an
// optional config.toml under home, with "start" as the only
// subcommand spec §6 requires.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	root := &cobra.Command{
		Use:   "moved",
		Short: "dual-VM (Move + EVM) rollup execution node",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindConfig(cmd, v)
		},
	}

	root.PersistentFlags().String("home", defaultHome(), "node home directory")
	root.PersistentFlags().String("config", "", "path to config.toml (default: <home>/config.toml)")
	root.PersistentFlags().String("auth.addr", "", "Engine API authenticated socket address")
	root.PersistentFlags().String("auth.jwt_secret", "", "Engine API JWT secret, hex-encoded")
	root.PersistentFlags().String("http.addr", "", "JSON-RPC socket address")
	root.PersistentFlags().String("db.backend", "", "storage backend: in-memory | pebble | goleveldb")
	root.PersistentFlags().String("db.dir", "", "storage directory")
	root.PersistentFlags().Bool("db.purge", false, "wipe the storage directory on startup")
	root.PersistentFlags().Int("max_buffered_commands", 0, "command actor queue capacity")
	root.PersistentFlags().Uint64("genesis.chain_id", 0, "genesis chain id")
	root.PersistentFlags().String("genesis.initial_state_root", "", "genesis state root, hex-encoded")
	root.PersistentFlags().String("genesis.treasury", "", "treasury address")
	root.PersistentFlags().String("genesis.l2_contracts_path", "", "L2 contract genesis file path")
	root.PersistentFlags().String("genesis.token_list_path", "", "token list file path")
	root.PersistentFlags().Uint64("genesis.base_fee", 0, "genesis block base fee")

	root.AddCommand(NewStartCmd(v))
	return root
}

func bindConfig(cmd *cobra.Command, v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return err
	}

	home := v.GetString("home")
	cfgFile := v.GetString("config")
	if cfgFile == "" && home != "" {
		cfgFile = filepath.Join(home, "config.toml")
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return nil
}

func defaultHome() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ".moved"
	}
	return filepath.Join(dir, ".moved")
}
