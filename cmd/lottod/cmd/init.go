package cmd

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cryptolotto/internal/config"
	"cryptolotto/internal/fhe"
)

func initCmd(v *viper.Viper) *cobra.Command {
	var (
		owner     string
		digits    uint32
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write config.toml and generate the network key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home := homeDir(v)
			cfg := config.DefaultConfig()
			cfg.Home = home
			cfg.Lotto.Owner = owner
			cfg.Lotto.Digits = digits
			if err := cfg.Validate(); err != nil {
				return err
			}

			cfgPath := filepath.Join(cfg.ConfigDir(), config.ConfigFileName)
			if _, err := os.Stat(cfgPath); err == nil && !overwrite {
				return fmt.Errorf("%s already exists (use --overwrite)", cfgPath)
			}
			if err := config.WriteConfigFile(cfgPath, cfg); err != nil {
				return err
			}

			keyPath := cfg.KeyFilePath()
			key, err := fhe.LoadNetworkKey(keyPath)
			if err != nil || overwrite {
				if key, err = fhe.GenerateNetworkKey(rand.Reader); err != nil {
					return err
				}
				if err := key.Save(keyPath); err != nil {
					return err
				}
			}
			cmd.Printf("config:      %s\n", cfgPath)
			cmd.Printf("network key: %s\n", keyPath)
			cmd.Printf("public key:  %s\n", key.Public.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "lottery owner account written to the genesis defaults")
	cmd.Flags().Uint32Var(&digits, "digits", 4, "digits per ticket (4 or 6)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing config and network key")
	return cmd
}
