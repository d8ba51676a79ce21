package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	BinaryName  = "lottod"
	flagHome    = "home"
	defaultHome = ".lotto"
)

// Version is set at build time with -ldflags "-X cryptolotto/cmd/lottod/cmd.Version=...".
var Version = "dev"

// NewRootCmd creates the root command for lottod. It is called once in main.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           BinaryName,
		Short:         "confidential lottery ABCI application",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetOut(cmd.OutOrStdout())
			cmd.SetErr(cmd.ErrOrStderr())
			return v.BindPFlag(flagHome, cmd.Flags().Lookup(flagHome))
		},
	}
	rootCmd.PersistentFlags().String(flagHome, defaultHome, "node home directory (config/ and data/ live under it)")

	rootCmd.AddCommand(
		initCmd(v),
		startCmd(v),
		keysCmd(v),
		encryptCmd(v),
		versionCmd(),
	)
	return rootCmd
}

func homeDir(v *viper.Viper) string {
	return v.GetString(flagHome)
}
