package cmd

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cryptolotto/internal/config"
	"cryptolotto/internal/fhe"
	"cryptolotto/internal/lotto"
	"cryptolotto/internal/ocpcrypto"
	"cryptolotto/internal/randomness"
)

func encryptCmd(v *viper.Viper) *cobra.Command {
	var (
		sender     string
		contract   string
		networkKey string
	)
	cmd := &cobra.Command{
		Use:   "encrypt <digit>...",
		Short: "Encrypt digits with range proofs for lotto/buy_ticket or lotto/close_and_draw",
		Args:  cobra.RangeArgs(1, fhe.MaxInputValues),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sender == "" {
				return fmt.Errorf("--sender is required")
			}
			pk, err := resolveNetworkKey(v, networkKey)
			if err != nil {
				return err
			}
			digits := make([]uint64, len(args))
			for i, a := range args {
				d, err := strconv.ParseUint(a, 10, 64)
				if err != nil || d >= randomness.DigitBound {
					return fmt.Errorf("digit %d: %q is not in [0,%d)", i, a, randomness.DigitBound)
				}
				digits[i] = d
			}
			in, err := fhe.EncryptInput(pk, contract, sender, digits, randomness.DigitBound, rand.Reader)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(in, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "", "account that will submit the input")
	cmd.Flags().StringVar(&contract, "contract", lotto.ContractAddress, "contract the input is bound to")
	cmd.Flags().StringVar(&networkKey, "network-key", "", "hex network public key (default: read from the node key file)")
	return cmd
}

func resolveNetworkKey(v *viper.Viper, hexKey string) (ocpcrypto.Point, error) {
	if hexKey != "" {
		return ocpcrypto.PointFromHex(hexKey)
	}
	cfg, err := config.Load(v, homeDir(v))
	if err != nil {
		return ocpcrypto.Point{}, err
	}
	key, err := fhe.LoadNetworkKey(cfg.KeyFilePath())
	if err != nil {
		return ocpcrypto.Point{}, err
	}
	return key.Public, nil
}
