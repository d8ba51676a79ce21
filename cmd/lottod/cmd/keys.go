package cmd

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cryptolotto/internal/ocpcrypto"
)

// keyFile is an account's local key material: the ed25519 key that signs
// transactions and the ristretto255 key gateway re-encryptions target.
type keyFile struct {
	Account       string `json:"account"`
	PubKey        string `json:"pubKey"`
	PrivKeySeed   string `json:"privKeySeed"`
	DecryptSecret string `json:"decryptSecret"`
	DecryptPublic string `json:"decryptPublic"`
}

func keyPath(home, account string) string {
	return filepath.Join(home, "keys", account+".json")
}

func keysCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage local account keys",
	}
	cmd.AddCommand(keysAddCmd(v), keysShowCmd(v))
	return cmd
}

func keysAddCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "add <account>",
		Short: "Generate signing and decryption keys for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := keyPath(homeDir(v), args[0])
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("key %q already exists", args[0])
			}
			pub, priv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return err
			}
			sk, err := ocpcrypto.RandomScalar(rand.Reader)
			if err != nil {
				return err
			}
			kf := keyFile{
				Account:       args[0],
				PubKey:        hex.EncodeToString(pub),
				PrivKeySeed:   hex.EncodeToString(priv.Seed()),
				DecryptSecret: sk.Hex(),
				DecryptPublic: ocpcrypto.MulBase(sk).Hex(),
			}
			b, err := json.MarshalIndent(kf, "", "  ")
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return err
			}
			if err := os.WriteFile(path, b, 0o600); err != nil {
				return err
			}
			cmd.Printf("%s\npubKey: %s\ndecryptPublic: %s\n", path, kf.PubKey, kf.DecryptPublic)
			return nil
		},
	}
}

func keysShowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show <account>",
		Short: "Print an account's public keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(keyPath(homeDir(v), args[0]))
			if err != nil {
				return err
			}
			var kf keyFile
			if err := json.Unmarshal(b, &kf); err != nil {
				return fmt.Errorf("decode key file: %w", err)
			}
			out, err := json.MarshalIndent(map[string]string{
				"account":       kf.Account,
				"pubKey":        kf.PubKey,
				"decryptPublic": kf.DecryptPublic,
			}, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		},
	}
}
