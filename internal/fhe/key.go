package fhe

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cryptolotto/internal/ocpcrypto"
)

// NetworkKey is the coprocessor key pair. Ciphertexts on chain are encrypted
// under Public; Secret never leaves the node.
type NetworkKey struct {
	Secret ocpcrypto.Scalar
	Public ocpcrypto.Point
}

type networkKeyFile struct {
	SecretKey string `json:"secretKey"`
	PublicKey string `json:"publicKey"`
}

func GenerateNetworkKey(r io.Reader) (NetworkKey, error) {
	sk, err := ocpcrypto.RandomScalar(r)
	if err != nil {
		return NetworkKey{}, err
	}
	return NetworkKeyFromSecret(sk), nil
}

func NetworkKeyFromSecret(sk ocpcrypto.Scalar) NetworkKey {
	return NetworkKey{Secret: sk, Public: ocpcrypto.MulBase(sk)}
}

func LoadNetworkKey(path string) (NetworkKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return NetworkKey{}, fmt.Errorf("read network key: %w", err)
	}
	var f networkKeyFile
	if err := json.Unmarshal(b, &f); err != nil {
		return NetworkKey{}, fmt.Errorf("decode network key: %w", err)
	}
	sk, err := ocpcrypto.ScalarFromHex(f.SecretKey)
	if err != nil {
		return NetworkKey{}, fmt.Errorf("network key secret: %w", err)
	}
	k := NetworkKeyFromSecret(sk)
	if f.PublicKey != "" && f.PublicKey != k.Public.Hex() {
		return NetworkKey{}, fmt.Errorf("network key: public key does not match secret")
	}
	return k, nil
}

func (k NetworkKey) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir key dir: %w", err)
	}
	b, err := json.MarshalIndent(networkKeyFile{SecretKey: k.Secret.Hex(), PublicKey: k.Public.Hex()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode network key: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write network key: %w", err)
	}
	return nil
}
