package fhe

// Store persists ciphertexts and their access grants. Only handles that were
// granted to someone are ever written.
type Store interface {
	Ciphertext(h Handle) ([]byte, bool)
	PutCiphertext(h Handle, ct []byte)

	Allowed(h Handle, addr string) bool
	Grant(h Handle, addr string)

	IsPublic(h Handle) bool
	MarkPublic(h Handle)
}
