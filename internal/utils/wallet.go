package utils

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

// Errors returned by wallet signature verification.
var (
	ErrInvalidSignature = errors.New("invalid wallet signature")
	ErrInvalidAddress   = errors.New("invalid wallet address")
)

// WalletLoginMessage builds the exact challenge text a wallet must sign to
// log in. The nonce binds the message to a single server-issued challenge
// so a captured signature cannot be replayed.
func WalletLoginMessage(address, nonce string) string {
	return fmt.Sprintf("rovify login\naddress: %s\nnonce: %s", strings.ToLower(address), nonce)
}

// NormalizeAddress lower-cases a 0x-prefixed 20-byte hex address and
// validates its shape.
func NormalizeAddress(addr string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(addr))
	if !strings.HasPrefix(a, "0x") || len(a) != 42 {
		return "", ErrInvalidAddress
	}
	if _, err := hex.DecodeString(a[2:]); err != nil {
		return "", ErrInvalidAddress
	}
	return a, nil
}

// RecoverSigner recovers the wallet address that produced an EIP-191
// personal_sign signature over message. The signature is the usual 65-byte
// r||s||v hex blob produced by wallets; v may be 0/1 or 27/28.
func RecoverSigner(message string, signature string) (string, error) {
	sigHex := strings.TrimPrefix(strings.TrimSpace(signature), "0x")
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != 65 {
		return "", ErrInvalidSignature
	}

	v := sig[64]
	if v < 27 {
		v += 27
	}
	if v != 27 && v != 28 {
		return "", ErrInvalidSignature
	}

	// RecoverCompact wants the recovery code first: [v][r][s].
	compact := make([]byte, 65)
	compact[0] = v
	copy(compact[1:], sig[:64])

	digest := personalSignDigest(message)
	pub, _, err := ecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return "", ErrInvalidSignature
	}

	// Address = last 20 bytes of Keccak-256 over the uncompressed public
	// key without its 0x04 prefix byte.
	raw := pub.SerializeUncompressed()
	h := sha3.NewLegacyKeccak256()
	h.Write(raw[1:])
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[12:]), nil
}

// VerifyWalletSignature checks that signature over message was produced by
// the claimed address. The comparison is case-insensitive per spec: wallets
// may return checksummed addresses while we store lower-case.
func VerifyWalletSignature(message, signature, claimedAddress string) error {
	claimed, err := NormalizeAddress(claimedAddress)
	if err != nil {
		return err
	}
	recovered, err := RecoverSigner(message, signature)
	if err != nil {
		return err
	}
	if !strings.EqualFold(recovered, claimed) {
		return ErrInvalidSignature
	}
	return nil
}

// personalSignDigest hashes message the way eth wallets do for
// personal_sign: Keccak-256 over the EIP-191 prefix plus the message.
func personalSignDigest(message string) []byte {
	h := sha3.NewLegacyKeccak256()
	fmt.Fprintf(h, "\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return h.Sum(nil)
}
