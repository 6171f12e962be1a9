package pool

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/puzpuzpuz/xsync/v4"
)

const vaultModuleName = "perps_pool_vault"

// VaultAddress derives the custodial address of a perps pool: the bech32 encoding of
// the first 20 bytes of sha256("perps_pool_vault" + id).
func VaultAddress(prefix, id string) (string, error) {
	sum := sha256.Sum256([]byte(vaultModuleName + id))
	words, err := bech32.ConvertBits(sum[:20], 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert vault hash: %w", err)
	}
	addr, err := bech32.Encode(prefix, words)
	if err != nil {
		return "", fmt.Errorf("encode vault address: %w", err)
	}
	return addr, nil
}

// Vaults memoizes vault addresses for one bech32 prefix.
type Vaults struct {
	prefix string
	memo   *xsync.Map[string, string]
}

func NewVaults(prefix string) *Vaults {
	return &Vaults{prefix: prefix, memo: xsync.NewMap[string, string]()}
}

func (v *Vaults) Prefix() string { return v.prefix }

// Address returns the vault address of pool id.
func (v *Vaults) Address(id string) (string, error) {
	if addr, ok := v.memo.Load(id); ok {
		return addr, nil
	}
	addr, err := VaultAddress(v.prefix, id)
	if err != nil {
		return "", err
	}
	v.memo.Store(id, addr)
	return addr, nil
}
