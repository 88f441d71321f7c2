package treasury

import (
	"crypto/ecdsa"
	"encoding/hex"
	"hash/fnv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	btcchaincfg "github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// KeyProvider resolves the signing key that controls a user's collection
// address.
type KeyProvider interface {
	PrivateKeyFor(userID, address string) (*ecdsa.PrivateKey, error)
}

// HDKeyProvider derives per-user collection wallets from a master seed
// along the standard ethereum path m/44'/60'/0'/0/index. The account index
// is a stable hash of the user ID, so the same user always maps to the
// same wallet.
type HDKeyProvider struct {
	master *hdkeychain.ExtendedKey
}

func NewHDKeyProvider(seedHex string) (*HDKeyProvider, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(seedHex, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid wallet seed")
	}

	master, err := hdkeychain.NewMaster(seed, &btcchaincfg.MainNetParams)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build master key")
	}

	return &HDKeyProvider{master: master}, nil
}

func (p *HDKeyProvider) PrivateKeyFor(userID, address string) (*ecdsa.PrivateKey, error) {
	key, err := p.deriveKey(accountIndex(userID))
	if err != nil {
		return nil, err
	}

	// The derived address must control the collection address the deposit
	// was observed at, otherwise the sweep would silently sign with the
	// wrong wallet.
	derived := crypto.PubkeyToAddress(key.PublicKey)
	if address != "" && derived != common.HexToAddress(address) {
		return nil, errors.Errorf("derived wallet %s does not control %s", derived.Hex(), address)
	}

	return key, nil
}

// AddressFor returns the collection address derived for a user.
func (p *HDKeyProvider) AddressFor(userID string) (string, error) {
	key, err := p.deriveKey(accountIndex(userID))
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}

func (p *HDKeyProvider) deriveKey(index uint32) (*ecdsa.PrivateKey, error) {
	path := []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + 60,
		hdkeychain.HardenedKeyStart,
		0,
		index,
	}

	key := p.master
	var err error
	for _, step := range path {
		key, err = key.Derive(step)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive child %d", step)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract private key")
	}
	return priv.ToECDSA(), nil
}

func accountIndex(userID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(userID))
	// Keep the index in the non-hardened range.
	return h.Sum32() & 0x7fffffff
}
