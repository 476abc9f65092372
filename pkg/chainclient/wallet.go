package chainclient

import (
	"crypto/ecdsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/util"
)

// Wallet signs ICON transactions with a secp256k1 key
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// NewWallet loads a wallet from a hex encoded secp256k1 private key
func NewWallet(privateKeyHex string) (*Wallet, error) {
	raw, err := util.DecodeHex(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet private key: %w", err)
	}
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet private key: %w", err)
	}
	return &Wallet{privateKey: key, address: AddressFromPublicKey(&key.PublicKey)}, nil
}

func (w *Wallet) Address() string {
	return w.address
}

// AddressFromPublicKey derives an "hx" address: the last 20 bytes of sha3_256 over the uncompressed key body
func AddressFromPublicKey(pub *ecdsa.PublicKey) string {
	uncompressed := crypto.FromECDSAPub(pub)
	digest := sha3.Sum256(uncompressed[1:])
	return "hx" + util.EncodeHex(digest[12:])
}

// Transaction is an ICX transfer
type Transaction struct {
	Version   *big.Int
	From      string
	To        string
	Value     *big.Int
	StepLimit *big.Int
	NID       *big.Int
	Nonce     *big.Int
	// Timestamp is in microseconds
	Timestamp int64
}

// NewTransfer builds a version 3 transfer stamped with the current time
func NewTransfer(nid *big.Int, from, to string, value, stepLimit *big.Int) *Transaction {
	return &Transaction{
		Version:   big.NewInt(3),
		From:      from,
		To:        to,
		Value:     value,
		StepLimit: stepLimit,
		NID:       nid,
		Timestamp: time.Now().UnixMicro(),
	}
}

// Params returns the transaction as icx_sendTransaction params, without a signature
func (tx *Transaction) Params() map[string]string {
	params := map[string]string{
		"version":   hexutil.EncodeBig(orZero(tx.Version)),
		"from":      tx.From,
		"to":        tx.To,
		"stepLimit": hexutil.EncodeBig(orZero(tx.StepLimit)),
		"nid":       hexutil.EncodeBig(orZero(tx.NID)),
		"timestamp": hexutil.EncodeBig(big.NewInt(tx.Timestamp)),
	}
	if tx.Value != nil {
		params["value"] = hexutil.EncodeBig(tx.Value)
	}
	if tx.Nonce != nil {
		params["nonce"] = hexutil.EncodeBig(tx.Nonce)
	}
	return params
}

// SignTransaction returns the signed icx_sendTransaction params
func (w *Wallet) SignTransaction(tx *Transaction) (map[string]string, error) {
	if tx.From != w.address {
		return nil, fmt.Errorf("transaction sender %s does not match wallet %s", tx.From, w.address)
	}
	params := tx.Params()
	hash := TransactionHash(params)
	sig, err := crypto.Sign(hash[:], w.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	params["signature"] = base64.StdEncoding.EncodeToString(sig)
	return params, nil
}

// TransactionHash is sha3_256 of the serialized transaction
func TransactionHash(params map[string]string) [32]byte {
	return sha3.Sum256([]byte(SerializeTransaction(params)))
}

// SerializeTransaction renders flat params as "icx_sendTransaction.k1.v1.k2.v2" in key order.
// Signature and txHash fields are excluded.
func SerializeTransaction(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "signature" || k == "txHash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(MethodSendTransaction)
	for _, k := range keys {
		b.WriteByte('.')
		b.WriteString(k)
		b.WriteByte('.')
		b.WriteString(escapeValue(params[k]))
	}
	return b.String()
}

var valueEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
)

func escapeValue(v string) string {
	return valueEscaper.Replace(v)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
