package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mezonai/powchain/jsonx"
)

// Transaction moves Amount from one account to another. Amount is signed and
// is not range checked: a negative amount credits the sender. Only from, to
// and amount are kept; any other key in an incoming payload is discarded, so
// duplicate detection and block hashes cover exactly these three fields.
type Transaction struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

func NewTransaction(from, to string, amount float64) Transaction {
	return Transaction{From: from, To: to, Amount: amount}
}

// Equal reports exact structural equality.
func (tx Transaction) Equal(other Transaction) bool {
	return tx.From == other.From && tx.To == other.To && tx.Amount == other.Amount
}

func (tx Transaction) Bytes() []byte {
	b, _ := jsonx.Marshal(tx)
	return b
}

func (tx Transaction) Hash() string {
	sum256 := sha256.Sum256(tx.Bytes())
	return hex.EncodeToString(sum256[:])
}

func (tx Transaction) String() string {
	return fmt.Sprintf("%s -> %s (%g)", tx.From, tx.To, tx.Amount)
}

// CloneTransactions returns an independent copy of txs, never nil.
func CloneTransactions(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	return out
}

// ErrIncompleteTransaction is returned when from, to or amount is absent.
var ErrIncompleteTransaction = errors.New("transaction requires from, to and amount")

type wireTransaction struct {
	From   *string  `json:"from"`
	To     *string  `json:"to"`
	Amount *float64 `json:"amount"`
}

// ParseTransaction decodes a JSON transaction whose three fields are all
// present. Empty strings and any amount are accepted; unknown keys are
// dropped.
func ParseTransaction(data []byte) (Transaction, error) {
	var wt wireTransaction
	if err := jsonx.Unmarshal(data, &wt); err != nil {
		return Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}
	if wt.From == nil || wt.To == nil || wt.Amount == nil {
		return Transaction{}, ErrIncompleteTransaction
	}
	return NewTransaction(*wt.From, *wt.To, *wt.Amount), nil
}
