package domain

import (
	"encoding/json"
	"time"
)

// TxKind names the builder that produced a transaction.
type TxKind string

const (
	TxKindBuy          TxKind = "buy"
	TxKindCreateMarket TxKind = "create_market"
	TxKindOrder        TxKind = "order"
)

// BuiltTx is an unsigned transaction handed to a wallet. KindBytes is empty
// when some object inputs are left for the wallet to resolve.
type BuiltTx struct {
	Digest      string          `json:"digest"`
	Kind        TxKind          `json:"kind"`
	Sender      string          `json:"sender,omitempty"`
	Transaction json.RawMessage `json:"transaction"`
	KindBytes   string          `json:"kind_bytes,omitempty"` // base64
	Unresolved  []string        `json:"unresolved,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
