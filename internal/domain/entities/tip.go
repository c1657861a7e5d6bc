package entities

import (
	"math/big"
	"time"

	"github.com/volatiletech/null/v8"
)

// TimestampSource records where a tip's timestamp came from
type TimestampSource string

const (
	// TimestampSourceBlock is the timestamp of the block that emitted the log
	TimestampSourceBlock TimestampSource = "block"
	// TimestampSourceChain is the timestamp stored by the contract (getTip)
	TimestampSourceChain TimestampSource = "chain"
	// TimestampSourceObserved is the indexer's wall clock, used only as a fallback
	TimestampSourceObserved TimestampSource = "observed"
)

// Tip is an immutable record of one observed on-chain tip, keyed by TxHash
type Tip struct {
	TxHash          string          `json:"txHash"`
	TipIndex        string          `json:"tipIndex,omitempty"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Amount          string          `json:"amount"`
	Token           null.String     `json:"token"` // null = native asset
	Message         string          `json:"message"`
	Timestamp       int64           `json:"timestamp"`
	TimestampSource TimestampSource `json:"timestampSource"`
	BlockNumber     uint64          `json:"blockNumber,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// IsNative reports whether the tip was paid in the chain's native asset
func (t *Tip) IsNative() bool {
	return !t.Token.Valid
}

// ChainTip is the record returned by getTip(index)
type ChainTip struct {
	From      string
	To        string
	Amount    *big.Int
	Token     string
	Timestamp int64
	Message   string
}

// RecipientTipAggregate is the tip count and native-asset sum for one recipient
type RecipientTipAggregate struct {
	Address     string
	TipCount    uint64
	NativeTotal string
}

// TipStats is the platform-wide aggregate served by the stats endpoint
type TipStats struct {
	TotalCreators int64  `json:"totalCreators"`
	TotalTips     int64  `json:"totalTips"`
	TotalAmount   string `json:"totalAmount"`
}
