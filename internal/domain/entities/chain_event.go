package entities

// EventType is the contract event name carried by a notification
type EventType string

const (
	EventProfileCreated EventType = "ProfileCreated"
	EventProfileUpdated EventType = "ProfileUpdated"
	EventTipSent        EventType = "TipSent"
)

// IsProfileEvent reports whether the event only signals that a profile changed
func (t EventType) IsProfileEvent() bool {
	return t == EventProfileCreated || t == EventProfileUpdated
}

// ChainEvent is a validated trigger for reconciliation. Payload fields are
// hints; profile state is always re-read from the chain.
type ChainEvent struct {
	Type           EventType
	Creator        string
	Tip            *TipPayload
	TxHash         string
	BlockNumber    uint64
	BlockTimestamp int64 // 0 when the source did not supply one
}

// TipPayload carries the normalized TipSent fields
type TipPayload struct {
	From     string
	To       string
	Amount   string
	Token    string // empty = native asset
	Message  string
	TipIndex string
}

// ReconcileResult describes what one reconciliation did to the store
type ReconcileResult struct {
	Event          EventType       `json:"event"`
	Address        string          `json:"address"`
	Exists         bool            `json:"exists"`
	Duplicate      bool            `json:"duplicate,omitempty"`
	CounterApplied bool            `json:"counterApplied,omitempty"`
	Profile        *CreatorProfile `json:"profile,omitempty"`
	Tip            *Tip            `json:"tip,omitempty"`
}
