package entities

import "time"

// SyncMode selects which on-chain addresses a bulk sync reconciles
type SyncMode string

const (
	// SyncModeMissing reconciles only addresses not marked existing in the store
	SyncModeMissing SyncMode = "missing"
	// SyncModeFull re-fetches every on-chain address, overwriting counter drift
	SyncModeFull SyncMode = "full"
)

// SyncOptions configures one bulk sync run
type SyncOptions struct {
	Full bool
}

// Mode returns the SyncMode for the options
func (o SyncOptions) Mode() SyncMode {
	if o.Full {
		return SyncModeFull
	}
	return SyncModeMissing
}

// SyncReport is the aggregate outcome of one bulk sync run
type SyncReport struct {
	RunID           string        `json:"runId"`
	Mode            SyncMode      `json:"mode"`
	OnChain         int           `json:"onChain"`
	AlreadySynced   int           `json:"alreadySynced"`
	Candidates      int           `json:"candidates"`
	Repaired        int           `json:"repaired"`
	NotOnChain      int           `json:"notOnChain"`
	Failed          int           `json:"failed"`
	FailedAddresses []string      `json:"failedAddresses"`
	StartedAt       time.Time     `json:"startedAt"`
	Duration        time.Duration `json:"durationNs"`
}

// SyncCursor is the last block fully processed by the chain log watcher
type SyncCursor struct {
	Name        string
	BlockNumber uint64
	UpdatedAt   time.Time
}
