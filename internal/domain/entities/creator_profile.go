package entities

import (
	"errors"
	"fmt"
	"math/big"
	"time"
)

// ErrTipCountRange is returned when the chain reports a tip count outside uint64
var ErrTipCountRange = errors.New("tip count out of range")

// CreatorProfile is the store's mirror of an on-chain creator profile.
// Address is lowercase and is the primary key.
type CreatorProfile struct {
	Address           string     `json:"address"`
	Username          string     `json:"username"`
	Bio               string     `json:"bio"`
	AvatarURI         string     `json:"avatarURI"`
	Socials           []string   `json:"socials"`
	TotalTipsReceived string     `json:"totalTipsReceived"`
	TipCount          uint64     `json:"tipCount,string"`
	Exists            bool       `json:"exists"`
	SyncedAt          *time.Time `json:"syncedAt,omitempty"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// ChainProfile is the authoritative record returned by creatorProfiles + getCreatorSocials
type ChainProfile struct {
	Username          string
	Bio               string
	AvatarURI         string
	TotalTipsReceived *big.Int
	TipCount          *big.Int
	Exists            bool
	Socials           []string
}

// ToCreatorProfile converts the chain record into the full store record for address.
// Every chain-derived field is set so an upsert overwrites, never merges.
func (p *ChainProfile) ToCreatorProfile(address string, syncedAt time.Time) (*CreatorProfile, error) {
	total := "0"
	if p.TotalTipsReceived != nil {
		total = p.TotalTipsReceived.String()
	}
	var count uint64
	if p.TipCount != nil {
		if !p.TipCount.IsUint64() {
			return nil, fmt.Errorf("%w: %s", ErrTipCountRange, p.TipCount.String())
		}
		count = p.TipCount.Uint64()
	}
	socials := p.Socials
	if socials == nil {
		socials = []string{}
	}
	ts := syncedAt
	return &CreatorProfile{
		Address:           address,
		Username:          p.Username,
		Bio:               p.Bio,
		AvatarURI:         p.AvatarURI,
		Socials:           socials,
		TotalTipsReceived: total,
		TipCount:          count,
		Exists:            p.Exists,
		SyncedAt:          &ts,
		UpdatedAt:         syncedAt,
	}, nil
}
