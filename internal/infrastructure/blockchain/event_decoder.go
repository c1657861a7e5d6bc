package blockchain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"tip-chain.backend/internal/domain/entities"
	domainerrors "tip-chain.backend/internal/domain/errors"
)

var watchedEvents = []entities.EventType{
	entities.EventProfileCreated,
	entities.EventProfileUpdated,
	entities.EventTipSent,
}

// EventDecoder turns TipChain logs into chain events
type EventDecoder struct {
	abi abi.ABI
}

func NewEventDecoder(contractABI abi.ABI) *EventDecoder {
	return &EventDecoder{abi: contractABI}
}

// Topics returns the topic filter matching every watched event
func (d *EventDecoder) Topics() [][]common.Hash {
	ids := make([]common.Hash, 0, len(watchedEvents))
	for _, name := range watchedEvents {
		ids = append(ids, d.abi.Events[string(name)].ID)
	}
	return [][]common.Hash{ids}
}

// Decode converts one log. BlockTimestamp is left for the caller to fill.
func (d *EventDecoder) Decode(log types.Log) (entities.ChainEvent, error) {
	if len(log.Topics) == 0 {
		return entities.ChainEvent{}, fmt.Errorf("%w: log without topics", domainerrors.ErrUnknownEvent)
	}
	ev, err := d.abi.EventByID(log.Topics[0])
	if err != nil {
		return entities.ChainEvent{}, fmt.Errorf("%w: topic %s", domainerrors.ErrUnknownEvent, log.Topics[0].Hex())
	}

	event := entities.ChainEvent{
		Type:        entities.EventType(ev.Name),
		TxHash:      strings.ToLower(log.TxHash.Hex()),
		BlockNumber: log.BlockNumber,
	}

	switch event.Type {
	case entities.EventProfileCreated, entities.EventProfileUpdated:
		if len(log.Topics) < 2 {
			return entities.ChainEvent{}, fmt.Errorf("%w: %s missing creator topic", domainerrors.ErrInvalidInput, ev.Name)
		}
		event.Creator = topicAddress(log.Topics[1])
	case entities.EventTipSent:
		tip, err := d.decodeTip(ev, log)
		if err != nil {
			return entities.ChainEvent{}, err
		}
		event.Tip = tip
	default:
		return entities.ChainEvent{}, fmt.Errorf("%w: %s", domainerrors.ErrUnknownEvent, ev.Name)
	}
	return event, nil
}

func (d *EventDecoder) decodeTip(ev *abi.Event, log types.Log) (*entities.TipPayload, error) {
	if len(log.Topics) < 3 {
		return nil, fmt.Errorf("%w: TipSent missing indexed topics", domainerrors.ErrInvalidInput)
	}
	values, err := ev.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: TipSent data: %v", domainerrors.ErrInvalidInput, err)
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("%w: TipSent data has %d fields", domainerrors.ErrInvalidInput, len(values))
	}
	amount, okAmount := values[0].(*big.Int)
	token, okToken := values[1].(common.Address)
	message, okMsg := values[2].(string)
	index, okIndex := values[3].(*big.Int)
	if !okAmount || !okToken || !okMsg || !okIndex {
		return nil, fmt.Errorf("%w: TipSent field types", domainerrors.ErrInvalidInput)
	}

	payload := &entities.TipPayload{
		From:     topicAddress(log.Topics[1]),
		To:       topicAddress(log.Topics[2]),
		Amount:   amount.String(),
		Message:  message,
		TipIndex: index.String(),
	}
	if token != (common.Address{}) {
		payload.Token = strings.ToLower(token.Hex())
	}
	return payload, nil
}

func topicAddress(h common.Hash) string {
	return strings.ToLower(common.BytesToAddress(h.Bytes()).Hex())
}
