package usecases

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tip-chain.backend/internal/domain/entities"
	domainerrors "tip-chain.backend/internal/domain/errors"
	"tip-chain.backend/pkg/utils"
)

// flexString accepts a JSON string or number and keeps its decimal text.
// Relays send uint256 values as strings, hand-written payloads often as numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

type notificationData struct {
	Creator        string     `json:"creator"`
	From           string     `json:"from"`
	To             string     `json:"to"`
	Amount         flexString `json:"amount"`
	Token          *string    `json:"token"`
	Message        string     `json:"message"`
	TipIndex       flexString `json:"tipIndex"`
	TxHash         string     `json:"txHash"`
	BlockNumber    flexString `json:"blockNumber"`
	BlockTimestamp flexString `json:"blockTimestamp"`
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domainerrors.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ParseNotification validates a relayed {event, data} notification and
// normalizes addresses, amounts and the tip key inputs.
func ParseNotification(event string, raw json.RawMessage) (entities.ChainEvent, error) {
	eventType := entities.EventType(strings.TrimSpace(event))
	switch eventType {
	case entities.EventProfileCreated, entities.EventProfileUpdated, entities.EventTipSent:
	default:
		return entities.ChainEvent{}, fmt.Errorf("%w: %q", domainerrors.ErrUnknownEvent, event)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return entities.ChainEvent{}, invalidf("missing data")
	}
	var data notificationData
	if err := json.Unmarshal(raw, &data); err != nil {
		return entities.ChainEvent{}, invalidf("malformed data: %v", err)
	}

	ev := entities.ChainEvent{
		Type:   eventType,
		TxHash: strings.ToLower(strings.TrimSpace(data.TxHash)),
	}
	var err error
	if ev.BlockNumber, err = parseOptionalUint(string(data.BlockNumber), "blockNumber"); err != nil {
		return entities.ChainEvent{}, err
	}
	if ev.BlockTimestamp, err = parseOptionalUnixTime(string(data.BlockTimestamp), "blockTimestamp"); err != nil {
		return entities.ChainEvent{}, err
	}

	if eventType.IsProfileEvent() {
		creator, err := utils.NormalizeAddress(data.Creator)
		if err != nil {
			return entities.ChainEvent{}, invalidf("creator: %v", err)
		}
		ev.Creator = creator
		return ev, nil
	}

	tip, err := parseTipPayload(&data)
	if err != nil {
		return entities.ChainEvent{}, err
	}
	if ev.TxHash == "" && tip.TipIndex == "" {
		return entities.ChainEvent{}, invalidf("txHash or tipIndex is required")
	}
	ev.Tip = tip
	return ev, nil
}

func parseTipPayload(data *notificationData) (*entities.TipPayload, error) {
	from, err := utils.NormalizeAddress(data.From)
	if err != nil {
		return nil, invalidf("from: %v", err)
	}
	to, err := utils.NormalizeAddress(data.To)
	if err != nil {
		return nil, invalidf("to: %v", err)
	}
	amount, err := utils.ParseAmount(string(data.Amount))
	if err != nil {
		return nil, invalidf("amount: %v", err)
	}

	tip := &entities.TipPayload{
		From:    from,
		To:      to,
		Amount:  amount.String(),
		Message: data.Message,
	}

	if data.Token != nil && !utils.IsZeroAddress(*data.Token) {
		token, err := utils.NormalizeAddress(*data.Token)
		if err != nil {
			return nil, invalidf("token: %v", err)
		}
		tip.Token = token
	}

	if data.TipIndex != "" {
		idx, err := utils.ParseAmount(string(data.TipIndex))
		if err != nil {
			return nil, invalidf("tipIndex: %v", err)
		}
		tip.TipIndex = idx.String()
	}
	return tip, nil
}

func parseOptionalUint(s, field string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, invalidf("%s: %v", field, err)
	}
	return v, nil
}

// parseOptionalUnixTime rejects negatives and values past int64
func parseOptionalUnixTime(s, field string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, invalidf("%s: %v", field, err)
	}
	if v < 0 {
		return 0, invalidf("%s: must not be negative", field)
	}
	return v, nil
}

// TipKey is the tip's natural key: the tx hash, or tip-<index> without one
func TipKey(txHash, tipIndex string) string {
	if txHash != "" {
		return txHash
	}
	return "tip-" + tipIndex
}
