package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
	"tip-chain.backend/internal/domain/entities"
	domainerrors "tip-chain.backend/internal/domain/errors"
	"tip-chain.backend/internal/infrastructure/metrics"
)

// ViewCaller executes read-only contract calls
type ViewCaller interface {
	CallView(ctx context.Context, to string, data []byte) ([]byte, error)
}

// TipChainContract reads profiles, creators and tips from the TipChain contract
type TipChainContract struct {
	caller  ViewCaller
	address string
	abi     abi.ABI
	timeout time.Duration
	metrics *metrics.Indexer
}

// NewTipChainContract binds the contract at address. A zero timeout disables the per-call deadline.
func NewTipChainContract(caller ViewCaller, address string, timeout time.Duration, m *metrics.Indexer) (*TipChainContract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}
	parsed, err := abi.JSON(strings.NewReader(TipChainABI))
	if err != nil {
		return nil, fmt.Errorf("parse tipchain abi: %w", err)
	}
	return &TipChainContract{
		caller:  caller,
		address: common.HexToAddress(address).Hex(),
		abi:     parsed,
		timeout: timeout,
		metrics: m,
	}, nil
}

// Address returns the checksummed contract address
func (c *TipChainContract) Address() common.Address {
	return common.HexToAddress(c.address)
}

// ABI returns the parsed contract ABI
func (c *TipChainContract) ABI() abi.ABI {
	return c.abi
}

// GetProfile reads creatorProfiles and getCreatorSocials. Both must succeed.
func (c *TipChainContract) GetProfile(ctx context.Context, address string) (*entities.ChainProfile, error) {
	creator := common.HexToAddress(address)

	var (
		fields  []interface{}
		socials []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := c.call(gctx, "creatorProfiles", creator)
		fields = out
		return err
	})
	g.Go(func() error {
		out, err := c.call(gctx, "getCreatorSocials", creator)
		if err != nil {
			return err
		}
		list, ok := out[0].([]string)
		if !ok {
			return c.decodeError("getCreatorSocials", out[0])
		}
		socials = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	profile := &entities.ChainProfile{Socials: socials}
	var ok [6]bool
	profile.Username, ok[0] = fields[0].(string)
	profile.Bio, ok[1] = fields[1].(string)
	profile.AvatarURI, ok[2] = fields[2].(string)
	profile.TotalTipsReceived, ok[3] = fields[3].(*big.Int)
	profile.TipCount, ok[4] = fields[4].(*big.Int)
	profile.Exists, ok[5] = fields[5].(bool)
	for i, good := range ok {
		if !good {
			return nil, c.decodeError("creatorProfiles", fields[i])
		}
	}
	if profile.Socials == nil {
		profile.Socials = []string{}
	}
	return profile, nil
}

// GetAllCreatorAddresses returns every registered creator, lowercased
func (c *TipChainContract) GetAllCreatorAddresses(ctx context.Context) ([]string, error) {
	out, err := c.call(ctx, "getAllCreators")
	if err != nil {
		return nil, err
	}
	addrs, ok := out[0].([]common.Address)
	if !ok {
		return nil, c.decodeError("getAllCreators", out[0])
	}
	result := make([]string, 0, len(addrs))
	for _, a := range addrs {
		result = append(result, strings.ToLower(a.Hex()))
	}
	return result, nil
}

// GetTip reads the stored tip at index
func (c *TipChainContract) GetTip(ctx context.Context, index *big.Int) (*entities.ChainTip, error) {
	if index == nil || index.Sign() < 0 {
		return nil, fmt.Errorf("%w: tip index", domainerrors.ErrInvalidInput)
	}
	out, err := c.call(ctx, "getTip", index)
	if err != nil {
		return nil, err
	}
	from, okFrom := out[0].(common.Address)
	to, okTo := out[1].(common.Address)
	amount, okAmount := out[2].(*big.Int)
	token, okToken := out[3].(common.Address)
	ts, okTs := out[4].(*big.Int)
	message, okMsg := out[5].(string)
	if !okFrom || !okTo || !okAmount || !okToken || !okTs || !okMsg {
		return nil, c.decodeError("getTip", out)
	}
	return &entities.ChainTip{
		From:      strings.ToLower(from.Hex()),
		To:        strings.ToLower(to.Hex()),
		Amount:    amount,
		Token:     strings.ToLower(token.Hex()),
		Timestamp: ts.Int64(),
		Message:   message,
	}, nil
}

func (c *TipChainContract) call(ctx context.Context, method string, args ...interface{}) (out []interface{}, err error) {
	started := time.Now()
	defer func() { c.metrics.ObserveChainCall(method, started, err) }()

	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.caller.CallView(ctx, c.address, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", method, domainerrors.ErrChainUnavailable, err)
	}

	// an empty result usually means no contract at the address or a reverted node call
	out, err = c.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w: %w", method, domainerrors.ErrChainUnavailable, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w: empty result", method, domainerrors.ErrChainUnavailable)
	}
	return out, nil
}

func (c *TipChainContract) decodeError(method string, v interface{}) error {
	return fmt.Errorf("%s: %w: unexpected output %T", method, domainerrors.ErrChainUnavailable, v)
}
