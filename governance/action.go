package governance

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Kind selects what an approved request does.
type Kind uint8

const (
	KindMint Kind = iota
	KindWithdraw
	KindGovernor
	KindThreshold
	KindRemnant
)

func (k Kind) String() string {
	switch k {
	case KindMint:
		return "mint"
	case KindWithdraw:
		return "withdraw"
	case KindGovernor:
		return "governor"
	case KindThreshold:
		return "threshold"
	case KindRemnant:
		return "remnant"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Action is the typed body of a request. The set of actions is closed.
type Action interface {
	Kind() Kind
	args() []any
}

// MintAction mints new governance tokens.
type MintAction struct {
	To     common.Address
	Amount *uint256.Int
}

// WithdrawAction moves a tracked token out of the contract.
type WithdrawAction struct {
	Token  common.Address
	To     common.Address
	Amount *uint256.Int
}

// GovernorAction adds or removes a governor.
type GovernorAction struct {
	Governor common.Address
	Add      bool
}

// ThresholdAction sets the approval threshold, in percent of governors.
type ThresholdAction struct {
	Percent uint64
}

// RemnantAction sets the minimum balance a withdrawal must leave behind.
type RemnantAction struct {
	Amount *uint256.Int
}

func (MintAction) Kind() Kind { return KindMint }
func (WithdrawAction) Kind() Kind { return KindWithdraw }
func (GovernorAction) Kind() Kind { return KindGovernor }
func (ThresholdAction) Kind() Kind { return KindThreshold }
func (RemnantAction) Kind() Kind { return KindRemnant }

func (a MintAction) args() []any { return []any{a.To, toBig(a.Amount)} }
func (a WithdrawAction) args() []any { return []any{a.Token, a.To, toBig(a.Amount)} }
func (a GovernorAction) args() []any { return []any{a.Governor, a.Add} }
func (a ThresholdAction) args() []any {
	return []any{new(big.Int).SetUint64(a.Percent)}
}
func (a RemnantAction) args() []any { return []any{toBig(a.Amount)} }

var (
	typeAddress = mustType("address")
	typeUint256 = mustType("uint256")
	typeBool    = mustType("bool")

	arguments = map[Kind]abi.Arguments{
		KindMint:      {{Type: typeAddress}, {Type: typeUint256}},
		KindWithdraw:  {{Type: typeAddress}, {Type: typeAddress}, {Type: typeUint256}},
		KindGovernor:  {{Type: typeAddress}, {Type: typeBool}},
		KindThreshold: {{Type: typeUint256}},
		KindRemnant:   {{Type: typeUint256}},
	}
)

func mustType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

func toBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

// EncodeAction returns the ABI encoding of an action's arguments.
func EncodeAction(a Action) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: action", ErrNilParam)
	}
	args, ok := arguments[a.Kind()]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, a.Kind())
	}
	data, err := args.Pack(a.args()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return data, nil
}

// DecodeAction parses ABI-encoded request data for kind.
func DecodeAction(kind Kind, data []byte) (Action, error) {
	args, ok := arguments[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
	vals, err := args.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, kind, err)
	}

	switch kind {
	case KindMint:
		amount, err := amountArg(vals[1])
		if err != nil {
			return nil, err
		}
		return MintAction{To: vals[0].(common.Address), Amount: amount}, nil
	case KindWithdraw:
		amount, err := amountArg(vals[2])
		if err != nil {
			return nil, err
		}
		return WithdrawAction{
			Token:  vals[0].(common.Address),
			To:     vals[1].(common.Address),
			Amount: amount,
		}, nil
	case KindGovernor:
		return GovernorAction{Governor: vals[0].(common.Address), Add: vals[1].(bool)}, nil
	case KindThreshold:
		pct := vals[0].(*big.Int)
		if !pct.IsUint64() {
			return nil, fmt.Errorf("%w: threshold %s", ErrInvalidThreshold, pct)
		}
		return ThresholdAction{Percent: pct.Uint64()}, nil
	default:
		amount, err := amountArg(vals[0])
		if err != nil {
			return nil, err
		}
		return RemnantAction{Amount: amount}, nil
	}
}

func amountArg(v any) (*uint256.Int, error) {
	b, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: amount is %T", ErrInvalidPayload, v)
	}
	amount, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: amount overflows", ErrInvalidPayload)
	}
	return amount, nil
}
