package sui

import (
	"fmt"

	"github.com/layer-3/zklogin/internal/bcs"
)

// Argument references a value inside a programmable transaction
type Argument struct {
	kind   uint8
	index  uint16
	result uint16
}

const (
	argGasCoin uint8 = iota
	argInput
	argResult
	argNestedResult
)

// GasCoin refers to the coin paying for gas
func GasCoin() Argument { return Argument{kind: argGasCoin} }

// Input refers to the i-th transaction input
func Input(i uint16) Argument { return Argument{kind: argInput, index: i} }

// Result refers to the whole result of command i
func Result(i uint16) Argument { return Argument{kind: argResult, index: i} }

// NestedResult refers to element j of the result of command i
func NestedResult(i, j uint16) Argument {
	return Argument{kind: argNestedResult, index: i, result: j}
}

func (a Argument) MarshalBCS(e *bcs.Encoder) {
	e.ULEB128(uint64(a.kind))
	switch a.kind {
	case argInput, argResult:
		e.U16(a.index)
	case argNestedResult:
		e.U16(a.index)
		e.U16(a.result)
	}
}

// CallArg is a pure transaction input holding BCS encoded bytes
type CallArg struct {
	Pure []byte
}

func (c CallArg) MarshalBCS(e *bcs.Encoder) {
	e.ULEB128(0)
	e.ByteVector(c.Pure)
}

// Command is one step of a programmable transaction
type Command interface {
	bcs.Marshaler
	command()
}

// MoveCall invokes package::module::function. Generic functions are not supported,
// the type argument vector is always empty.
type MoveCall struct {
	Package   Address
	Module    string
	Function  string
	Arguments []Argument
}

func (MoveCall) command() {}

func (c MoveCall) MarshalBCS(e *bcs.Encoder) {
	e.ULEB128(0)
	e.Fixed(c.Package[:])
	e.String(c.Module)
	e.String(c.Function)
	e.ULEB128(0)
	bcs.Vector(e, c.Arguments)
}

// TransferObjects sends Objects to Recipient
type TransferObjects struct {
	Objects   []Argument
	Recipient Argument
}

func (TransferObjects) command() {}

func (c TransferObjects) MarshalBCS(e *bcs.Encoder) {
	e.ULEB128(1)
	bcs.Vector(e, c.Objects)
	c.Recipient.MarshalBCS(e)
}

// SplitCoins splits Amounts off Coin
type SplitCoins struct {
	Coin    Argument
	Amounts []Argument
}

func (SplitCoins) command() {}

func (c SplitCoins) MarshalBCS(e *bcs.Encoder) {
	e.ULEB128(2)
	c.Coin.MarshalBCS(e)
	bcs.Vector(e, c.Amounts)
}

// ProgrammableTransaction is an ordered list of inputs and commands
type ProgrammableTransaction struct {
	Inputs   []CallArg
	Commands []Command
}

func (p ProgrammableTransaction) MarshalBCS(e *bcs.Encoder) {
	bcs.Vector(e, p.Inputs)
	bcs.Vector(e, p.Commands)
}

// ObjectRef pins an owned object at a version
type ObjectRef struct {
	ObjectID Address
	Version  uint64
	Digest   []byte
}

func (o ObjectRef) MarshalBCS(e *bcs.Encoder) {
	e.Fixed(o.ObjectID[:])
	e.U64(o.Version)
	e.ByteVector(o.Digest)
}

// GasData describes who pays for a transaction and how much
type GasData struct {
	Payment []ObjectRef
	Owner   Address
	Price   uint64
	Budget  uint64
}

func (g GasData) MarshalBCS(e *bcs.Encoder) {
	bcs.Vector(e, g.Payment)
	e.Fixed(g.Owner[:])
	e.U64(g.Price)
	e.U64(g.Budget)
}

// TransactionData is the V1 transaction envelope with no expiration
type TransactionData struct {
	Sender  Address
	Kind    ProgrammableTransaction
	GasData GasData
}

func (t TransactionData) MarshalBCS(e *bcs.Encoder) {
	e.ULEB128(0) // V1
	e.ULEB128(0) // ProgrammableTransaction
	t.Kind.MarshalBCS(e)
	e.Fixed(t.Sender[:])
	t.GasData.MarshalBCS(e)
	e.ULEB128(0) // TransactionExpiration::None
}

// Builder assembles a programmable transaction
type Builder struct {
	inputs   []CallArg
	commands []Command
}

// NewBuilder returns an empty programmable transaction builder
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) pure(encode func(e *bcs.Encoder)) Argument {
	e := bcs.NewEncoder()
	encode(e)
	b.inputs = append(b.inputs, CallArg{Pure: e.Bytes()})
	return Input(uint16(len(b.inputs) - 1))
}

// PureU64 adds v as a pure input
func (b *Builder) PureU64(v uint64) Argument {
	return b.pure(func(e *bcs.Encoder) { e.U64(v) })
}

// PureAddress adds a as a pure input
func (b *Builder) PureAddress(a Address) Argument {
	return b.pure(func(e *bcs.Encoder) { e.Fixed(a[:]) })
}

// PureString adds s as a pure input, BCS encoded as a byte vector
func (b *Builder) PureString(s string) Argument {
	return b.pure(func(e *bcs.Encoder) { e.String(s) })
}

func (b *Builder) add(c Command) Argument {
	b.commands = append(b.commands, c)
	return Result(uint16(len(b.commands) - 1))
}

// SplitCoins returns one nested result per amount
func (b *Builder) SplitCoins(coin Argument, amounts ...Argument) []Argument {
	res := b.add(SplitCoins{Coin: coin, Amounts: amounts})
	out := make([]Argument, len(amounts))
	for i := range amounts {
		out[i] = NestedResult(res.index, uint16(i))
	}
	return out
}

// TransferObjects sends objects to recipient
func (b *Builder) TransferObjects(objects []Argument, recipient Argument) {
	b.add(TransferObjects{Objects: objects, Recipient: recipient})
}

// MoveCall calls module::function in package target and returns its result
func (b *Builder) MoveCall(target Address, module, function string, args ...Argument) Argument {
	return b.add(MoveCall{Package: target, Module: module, Function: function, Arguments: args})
}

// Build returns the programmable transaction; it fails when no command was added
func (b *Builder) Build() (ProgrammableTransaction, error) {
	if len(b.commands) == 0 {
		return ProgrammableTransaction{}, fmt.Errorf("transaction has no commands")
	}
	return ProgrammableTransaction{Inputs: b.inputs, Commands: b.commands}, nil
}
