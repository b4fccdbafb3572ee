package sui

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnresolvedObject is returned when serialising a transaction that still
// has object inputs known only by id.
var ErrUnresolvedObject = errors.New("sui: unresolved object input")

// ArgumentKind selects which value an Argument refers to.
type ArgumentKind uint8

const (
	ArgGasCoin ArgumentKind = iota
	ArgInput
	ArgResult
	ArgNestedResult
)

// Argument references an input, the gas coin, or the result of an earlier
// command.
type Argument struct {
	Kind   ArgumentKind
	Index  uint16
	Nested uint16
}

// GasCoin is the argument referring to the transaction's gas payment coin.
var GasCoin = Argument{Kind: ArgGasCoin}

// InputKind distinguishes pure values from object inputs.
type InputKind uint8

const (
	InputPure InputKind = iota
	InputObject
)

// ObjectKind describes how much is known about an object input.
type ObjectKind uint8

const (
	// ObjectUnresolved has only an id; the wallet fills in the rest.
	ObjectUnresolved ObjectKind = iota
	ObjectShared
	ObjectOwned
)

// ObjectInput is an object argument of a transaction.
type ObjectInput struct {
	ID                   Address
	Kind                 ObjectKind
	InitialSharedVersion uint64
	Mutable              bool
	Ref                  ObjectRef
}

// SharedObjectInput describes a shared object.
func SharedObjectInput(id Address, initialSharedVersion uint64, mutable bool) ObjectInput {
	return ObjectInput{ID: id, Kind: ObjectShared, InitialSharedVersion: initialSharedVersion, Mutable: mutable}
}

// OwnedObjectInput describes an owned or immutable object at a version.
func OwnedObjectInput(ref ObjectRef) ObjectInput {
	return ObjectInput{ID: ref.ObjectID, Kind: ObjectOwned, Ref: ref}
}

// Input is one entry of the transaction's input list.
type Input struct {
	Kind   InputKind
	Pure   []byte
	Object ObjectInput
}

// Target names a Move function.
type Target struct {
	Package  Address
	Module   string
	Function string
}

// ParseTarget parses "0xpkg::module::function".
func ParseTarget(s string) (Target, error) {
	parts := strings.Split(s, "::")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return Target{}, fmt.Errorf("sui: invalid move target %q", s)
	}
	pkg, err := ParseAddress(parts[0])
	if err != nil {
		return Target{}, fmt.Errorf("sui: invalid move target %q: %w", s, err)
	}
	return Target{Package: pkg, Module: parts[1], Function: parts[2]}, nil
}

// String returns the target in "0xpkg::module::function" form.
func (t Target) String() string {
	return t.Package.String() + "::" + t.Module + "::" + t.Function
}

// CommandKind identifies a programmable transaction command.
type CommandKind uint8

const (
	CommandMoveCall CommandKind = iota
	CommandTransferObjects
	CommandSplitCoins
	CommandMergeCoins
)

// Command is one step of a programmable transaction. Only the fields that
// belong to Kind are set.
type Command struct {
	Kind CommandKind

	// MoveCall
	Target    Target
	Arguments []Argument

	// TransferObjects
	Objects   []Argument
	Recipient Argument

	// SplitCoins
	Coin    Argument
	Amounts []Argument

	// MergeCoins
	Destination Argument
	Sources     []Argument
}

// Transaction accumulates inputs and commands. The zero value is not usable;
// call NewTransaction.
type Transaction struct {
	sender   *Address
	inputs   []Input
	commands []Command
	objects  map[Address]uint16
}

// NewTransaction returns an empty transaction.
func NewTransaction() *Transaction {
	return &Transaction{objects: make(map[Address]uint16)}
}

// Inputs returns a copy of the input list.
func (t *Transaction) Inputs() []Input {
	out := make([]Input, len(t.inputs))
	copy(out, t.inputs)
	return out
}

// Commands returns a copy of the command list.
func (t *Transaction) Commands() []Command {
	out := make([]Command, len(t.commands))
	copy(out, t.commands)
	return out
}

// SetSender records the address expected to sign the transaction.
func (t *Transaction) SetSender(a Address) {
	t.sender = &a
}

// Sender returns the recorded sender, if any.
func (t *Transaction) Sender() (Address, bool) {
	if t.sender == nil {
		return Address{}, false
	}
	return *t.sender, true
}

// IsEmpty reports whether nothing has been added yet.
func (t *Transaction) IsEmpty() bool {
	return len(t.inputs) == 0 && len(t.commands) == 0
}

func (t *Transaction) addInput(in Input) Argument {
	t.inputs = append(t.inputs, in)
	return Argument{Kind: ArgInput, Index: uint16(len(t.inputs) - 1)}
}

// addObject returns the slot for obj, reusing an existing slot for the same
// id. A reused slot keeps the most resolved description and becomes mutable
// if any reference needs it to be.
func (t *Transaction) addObject(obj ObjectInput) Argument {
	if idx, ok := t.objects[obj.ID]; ok {
		cur := &t.inputs[idx].Object
		if obj.Kind > cur.Kind {
			mutable := cur.Mutable
			*cur = obj
			cur.Mutable = cur.Mutable || mutable
		} else if obj.Mutable {
			cur.Mutable = true
		}
		return Argument{Kind: ArgInput, Index: idx}
	}
	arg := t.addInput(Input{Kind: InputObject, Object: obj})
	t.objects[obj.ID] = arg.Index
	return arg
}

// Object adds an object known only by id.
func (t *Transaction) Object(id Address) Argument {
	return t.addObject(ObjectInput{ID: id, Kind: ObjectUnresolved})
}

// SharedObject adds a shared object input.
func (t *Transaction) SharedObject(id Address, initialSharedVersion uint64, mutable bool) Argument {
	return t.addObject(SharedObjectInput(id, initialSharedVersion, mutable))
}

// OwnedObject adds an owned object input at a fixed version.
func (t *Transaction) OwnedObject(ref ObjectRef) Argument {
	return t.addObject(OwnedObjectInput(ref))
}

// Clock adds the shared system clock.
func (t *Transaction) Clock() Argument {
	return t.SharedObject(ClockID, 1, false)
}

func (t *Transaction) PureU8(v uint8) Argument {
	return t.addInput(Input{Kind: InputPure, Pure: []byte{v}})
}

func (t *Transaction) PureU64(v uint64) Argument {
	return t.addInput(Input{Kind: InputPure, Pure: EncodeU64(v)})
}

func (t *Transaction) PureString(s string) Argument {
	var e Encoder
	e.WriteString(s)
	return t.addInput(Input{Kind: InputPure, Pure: e.Bytes()})
}

func (t *Transaction) PureAddress(a Address) Argument {
	return t.addInput(Input{Kind: InputPure, Pure: append([]byte(nil), a[:]...)})
}

func (t *Transaction) addCommand(c Command) uint16 {
	t.commands = append(t.commands, c)
	return uint16(len(t.commands) - 1)
}

// MoveCall appends a Move call and returns its result.
func (t *Transaction) MoveCall(target Target, args ...Argument) Argument {
	idx := t.addCommand(Command{Kind: CommandMoveCall, Target: target, Arguments: args})
	return Argument{Kind: ArgResult, Index: idx}
}

// SplitCoins splits one coin per amount off coin and returns the new coins.
func (t *Transaction) SplitCoins(coin Argument, amounts ...Argument) []Argument {
	idx := t.addCommand(Command{Kind: CommandSplitCoins, Coin: coin, Amounts: amounts})
	out := make([]Argument, len(amounts))
	for i := range amounts {
		out[i] = Argument{Kind: ArgNestedResult, Index: idx, Nested: uint16(i)}
	}
	return out
}

// MergeCoins merges sources into destination.
func (t *Transaction) MergeCoins(destination Argument, sources ...Argument) {
	t.addCommand(Command{Kind: CommandMergeCoins, Destination: destination, Sources: sources})
}

// TransferObjects sends objects to recipient.
func (t *Transaction) TransferObjects(objects []Argument, recipient Argument) {
	t.addCommand(Command{Kind: CommandTransferObjects, Objects: objects, Recipient: recipient})
}

// Resolve upgrades unresolved object inputs whose id appears in objects and
// returns how many inputs were updated.
func (t *Transaction) Resolve(objects ...ObjectInput) int {
	n := 0
	for _, obj := range objects {
		idx, ok := t.objects[obj.ID]
		if !ok {
			continue
		}
		cur := &t.inputs[idx].Object
		if cur.Kind != ObjectUnresolved {
			continue
		}
		mutable := cur.Mutable
		*cur = obj
		cur.Mutable = cur.Mutable || mutable
		n++
	}
	return n
}

// Unresolved returns the ids of object inputs that still lack chain data.
func (t *Transaction) Unresolved() []Address {
	var out []Address
	for _, in := range t.inputs {
		if in.Kind == InputObject && in.Object.Kind == ObjectUnresolved {
			out = append(out, in.Object.ID)
		}
	}
	return out
}
