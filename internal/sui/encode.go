package sui

import "fmt"

// KindBytes serialises the transaction as a BCS TransactionKind
// (ProgrammableTransaction). Every object input must be resolved.
func (t *Transaction) KindBytes() ([]byte, error) {
	var e Encoder
	e.WriteULEB128(0) // TransactionKind::ProgrammableTransaction

	e.WriteULEB128(uint64(len(t.inputs)))
	for i, in := range t.inputs {
		if err := encodeInput(&e, in); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
	}

	e.WriteULEB128(uint64(len(t.commands)))
	for _, c := range t.commands {
		encodeCommand(&e, c)
	}
	return e.Bytes(), nil
}

func encodeInput(e *Encoder, in Input) error {
	if in.Kind == InputPure {
		e.WriteULEB128(0)
		e.WriteBytes(in.Pure)
		return nil
	}

	obj := in.Object
	e.WriteULEB128(1) // CallArg::Object
	switch obj.Kind {
	case ObjectOwned:
		digest, err := obj.Ref.digestBytes()
		if err != nil {
			return err
		}
		e.WriteULEB128(0)
		e.WriteAddress(obj.Ref.ObjectID)
		e.WriteU64(obj.Ref.Version)
		e.WriteBytes(digest)
	case ObjectShared:
		e.WriteULEB128(1)
		e.WriteAddress(obj.ID)
		e.WriteU64(obj.InitialSharedVersion)
		e.WriteBool(obj.Mutable)
	default:
		return fmt.Errorf("%w: %s", ErrUnresolvedObject, obj.ID)
	}
	return nil
}

func encodeArgument(e *Encoder, a Argument) {
	e.WriteULEB128(uint64(a.Kind))
	switch a.Kind {
	case ArgInput, ArgResult:
		e.WriteU16(a.Index)
	case ArgNestedResult:
		e.WriteU16(a.Index)
		e.WriteU16(a.Nested)
	}
}

func encodeArguments(e *Encoder, args []Argument) {
	e.WriteULEB128(uint64(len(args)))
	for _, a := range args {
		encodeArgument(e, a)
	}
}

func encodeCommand(e *Encoder, c Command) {
	e.WriteULEB128(uint64(c.Kind))
	switch c.Kind {
	case CommandMoveCall:
		e.WriteAddress(c.Target.Package)
		e.WriteString(c.Target.Module)
		e.WriteString(c.Target.Function)
		e.WriteULEB128(0) // type arguments
		encodeArguments(e, c.Arguments)
	case CommandTransferObjects:
		encodeArguments(e, c.Objects)
		encodeArgument(e, c.Recipient)
	case CommandSplitCoins:
		encodeArgument(e, c.Coin)
		encodeArguments(e, c.Amounts)
	case CommandMergeCoins:
		encodeArgument(e, c.Destination)
		encodeArguments(e, c.Sources)
	}
}
