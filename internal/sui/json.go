package sui

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
)

// jsonVersion is the serialised transaction format wallets accept.
const jsonVersion = 2

type txJSON struct {
	Version    int               `json:"version"`
	Sender     *string           `json:"sender"`
	Expiration any               `json:"expiration"`
	GasData    gasJSON           `json:"gasData"`
	Inputs     []json.RawMessage `json:"inputs"`
	Commands   []json.RawMessage `json:"commands"`
}

type gasJSON struct {
	Budget  *string `json:"budget"`
	Price   *string `json:"price"`
	Owner   *string `json:"owner"`
	Payment *[]any  `json:"payment"`
}

// MarshalJSON renders the transaction in the shape wallets deserialise.
// Gas data is left for the wallet to fill in.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	out := txJSON{
		Version:  jsonVersion,
		Inputs:   make([]json.RawMessage, 0, len(t.inputs)),
		Commands: make([]json.RawMessage, 0, len(t.commands)),
	}
	if t.sender != nil {
		s := t.sender.String()
		out.Sender = &s
	}
	for _, in := range t.inputs {
		b, err := json.Marshal(inputJSON(in))
		if err != nil {
			return nil, err
		}
		out.Inputs = append(out.Inputs, b)
	}
	for _, c := range t.commands {
		b, err := json.Marshal(t.commandJSON(c))
		if err != nil {
			return nil, err
		}
		out.Commands = append(out.Commands, b)
	}
	return json.Marshal(out)
}

func inputJSON(in Input) map[string]any {
	if in.Kind == InputPure {
		return map[string]any{
			"Pure": map[string]string{"bytes": base64.StdEncoding.EncodeToString(in.Pure)},
		}
	}
	obj := in.Object
	switch obj.Kind {
	case ObjectShared:
		return map[string]any{"Object": map[string]any{"SharedObject": map[string]any{
			"objectId":             obj.ID.String(),
			"initialSharedVersion": strconv.FormatUint(obj.InitialSharedVersion, 10),
			"mutable":              obj.Mutable,
		}}}
	case ObjectOwned:
		return map[string]any{"Object": map[string]any{"ImmOrOwnedObject": map[string]any{
			"objectId": obj.Ref.ObjectID.String(),
			"version":  strconv.FormatUint(obj.Ref.Version, 10),
			"digest":   obj.Ref.Digest,
		}}}
	default:
		return map[string]any{"UnresolvedObject": map[string]string{"objectId": obj.ID.String()}}
	}
}

func (t *Transaction) argumentJSON(a Argument) map[string]any {
	switch a.Kind {
	case ArgGasCoin:
		return map[string]any{"GasCoin": true}
	case ArgInput:
		typ := "pure"
		if int(a.Index) < len(t.inputs) && t.inputs[a.Index].Kind == InputObject {
			typ = "object"
		}
		return map[string]any{"Input": a.Index, "type": typ}
	case ArgResult:
		return map[string]any{"Result": a.Index}
	default:
		return map[string]any{"NestedResult": [2]uint16{a.Index, a.Nested}}
	}
}

func (t *Transaction) argumentsJSON(args []Argument) []map[string]any {
	out := make([]map[string]any, len(args))
	for i, a := range args {
		out[i] = t.argumentJSON(a)
	}
	return out
}

func (t *Transaction) commandJSON(c Command) map[string]any {
	switch c.Kind {
	case CommandMoveCall:
		return map[string]any{"MoveCall": map[string]any{
			"package":       c.Target.Package.String(),
			"module":        c.Target.Module,
			"function":      c.Target.Function,
			"typeArguments": []string{},
			"arguments":     t.argumentsJSON(c.Arguments),
		}}
	case CommandTransferObjects:
		return map[string]any{"TransferObjects": map[string]any{
			"objects": t.argumentsJSON(c.Objects),
			"address": t.argumentJSON(c.Recipient),
		}}
	case CommandSplitCoins:
		return map[string]any{"SplitCoins": map[string]any{
			"coin":    t.argumentJSON(c.Coin),
			"amounts": t.argumentsJSON(c.Amounts),
		}}
	default:
		return map[string]any{"MergeCoins": map[string]any{
			"destination": t.argumentJSON(c.Destination),
			"sources":     t.argumentsJSON(c.Sources),
		}}
	}
}
