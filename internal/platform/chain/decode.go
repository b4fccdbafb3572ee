package chain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/nereus-labs/nereus/internal/domain"
)

var validate = validator.New()

// U64 decodes a Move u64 that the indexer renders either as a decimal string
// or as a JSON number.
type U64 uint64

func (u *U64) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	v, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("not a u64: %s", b)
	}
	*u = U64(v)
	return nil
}

// marketContent is the JSON rendering of a Market object's fields. Pointers
// distinguish absent fields from zero values.
type marketContent struct {
	Topic          *string `json:"topic" validate:"required"`
	Description    *string `json:"description" validate:"required"`
	StartTime      *U64    `json:"start_time" validate:"required"`
	EndTime        *U64    `json:"end_time" validate:"required"`
	Balance        *U64    `json:"balance" validate:"required"`
	Yes            *U64    `json:"yes" validate:"required"`
	No             *U64    `json:"no" validate:"required"`
	OracleConfigID string  `json:"oracle_config_id"`
}

// decodeMarket turns one indexer node into a Market, or fails without
// returning a partial record.
func decodeMarket(n objectNode) (domain.Market, error) {
	if n.AsMoveObject == nil || len(n.AsMoveObject.Contents.JSON) == 0 {
		return domain.Market{}, fmt.Errorf("%w: market %s: missing contents", domain.ErrDecode, n.Address)
	}
	var c marketContent
	if err := json.Unmarshal(n.AsMoveObject.Contents.JSON, &c); err != nil {
		return domain.Market{}, fmt.Errorf("%w: market %s: %v", domain.ErrDecode, n.Address, err)
	}
	if err := validate.Struct(c); err != nil {
		return domain.Market{}, fmt.Errorf("%w: market %s: %v", domain.ErrDecode, n.Address, err)
	}
	if n.Owner.InitialSharedVersion == nil {
		return domain.Market{}, fmt.Errorf("%w: market %s: not a shared object", domain.ErrDecode, n.Address)
	}
	return domain.Market{
		ID:                   n.Address,
		Digest:               n.Digest,
		Version:              uint64(n.Version),
		InitialSharedVersion: uint64(*n.Owner.InitialSharedVersion),
		Topic:                *c.Topic,
		Description:          *c.Description,
		StartTime:            int64(*c.StartTime),
		EndTime:              int64(*c.EndTime),
		Balance:              uint64(*c.Balance),
		Yes:                  uint64(*c.Yes),
		No:                   uint64(*c.No),
		OracleConfig:         c.OracleConfigID,
	}, nil
}
