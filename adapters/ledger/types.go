package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Uint64 decodes integers the Sui RPC may send either as JSON numbers or decimal strings
type Uint64 uint64

// UnmarshalJSON accepts both a JSON number and a decimal string
func (u *Uint64) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*u = 0
		return nil
	}
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", data, err)
	}
	*u = Uint64(v)
	return nil
}

// MarshalJSON writes the value as a decimal string
func (u Uint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

type systemState struct {
	Epoch Uint64 `json:"epoch"`
}

type coinObject struct {
	CoinType     string `json:"coinType"`
	CoinObjectID string `json:"coinObjectId"`
	Version      Uint64 `json:"version"`
	Digest       string `json:"digest"`
	Balance      Uint64 `json:"balance"`
}

type coinPage struct {
	Data        []coinObject `json:"data"`
	NextCursor  *string      `json:"nextCursor"`
	HasNextPage bool         `json:"hasNextPage"`
}

type balanceResponse struct {
	CoinType        string `json:"coinType"`
	CoinObjectCount int    `json:"coinObjectCount"`
	TotalBalance    Uint64 `json:"totalBalance"`
}

type objectResponseQuery struct {
	Filter  any           `json:"filter,omitempty"`
	Options objectOptions `json:"options"`
}

type objectOptions struct {
	ShowType    bool `json:"showType"`
	ShowDisplay bool `json:"showDisplay"`
}

type displayData struct {
	Data map[string]string `json:"data"`
}

type objectData struct {
	ObjectID string       `json:"objectId"`
	Version  Uint64       `json:"version"`
	Digest   string       `json:"digest"`
	Type     string       `json:"type"`
	Display  *displayData `json:"display"`
}

type objectPage struct {
	Data []struct {
		Data *objectData `json:"data"`
	} `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

type executeOptions struct {
	ShowEffects bool `json:"showEffects"`
}

type executionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type executeResponse struct {
	Digest  string `json:"digest"`
	Effects *struct {
		Status executionStatus `json:"status"`
	} `json:"effects"`
}
