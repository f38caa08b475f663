// Package msgpack wraps MessagePack encoding for Flight action payloads.
package msgpack

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrEmpty is returned when decoding an empty payload.
var ErrEmpty = errors.New("empty MessagePack data")

// Encode serializes v. Struct fields use their msgpack tags.
func Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode MessagePack: %w", err)
	}
	return data, nil
}

// Decode deserializes data into v, which must be a pointer.
//
//	var params struct {
//	    Entities []string `msgpack:"entities"`
//	}
//	err := msgpack.Decode(action.GetBody(), &params)
func Decode(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode MessagePack: %w", err)
	}
	return nil
}
