package flight

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidTicket is returned for tickets that cannot be decoded.
var ErrInvalidTicket = errors.New("invalid ticket")

// TicketData is the decoded content of a DoGet ticket:
//
//	{"entity": "comment", "query": {"filters": ..., "max_count": 20}}
//
// Query is the client query document and may be omitted.
type TicketData struct {
	Entity string          `json:"entity"`
	Query  json.RawMessage `json:"query,omitempty"`
}

// EncodeTicket creates a ticket for entity carrying the query document.
// A nil document selects every row the caller may see.
func EncodeTicket(entity string, queryDoc json.RawMessage) ([]byte, error) {
	if entity == "" {
		return nil, fmt.Errorf("%w: entity name cannot be empty", ErrInvalidTicket)
	}
	data, err := json.Marshal(TicketData{Entity: entity, Query: queryDoc})
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return data, nil
}

// DecodeTicket parses a ticket produced by EncodeTicket.
func DecodeTicket(ticket []byte) (*TicketData, error) {
	if len(ticket) == 0 {
		return nil, fmt.Errorf("%w: ticket cannot be empty", ErrInvalidTicket)
	}

	var td TicketData
	if err := json.Unmarshal(ticket, &td); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	if td.Entity == "" {
		return nil, fmt.Errorf("%w: decoded ticket has empty entity name", ErrInvalidTicket)
	}
	return &td, nil
}
