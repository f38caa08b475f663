package query

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hugr-lab/filterql/filter"
)

// Request is the client query document:
//
//	{"filters": FilterExpr, "sorting": {"field": ..., "ordering": ...},
//	 "first": 0, "max_count": 20}
//
// Every key is optional.
type Request struct {
	Filters  json.RawMessage `json:"filters,omitempty"`
	Sorting  json.RawMessage `json:"sorting,omitempty"`
	First    json.RawMessage `json:"first,omitempty"`
	MaxCount json.RawMessage `json:"max_count,omitempty"`
}

// DecodeRequest parses a query document. A document wrapped as
// {"query": {...}} is unwrapped. Empty input is an empty request.
func DecodeRequest(data []byte) (*Request, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Request{}, nil
	}
	if data[0] != '{' {
		return nil, &filter.MalformedFilterError{Reason: "query document must be an object"}
	}

	var envelope struct {
		Query json.RawMessage `json:"query"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &filter.MalformedFilterError{Reason: fmt.Sprintf("invalid query document: %v", err)}
	}
	if q := bytes.TrimSpace(envelope.Query); len(q) > 0 && q[0] == '{' {
		data = q
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &filter.MalformedFilterError{Reason: fmt.Sprintf("invalid query document: %v", err)}
	}
	return &req, nil
}

// DecodeBase64Request parses a query document passed as a URL-safe
// base64 string, as sent in a query-string parameter.
func DecodeBase64Request(s string) (*Request, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, &filter.MalformedFilterError{Reason: fmt.Sprintf("invalid base64 query: %v", err)}
	}
	return DecodeRequest(data)
}

// HasFilter reports whether the request carries a filter expression.
func (r *Request) HasFilter() bool {
	f := bytes.TrimSpace(r.Filters)
	return len(f) > 0 && !bytes.Equal(f, []byte("null"))
}

// Predicate builds the server-side restriction that is ANDed with the
// client filter. A nil node means no restriction.
type Predicate func(b *filter.Builder) (filter.Node, error)

// OwnedBy restricts results to rows whose owner field equals identity.
func OwnedBy(identity string) Predicate {
	return func(b *filter.Builder) (filter.Node, error) {
		owner := b.Entity().OwnerField()
		if owner == "" {
			return nil, fmt.Errorf("entity %s is not owner-scoped", b.Entity().Name())
		}
		if identity == "" {
			return nil, ErrOwnerRequired
		}
		return b.EqualTo(owner, filter.StringValue(identity))
	}
}

// Public places no server-side restriction on the query.
func Public() Predicate {
	return func(*filter.Builder) (filter.Node, error) { return nil, nil }
}

// Execute runs a client request on exec.
//
// The client filter is compiled with the executor's builder and combined
// as And(server, client), so the client can only narrow what scope allows.
// Ordering and paging are taken from the request.
//
// A nil scope is only accepted for entities without an owner field.
// Execute consumes exec even when the request is rejected.
func Execute[T any](ctx context.Context, exec *Executor[T], req *Request, scope Predicate) (*Result[T], error) {
	if !exec.claim() {
		return nil, ErrExecutorUsed
	}
	defer exec.scope.Close()

	if scope == nil {
		if exec.entity.OwnerField() != "" {
			return nil, ErrOwnerRequired
		}
		scope = Public()
	}
	if req == nil {
		req = &Request{}
	}

	b := exec.Builder()

	server, err := scope(b)
	if err != nil {
		return nil, err
	}

	var client filter.Node
	if req.HasFilter() {
		client, err = filter.CompileWithOptions(b, req.Filters, exec.opts.compile)
		if err != nil {
			exec.opts.metrics.Rejected(exec.entity.Name())
			return nil, err
		}
	}

	node, err := combine(b, server, client)
	if err != nil {
		return nil, err
	}

	order, err := ParseOrder(req.Sorting)
	if err != nil {
		exec.opts.metrics.Rejected(exec.entity.Name())
		return nil, err
	}
	page, err := ParsePage(req.First, req.MaxCount)
	if err != nil {
		exec.opts.metrics.Rejected(exec.entity.Name())
		return nil, err
	}

	return exec.run(ctx, node, order, page)
}

func combine(b *filter.Builder, server, client filter.Node) (filter.Node, error) {
	switch {
	case server == nil:
		return client, nil
	case client == nil:
		return server, nil
	default:
		return b.And(server, client)
	}
}
