// Package filter compiles client-supplied JSON filter documents into
// validated expression trees and lowers them to SQL predicates.
//
// Clients describe a predicate as a boolean tree of field comparisons:
//
//	{"filter": "and", "arguments": [
//	    {"filter": "equals", "field": "charity", "value": "Red Cross"},
//	    {"filter": "not", "arguments": [
//	        {"filter": "like", "field": "comment", "value": "%spam%"}
//	    ]}
//	]}
//
// # Building Trees
//
// A Builder is bound to one entity and one query Scope. Every comparison
// is checked against the entity: unknown fields yield *UnknownFieldError and
// incompatible operands yield *TypeMismatchError.
//
//	scope := filter.NewScope()
//	b := filter.NewBuilder(scope, entity)
//	node, err := filter.Compile(b, data)
//
// Trees can also be built directly, e.g. to add server-side predicates:
//
//	owner, _ := b.EqualTo("commentUser", filter.StringValue(identity))
//	scoped, _ := b.And(owner, node)
//
// # Lowering
//
// SQLEncoder turns a tree into a squirrel predicate. The tree is checked
// against the entity again, so a tree built for another entity cannot
// reach the store.
//
//	enc := filter.NewSQLEncoder(entity, nil)
//	where, err := enc.Encode(node)
//
// An And with no children lowers to (1=1) and an Or with no children to
// (1=0).
//
// # Like Patterns
//
// By default % and _ in a like operand are wildcards and a backslash
// escapes them. A pattern ending in an unpaired backslash is rejected as
// malformed. Set EncoderOptions.EscapeLikeWildcards to match the operand
// literally.
package filter
