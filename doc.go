// Package filterql serves client-described filtering, sorting and paging
// over server-side entity collections as an Apache Arrow Flight service.
//
// Clients send a JSON query document with a DoGet ticket:
//
//	{"entity": "comment",
//	 "query": {"filters": {"filter": "equals", "field": "charity", "value": "oxfam"},
//	           "sorting": {"field": "insertTime", "ordering": "descending"},
//	           "first": 0, "max_count": 20}}
//
// The filter is validated against the entity fields, lowered to a
// parameterized SQL statement and run on the configured store. Results
// stream back as Arrow record batches.
//
// # Quick Start
//
//	schema, _ := filterql.NewSchemaBuilder().
//	    Entity("charity").
//	        Table("charities").
//	        Field("orgId", arrow.BinaryTypes.String).
//	        Key("orgId").
//	    Build()
//
//	store, _ := duckdb.Open("charities.db", nil)
//	config := filterql.ServerConfig{Schema: schema, Store: store}
//
//	grpcServer := grpc.NewServer(filterql.ServerOptions(config)...)
//	if err := filterql.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
//
// # Owner scoping
//
// Entities may declare an owner field. Queries on them are ANDed with
// "owner = caller" before the client filter, so a client can narrow but
// never widen what it sees. Owner-scoped entities need an Authenticator:
// without a caller identity they reject every query.
//
// # Authentication
//
// BearerAuth wraps a validation function. JWTAuth accepts HS256 tokens
// and uses the subject claim as identity.
//
// # Server Lifecycle
//
// NewServer registers handlers on a user-provided grpc.Server but does
// NOT manage listening or shutdown. TLS, extra interceptors and graceful
// stop stay under caller control.
package filterql
