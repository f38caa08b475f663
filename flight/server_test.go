package flight

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"slices"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/filterql/auth"
	"github.com/hugr-lab/filterql/entity"
	"github.com/hugr-lab/filterql/internal/msgpack"
	"github.com/hugr-lab/filterql/internal/serialize"
	"github.com/hugr-lab/filterql/store/duckdb"
)

var testTokens = map[string]string{"alice-token": "alice", "bob-token": "bob"}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedStore(t *testing.T) *duckdb.Store {
	t.Helper()
	ctx := context.Background()

	s, err := duckdb.Open("", quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateTable(ctx, entity.CommentEntity))
	require.NoError(t, s.Insert(ctx, entity.CommentEntity,
		map[string]any{"commentId": int32(1), "charity": "oxfam", "comment": "great work", "commentUser": "alice", "insertTime": base},
		map[string]any{"commentId": int32(2), "charity": "unicef", "comment": "love it", "commentUser": "alice", "insertTime": base.Add(time.Hour)},
		map[string]any{"commentId": int32(3), "charity": "oxfam", "comment": "not sure", "commentUser": "bob", "insertTime": base.Add(2 * time.Hour)},
	))
	require.NoError(t, s.CreateTable(ctx, entity.CharityEntity))
	require.NoError(t, s.Insert(ctx, entity.CharityEntity,
		map[string]any{"orgId": "oxfam"},
		map[string]any{"orgId": "redcross"},
		map[string]any{"orgId": "unicef"},
	))
	return s
}

// startServer serves a Flight server on a loopback port and returns a
// connected client. A nil authenticator disables auth.
func startServer(t *testing.T, authenticator auth.Authenticator, opts ...Option) flight.Client {
	t.Helper()

	srv := NewServer(entity.Schema(), seedStore(t), memory.NewGoAllocator(), quietLogger(), "", opts...)

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryMetadataInterceptor(), auth.UnaryServerInterceptor(authenticator)),
		grpc.ChainStreamInterceptor(StreamMetadataInterceptor(), auth.StreamServerInterceptor(authenticator)),
	)
	RegisterFlightServer(grpcServer, srv)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	client, err := flight.NewClientWithMiddleware(lis.Addr().String(), nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func bearerAuth() auth.Authenticator {
	return auth.BearerAuth(func(token string) (string, error) {
		if id, ok := testTokens[token]; ok {
			return id, nil
		}
		return "", auth.ErrUnauthenticated
	})
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func ticket(t *testing.T, name, doc string) *flight.Ticket {
	t.Helper()
	var q json.RawMessage
	if doc != "" {
		q = json.RawMessage(doc)
	}
	data, err := EncodeTicket(name, q)
	require.NoError(t, err)
	return &flight.Ticket{Ticket: data}
}

// fetchColumn runs DoGet and collects one string or int32 column.
func fetchColumn[T any](t *testing.T, ctx context.Context, client flight.Client, tk *flight.Ticket, col int) []T {
	t.Helper()

	stream, err := client.DoGet(ctx, tk)
	require.NoError(t, err)
	reader, err := flight.NewRecordReader(stream)
	require.NoError(t, err)
	defer reader.Release()

	var out []T
	for reader.Next() {
		batch := reader.RecordBatch()
		switch arr := batch.Column(col).(type) {
		case *array.String:
			for i := 0; i < arr.Len(); i++ {
				out = append(out, any(arr.Value(i)).(T))
			}
		case *array.Int32:
			for i := 0; i < arr.Len(); i++ {
				out = append(out, any(arr.Value(i)).(T))
			}
		default:
			t.Fatalf("unexpected column type %T", arr)
		}
	}
	require.NoError(t, reader.Err())
	return out
}

// doGetCode returns the status code of the first DoGet response message.
func doGetCode(t *testing.T, ctx context.Context, client flight.Client, tk *flight.Ticket) codes.Code {
	t.Helper()
	stream, err := client.DoGet(ctx, tk)
	if err != nil {
		return status.Code(err)
	}
	_, err = stream.Recv()
	return status.Code(err)
}

func TestDoGetScopesToCaller(t *testing.T) {
	client := startServer(t, bearerAuth())
	ctx := withToken(context.Background(), "alice-token")

	ids := fetchColumn[int32](t, ctx, client, ticket(t, entity.CommentName, ""), 0)
	slices.Sort(ids)
	assert.Equal(t, []int32{1, 2}, ids)

	// the client filter narrows the owner scope, never widens it
	doc := `{"filters":{"filter":"or","arguments":[
		{"filter":"equals","field":"commentUser","value":"bob"},
		{"filter":"equals","field":"charity","value":"oxfam"}]}}`
	ids = fetchColumn[int32](t, ctx, client, ticket(t, entity.CommentName, doc), 0)
	assert.Equal(t, []int32{1}, ids)

	bobCtx := withToken(context.Background(), "bob-token")
	ids = fetchColumn[int32](t, bobCtx, client, ticket(t, entity.CommentName, ""), 0)
	assert.Equal(t, []int32{3}, ids)
}

func TestDoGetOrderedPage(t *testing.T) {
	client := startServer(t, bearerAuth())
	ctx := withToken(context.Background(), "alice-token")

	doc := `{"sorting":{"field":"orgId","ordering":"descending"},"first":1,"max_count":2}`
	names := fetchColumn[string](t, ctx, client, ticket(t, entity.CharityName, doc), 0)
	assert.Equal(t, []string{"redcross", "oxfam"}, names)
}

func TestDoGetEmptyResultSendsSchema(t *testing.T) {
	client := startServer(t, bearerAuth())
	ctx := withToken(context.Background(), "alice-token")

	doc := `{"filters":{"filter":"equals","field":"orgId","value":"nobody"}}`
	stream, err := client.DoGet(ctx, ticket(t, entity.CharityName, doc))
	require.NoError(t, err)
	reader, err := flight.NewRecordReader(stream)
	require.NoError(t, err)
	defer reader.Release()

	assert.True(t, reader.Schema().Equal(entity.CharityEntity.ArrowSchema()))
	assert.False(t, reader.Next())
}

func TestDoGetSmallBatches(t *testing.T) {
	client := startServer(t, nil, WithBatchSize(1))

	names := fetchColumn[string](t, context.Background(), client,
		ticket(t, entity.CharityName, `{"sorting":{"field":"orgId","ordering":"ascending"}}`), 0)
	assert.Equal(t, []string{"oxfam", "redcross", "unicef"}, names)
}

func TestDoGetErrors(t *testing.T) {
	client := startServer(t, bearerAuth())
	ctx := withToken(context.Background(), "alice-token")

	tests := []struct {
		name   string
		ctx    context.Context
		ticket *flight.Ticket
		want   codes.Code
	}{
		{"no token", context.Background(), ticket(t, entity.CharityName, ""), codes.Unauthenticated},
		{"bad token", withToken(context.Background(), "nope"), ticket(t, entity.CharityName, ""), codes.Unauthenticated},
		{"garbage ticket", ctx, &flight.Ticket{Ticket: []byte("{")}, codes.InvalidArgument},
		{"unknown entity", ctx, ticket(t, "donation", ""), codes.NotFound},
		{"unknown operator", ctx, ticket(t, entity.CommentName, `{"filters":{"filter":"between"}}`), codes.InvalidArgument},
		{"unknown field", ctx, ticket(t, entity.CommentName, `{"filters":{"filter":"equals","field":"author","value":"x"}}`), codes.InvalidArgument},
		{"bad page", ctx, ticket(t, entity.CommentName, `{"max_count":-1}`), codes.InvalidArgument},
		{"bad sorting", ctx, ticket(t, entity.CommentName, `{"sorting":{"field":"nope","ordering":"ascending"}}`), codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, doGetCode(t, tt.ctx, client, tt.ticket))
		})
	}
}

func TestDoGetOwnedEntityWithoutAuth(t *testing.T) {
	client := startServer(t, nil)
	ctx := context.Background()

	assert.Equal(t, codes.Unauthenticated, doGetCode(t, ctx, client, ticket(t, entity.CommentName, "")))

	names := fetchColumn[string](t, ctx, client, ticket(t, entity.CharityName, ""), 0)
	assert.Len(t, names, 3)
}

func TestGetFlightInfo(t *testing.T) {
	client := startServer(t, nil)
	ctx := context.Background()

	info, err := client.GetFlightInfo(ctx, &flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{entity.CommentName},
	})
	require.NoError(t, err)

	schema, err := flight.DeserializeSchema(info.GetSchema(), memory.NewGoAllocator())
	require.NoError(t, err)
	assert.True(t, schema.Equal(entity.CommentEntity.ArrowSchema()))

	require.Len(t, info.GetEndpoint(), 1)
	td, err := DecodeTicket(info.GetEndpoint()[0].GetTicket().GetTicket())
	require.NoError(t, err)
	assert.Equal(t, entity.CommentName, td.Entity)

	_, err = client.GetFlightInfo(ctx, &flight.FlightDescriptor{Type: flight.DescriptorPATH, Path: []string{"nope"}})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetFlightInfo(ctx, &flight.FlightDescriptor{Type: flight.DescriptorCMD, Cmd: []byte("x")})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestListFlights(t *testing.T) {
	client := startServer(t, nil)

	list := func(prefix string) []string {
		stream, err := client.ListFlights(context.Background(), &flight.Criteria{Expression: []byte(prefix)})
		require.NoError(t, err)
		var names []string
		for {
			info, err := stream.Recv()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			names = append(names, info.GetFlightDescriptor().GetPath()[0])
		}
		return names
	}

	assert.Equal(t, []string{"charity", "comment", "commentBlame", "searchedCharity"}, list(""))
	assert.Equal(t, []string{"comment", "commentBlame"}, list("comment"))
}

func TestDoActionDescribeEntities(t *testing.T) {
	client := startServer(t, nil)
	ctx := context.Background()

	describe := func(body []byte) ([]serialize.EntityDescriptor, error) {
		stream, err := client.DoAction(ctx, &flight.Action{Type: ActionDescribeEntities, Body: body})
		if err != nil {
			return nil, err
		}
		res, err := stream.Recv()
		if err != nil {
			return nil, err
		}
		return serialize.DecodeDescriptors(res.GetBody())
	}

	all, err := describe(nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	body, err := msgpack.Encode(map[string]any{"entities": []string{entity.CommentName}})
	require.NoError(t, err)
	one, err := describe(body)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "commentUser", one[0].OwnerField)
	assert.Len(t, one[0].Fields, 5)

	body, err = msgpack.Encode(map[string]any{"entities": []string{"nope"}})
	require.NoError(t, err)
	_, err = describe(body)
	assert.Equal(t, codes.NotFound, status.Code(err))

	stream, err := client.DoAction(ctx, &flight.Action{Type: "drop_everything"})
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestListActions(t *testing.T) {
	client := startServer(t, nil)

	stream, err := client.ListActions(context.Background(), &flight.Empty{})
	require.NoError(t, err)
	at, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, ActionDescribeEntities, at.GetType())
}
