// Package query runs compiled filters against a backing store.
//
// An Executor is created per request for one entity. Its Builder is bound
// to the executor's scope, so every node passed to Run was validated for
// this query:
//
//	exec := query.NewExecutor(store, entity.CommentEntity, entity.DecodeComment)
//	node, err := filter.Compile(exec.Builder(), doc)
//	if err != nil {
//	    return err
//	}
//	res, err := exec.RunOrdered(ctx, node, query.Desc("insertTime"), query.Window(0, 20))
//
// Execute does the same for a whole client request and ANDs a server-side
// predicate, such as OwnedBy(user), around the client filter.
//
// Ordering and paging are pushed into the store statement. Each run is a
// single store round trip and results are fully materialized.
package query
