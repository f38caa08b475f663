// Package entity declares the collections served by filterql: charities,
// comments, comment reports and charity search history.
//
// Each collection has a catalog declaration and a typed decoder for
// query.Executor. Owner-scoped collections name the field holding the
// user who owns the row.
package entity

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/filterql/catalog"
)

// Collection names.
const (
	CharityName         = "charity"
	CommentName         = "comment"
	CommentBlameName    = "commentBlame"
	SearchedCharityName = "searchedCharity"
)

var (
	// CharityEntity is the public charity directory.
	CharityEntity = catalog.MustEntity(catalog.EntityDef{
		Name:    CharityName,
		Table:   "charities",
		Comment: "Registered charities",
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "orgId", Type: arrow.BinaryTypes.String},
		}, nil),
		Columns: map[string]string{"orgId": "orgid"},
		Key:     []string{"orgId"},
	})

	// CommentEntity holds user comments on charities, owned by commentUser.
	CommentEntity = catalog.MustEntity(catalog.EntityDef{
		Name:    CommentName,
		Table:   "comments",
		Comment: "Comments left on charity pages",
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "commentId", Type: arrow.PrimitiveTypes.Int32},
			{Name: "charity", Type: arrow.BinaryTypes.String},
			{Name: "comment", Type: arrow.BinaryTypes.String},
			{Name: "commentUser", Type: arrow.BinaryTypes.String},
			{Name: "insertTime", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: true},
		}, nil),
		Columns: map[string]string{
			"commentId":   "comment_id",
			"commentUser": "comment_user",
			"insertTime":  "insert_time",
		},
		OwnerField: "commentUser",
		Key:        []string{"charity", "commentId"},
	})

	// CommentBlameEntity holds comment reports, owned by reporter.
	CommentBlameEntity = catalog.MustEntity(catalog.EntityDef{
		Name:    CommentBlameName,
		Table:   "comment_blame",
		Comment: "Comments reported by users",
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "commentId", Type: arrow.PrimitiveTypes.Int32},
			{Name: "charity", Type: arrow.BinaryTypes.String},
			{Name: "reporter", Type: arrow.BinaryTypes.String},
			{Name: "reason", Type: arrow.BinaryTypes.String, Nullable: true},
		}, nil),
		Columns:    map[string]string{"commentId": "comment_id"},
		OwnerField: "reporter",
		Key:        []string{"charity", "commentId", "reporter"},
	})

	// SearchedCharityEntity is per-user search history, owned by username.
	SearchedCharityEntity = catalog.MustEntity(catalog.EntityDef{
		Name:    SearchedCharityName,
		Table:   "searched_charities",
		Comment: "Charities a user searched for",
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "username", Type: arrow.BinaryTypes.String},
			{Name: "charity", Type: arrow.BinaryTypes.String},
			{Name: "visited", Type: arrow.FixedWidthTypes.Boolean},
			{Name: "insertTime", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: true},
		}, nil),
		Columns:    map[string]string{"insertTime": "insert_time"},
		OwnerField: "username",
		Key:        []string{"username", "charity"},
	})
)

// Entities returns every collection declaration.
func Entities() []*catalog.Entity {
	return []*catalog.Entity{CharityEntity, CommentEntity, CommentBlameEntity, SearchedCharityEntity}
}

// Schema returns a schema holding every collection.
func Schema() catalog.Schema {
	s, err := catalog.NewStaticSchema(Entities()...)
	if err != nil {
		panic(err)
	}
	return s
}
