package entity

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hugr-lab/filterql/query"
)

// ErrDecode is returned when a store value has an unexpected type.
var ErrDecode = errors.New("entity: cannot decode value")

// Charity is a registered charity.
type Charity struct {
	OrgID string `json:"orgId"`
}

// Comment is a comment left on a charity page.
type Comment struct {
	CommentID   int32     `json:"commentId"`
	Charity     string    `json:"charity"`
	Comment     string    `json:"comment"`
	CommentUser string    `json:"commentUser"`
	InsertTime  time.Time `json:"insertTime,omitzero"`
}

// CommentBlame is a report filed against a comment.
type CommentBlame struct {
	CommentID int32  `json:"commentId"`
	Charity   string `json:"charity"`
	Reporter  string `json:"reporter"`
	Reason    string `json:"reason,omitempty"`
}

// SearchedCharity is one entry of a user's search history.
type SearchedCharity struct {
	Username   string    `json:"username"`
	Charity    string    `json:"charity"`
	Visited    bool      `json:"visited"`
	InsertTime time.Time `json:"insertTime,omitzero"`
}

// DecodeCharity implements query.DecodeFunc.
func DecodeCharity(r query.Record) (Charity, error) {
	var (
		c   Charity
		err error
	)
	c.OrgID, err = str(r, "orgId")
	return c, err
}

// DecodeComment implements query.DecodeFunc.
func DecodeComment(r query.Record) (Comment, error) {
	d := decoder{r: r}
	return Comment{
		CommentID:   d.integer("commentId"),
		Charity:     d.str("charity"),
		Comment:     d.str("comment"),
		CommentUser: d.str("commentUser"),
		InsertTime:  d.timestamp("insertTime"),
	}, d.err
}

// DecodeCommentBlame implements query.DecodeFunc.
func DecodeCommentBlame(r query.Record) (CommentBlame, error) {
	d := decoder{r: r}
	return CommentBlame{
		CommentID: d.integer("commentId"),
		Charity:   d.str("charity"),
		Reporter:  d.str("reporter"),
		Reason:    d.str("reason"),
	}, d.err
}

// DecodeSearchedCharity implements query.DecodeFunc.
func DecodeSearchedCharity(r query.Record) (SearchedCharity, error) {
	d := decoder{r: r}
	return SearchedCharity{
		Username:   d.str("username"),
		Charity:    d.str("charity"),
		Visited:    d.boolean("visited"),
		InsertTime: d.timestamp("insertTime"),
	}, d.err
}

// decoder keeps the first error so struct literals stay flat.
type decoder struct {
	r   query.Record
	err error
}

func (d *decoder) str(field string) string {
	v, err := str(d.r, field)
	d.keep(err)
	return v
}

func (d *decoder) integer(field string) int32 {
	var n int64
	switch v := d.r[field].(type) {
	case nil:
		return 0
	case int32:
		return v
	case int64:
		n = v
	case int:
		n = int64(v)
	case int16:
		n = int64(v)
	case float64:
		n = int64(v)
	default:
		d.keep(mismatch(field, "int32", v))
		return 0
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		d.keep(fmt.Errorf("%w: %s value %d overflows int32", ErrDecode, field, n))
		return 0
	}
	return int32(n)
}

func (d *decoder) boolean(field string) bool {
	switch v := d.r[field].(type) {
	case nil:
		return false
	case bool:
		return v
	default:
		d.keep(mismatch(field, "bool", v))
		return false
	}
}

func (d *decoder) timestamp(field string) time.Time {
	switch v := d.r[field].(type) {
	case nil:
		return time.Time{}
	case time.Time:
		return v.UTC()
	default:
		d.keep(mismatch(field, "timestamp", v))
		return time.Time{}
	}
}

func (d *decoder) keep(err error) {
	if d.err == nil {
		d.err = err
	}
}

func str(r query.Record, field string) (string, error) {
	switch v := r[field].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", mismatch(field, "string", v)
	}
}

func mismatch(field, want string, got any) error {
	return fmt.Errorf("%w: %s want %s, got %T", ErrDecode, field, want, got)
}
