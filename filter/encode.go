package filter

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Encoder lowers a validated filter tree to a SQL predicate.
// Implementations handle dialect-specific syntax.
type Encoder interface {
	// Encode converts a tree to a squirrel predicate.
	// The tree is re-validated against the encoder's entity.
	Encode(node Node) (sq.Sqlizer, error)
}

// EncoderOptions configures encoding behavior.
type EncoderOptions struct {
	// ColumnMapping maps field names to storage column names.
	// Takes precedence over the entity's declared columns.
	ColumnMapping map[string]string

	// ColumnExpressions maps field names to SQL expressions.
	// Takes precedence over ColumnMapping.
	// Use for computed fields.
	ColumnExpressions map[string]string

	// EscapeLikeWildcards makes like patterns match literally:
	// % and _ in the pattern lose their wildcard meaning.
	EscapeLikeWildcards bool
}

// likeEscape is the escape character declared on every LIKE.
const likeEscape = `\`

// escapeLikePattern escapes the escape character and both wildcards.
func escapeLikePattern(p string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(p)
}

// danglingEscape reports a pattern whose last escape character has
// nothing to escape. Stores disagree on such patterns, so they are refused.
func danglingEscape(p string) bool {
	n := len(p) - len(strings.TrimRight(p, likeEscape))
	return n%2 == 1
}

// notExpr negates a predicate.
type notExpr struct {
	pred sq.Sqlizer
}

func (n notExpr) ToSql() (string, []any, error) {
	sql, args, err := n.pred.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + sql + ")", args, nil
}

// QuoteIdentifier returns a quoted identifier if needed.
// Both DuckDB and PostgreSQL use double quotes for identifiers.
func QuoteIdentifier(name string) string {
	if needsQuoting(name) {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}

// needsQuoting returns true if the identifier needs quoting.
// Mixed-case names are quoted so PostgreSQL does not fold them.
func needsQuoting(name string) bool {
	if len(name) == 0 {
		return true
	}

	c := name[0]
	if !isLower(c) && c != '_' {
		return true
	}

	for i := 1; i < len(name); i++ {
		c = name[i]
		if !isLower(c) && !isDigit(c) && c != '_' {
			return true
		}
	}

	switch strings.ToUpper(name) {
	case "SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "NULL", "TRUE", "FALSE",
		"INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER", "TABLE", "INDEX",
		"JOIN", "LEFT", "RIGHT", "INNER", "OUTER", "ON", "AS", "IN", "IS", "LIKE",
		"BETWEEN", "EXISTS", "CASE", "WHEN", "THEN", "ELSE", "END", "ORDER", "BY",
		"GROUP", "HAVING", "LIMIT", "OFFSET", "UNION", "EXCEPT", "INTERSECT",
		"ALL", "DISTINCT", "VALUES", "SET", "INTO", "PRIMARY", "KEY", "FOREIGN",
		"REFERENCES", "CONSTRAINT", "DEFAULT", "CHECK", "UNIQUE", "ASC", "DESC",
		"NULLS", "FIRST", "LAST", "CAST", "INTERVAL", "DATE", "TIME", "TIMESTAMP",
		"USER", "COMMENT":
		return true
	}

	return false
}

func isLower(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
