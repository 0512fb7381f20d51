package sqlexpr

import (
	"strconv"

	"github.com/yborm/yborm-go/ybormerr"
)

// Select is the SELECT statement builder (spec §4.1). Build with NewSelect
// and chain the builder methods (From, Where, OrderBy, LockMode, ...);
// GenerateSQL validates and serializes.
type Select struct {
	cols       []Node
	from       Node
	where      Node
	groupBy    []Node
	having     Node
	orderBy    []Node
	distinctFl bool
	lockMode   string
	limit      int
	offset     int
	hasLimit   bool
}

func NewSelect(cols ...Node) *Select {
	return &Select{cols: cols}
}

func (s *Select) From(from Node) *Select         { s.from = from; return s }
func (s *Select) Where(where Node) *Select       { s.where = where; return s }
func (s *Select) GroupBy(cols ...Node) *Select   { s.groupBy = cols; return s }
func (s *Select) Having(having Node) *Select     { s.having = having; return s }
func (s *Select) OrderBy(cols ...Node) *Select   { s.orderBy = cols; return s }
func (s *Select) Distinct(d bool) *Select        { s.distinctFl = d; return s }
func (s *Select) LockMode(mode string) *Select   { s.lockMode = mode; return s }
func (s *Select) Pager(limit, offset int) *Select {
	s.limit, s.offset, s.hasLimit = limit, offset, true
	return s
}

// GenerateSQL serializes in fixed clause order: SELECT [DISTINCT] cols FROM
// ... [WHERE ...] [GROUP BY ...] [HAVING ...] [ORDER BY ...] [FOR UPDATE]
// (spec §4.1). HAVING without GROUP BY is rejected with BadSQLOperation.
func (s *Select) GenerateSQL(opts Options, ctx *Context) string {
	sql, err := s.render(opts, ctx)
	if err != nil {
		panic(err)
	}
	return sql
}

// Render is the fallible counterpart of GenerateSQL, used by callers (the
// Engine) that want the BadSQLOperation error instead of a panic.
func (s *Select) Render(opts Options, ctx *Context) (string, error) {
	return s.render(opts, ctx)
}

func (s *Select) render(opts Options, ctx *Context) (string, error) {
	if s.having != nil && len(s.groupBy) == 0 {
		return "", ybormerr.BadSQLOperation("HAVING without GROUP BY")
	}

	out := "SELECT "
	if s.distinctFl {
		out += "DISTINCT "
	}
	if len(s.cols) == 0 {
		out += "*"
	} else {
		out += NewList(s.cols...).GenerateSQL(opts, ctx)
	}
	if s.from != nil {
		out += " FROM " + s.from.GenerateSQL(opts, ctx)
	}
	if s.where != nil {
		out += " WHERE " + s.where.GenerateSQL(opts, ctx)
	}
	if len(s.groupBy) > 0 {
		out += " GROUP BY " + NewList(s.groupBy...).GenerateSQL(opts, ctx)
	}
	if s.having != nil {
		out += " HAVING " + s.having.GenerateSQL(opts, ctx)
	}
	if len(s.orderBy) > 0 {
		out += " ORDER BY " + NewList(s.orderBy...).GenerateSQL(opts, ctx)
	}
	if s.hasLimit {
		out += renderPager(opts.PagerModel, s.limit, s.offset)
	}
	if s.lockMode != "" && opts.HasForUpdate {
		out += " " + s.lockMode
	}
	return out, nil
}

func renderPager(model PagerModel, limit, offset int) string {
	switch model {
	case PagerMysql:
		if offset > 0 {
			return " LIMIT " + strconv.Itoa(offset) + "," + strconv.Itoa(limit)
		}
		return " LIMIT " + strconv.Itoa(limit)
	case PagerMssql:
		out := " OFFSET " + strconv.Itoa(offset) + " ROWS"
		if limit > 0 {
			out += " FETCH NEXT " + strconv.Itoa(limit) + " ROWS ONLY"
		}
		return out
	default: // PagerPostgres and anything else default to standard SQL
		out := ""
		if limit > 0 {
			out += " LIMIT " + strconv.Itoa(limit)
		}
		if offset > 0 {
			out += " OFFSET " + strconv.Itoa(offset)
		}
		return out
	}
}
