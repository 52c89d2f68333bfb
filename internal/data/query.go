// internal/data/query.go
//
// Query-plan construction for list requests. Filters are compiled into a
// pair of fully parameterized statements (data + count) sharing the exact
// same predicate set, so the page contents and the reported total can never
// disagree. Values are never interpolated into the query text; goqu's
// prepared mode compiles every filter to a bind placeholder.
package data

import (
	"errors"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/doug-martin/goqu/v9/exp"
)

const (
	booksTable       = "books"
	dialectPostgres  = "postgres"
	defaultSortOrder = "-created_at"

	colID          = "id"
	colName        = "name"
	colModuleType  = "module_type"
	colStatus      = "status"
	colDescription = "description"
	colIcon        = "icon"
	colCreatorID   = "creator_id"
	colCreatedAt   = "created_at"
	colUpdatedAt   = "updated_at"
)

// bookColumns is the fixed column list selected by every book read.
var bookColumns = []any{
	colID, colName, colModuleType, colStatus,
	colDescription, colIcon, colCreatorID, colCreatedAt, colUpdatedAt,
}

// searchColumns is the fixed set of text columns the search term matches
// against, OR-combined with each other and ANDed with the other predicates.
var searchColumns = []string{colName, colDescription}

// ErrBuildingQueryFailed is returned when a filter cannot be compiled to SQL.
var ErrBuildingQueryFailed = errors.New("building query failed")

// QueryPlan is a parameterized statement ready for execution: the SQL text
// contains only bind placeholders and Args carries the values in order.
type QueryPlan struct {
	SQL  string
	Args []any
}

// BuildBookQuery compiles the filters into a data plan and its matching
// count plan. The two plans always share the same predicate expression.
func BuildBookQuery(f Filters) (dataPlan QueryPlan, countPlan QueryPlan, err error) {
	builder := goqu.Dialect(dialectPostgres)
	where := f.whereClause()

	dataStmt := builder.
		From(booksTable).
		Prepared(true).
		Select(bookColumns...).
		Where(where...).
		Order(f.orderClause()...).
		Limit(uint(f.limit())).
		Offset(uint(f.offset()))

	dataSQL, dataArgs, toSQLErr := dataStmt.ToSQL()
	if toSQLErr != nil {
		return QueryPlan{}, QueryPlan{}, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	countStmt := builder.
		From(booksTable).
		Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(where...)

	countSQL, countArgs, toSQLErr := countStmt.ToSQL()
	if toSQLErr != nil {
		return QueryPlan{}, QueryPlan{}, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return QueryPlan{SQL: dataSQL, Args: dataArgs}, QueryPlan{SQL: countSQL, Args: countArgs}, nil
}

// whereClause compiles the declared filters into a single AND-combined
// expression list. The search term alone expands to an OR across the
// declared text columns before being ANDed with the rest.
func (f Filters) whereClause() []goqu.Expression {
	expressions := make([]goqu.Expression, 0, 5)

	if f.ModuleType != "" {
		expressions = append(expressions, goqu.C(colModuleType).Eq(f.ModuleType))
	}

	if f.Status != "" {
		expressions = append(expressions, goqu.C(colStatus).Eq(f.Status))
	}

	if !f.StartDate.IsZero() {
		expressions = append(expressions, goqu.C(colCreatedAt).Gte(f.StartDate))
	}

	if !f.EndDate.IsZero() {
		expressions = append(expressions, goqu.C(colCreatedAt).Lte(f.EndDate))
	}

	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		searchExpressions := make([]goqu.Expression, 0, len(searchColumns))
		for _, col := range searchColumns {
			searchExpressions = append(searchExpressions, goqu.C(col).ILike(pattern))
		}
		expressions = append(expressions, goqu.Or(searchExpressions...))
	}

	return expressions
}

// sortColumn returns the validated column name for ORDER BY. A requested
// column that is not on the safe list falls back to the default sort column
// without erroring.
func (f Filters) sortColumn() string {
	for _, safe := range f.SortSafeList {
		if f.Sort == safe {
			return strings.TrimPrefix(f.Sort, "-")
		}
	}
	return strings.TrimPrefix(defaultSortOrder, "-")
}

// sortDescending reports whether the sort direction is DESC, indicated by a
// "-" prefix on the sort parameter.
func (f Filters) sortDescending() bool {
	if f.sortColumn() != strings.TrimPrefix(f.Sort, "-") {
		// Fell back to the default order; use its direction instead.
		return strings.HasPrefix(defaultSortOrder, "-")
	}
	return strings.HasPrefix(f.Sort, "-")
}

// EffectiveSort returns the sort value actually applied after safelist
// validation, in the request's "-column" notation. Cache keys are built
// from it, so a sort value that fell back to the default shares the
// default's cache entry instead of minting its own.
func (f Filters) EffectiveSort() string {
	column := f.sortColumn()
	if f.sortDescending() {
		return "-" + column
	}
	return column
}

// orderClause builds the ORDER BY expression list: the requested column
// first, then created_at and id as stable tiebreakers so that paginated
// results are reproducible when the underlying data is unchanged.
func (f Filters) orderClause() []exp.OrderedExpression {
	column := f.sortColumn()

	primary := goqu.I(column).Asc()
	if f.sortDescending() {
		primary = goqu.I(column).Desc()
	}

	order := []exp.OrderedExpression{primary}
	if column != colCreatedAt {
		order = append(order, goqu.I(colCreatedAt).Asc())
	}
	order = append(order, goqu.I(colID).Asc())

	return order
}
