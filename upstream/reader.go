/*
reader.go - Range-chunked reads over upstream datasets

PURPOSE:
  Upstream collectors land point-of-sale, ticketing and ledger rows in
  tenant-scoped, date-ranged tables that this engine reads but never writes.
  A single week can span tens of thousands of rows, so every read goes
  through FetchAll: fixed-size pages accumulated until exhaustion.

PAGINATION CONTRACT:
  - Page size: 1000 rows.
  - A page shorter than the page size ends the scan.
  - Hard cap of 100 pages guards against a misbehaving source that keeps
    returning full pages.
  - Any page error aborts the scan and is surfaced; partial data is never
    returned silently. An empty result set is not an error - callers that
    treat a dataset as optional get a zero-length slice and contribute zero.

FILTERS:
  Query carries key-prefixed comparisons (at-least, at-most, equals,
  member-of) plus an optional sort key. Sources translate these into their
  native query language; the sqlite store builds WHERE clauses from them.

SEE ALSO:
  - store/sqlite/reader.go: Source implementation backed by SQL
  - metrics/: reducers folding the fetched rows into derived numbers
*/
package upstream

import (
	"context"
	"fmt"
)

const (
	// PageSize is the fixed number of rows requested per page.
	PageSize = 1000

	// MaxPages bounds a single FetchAll scan.
	MaxPages = 100
)

// Op is a filter comparison operator.
type Op string

const (
	OpAtLeast  Op = "gte"
	OpAtMost   Op = "lte"
	OpEquals   Op = "eq"
	OpMemberOf Op = "in"
)

// Filter is one column comparison applied to a dataset read.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Query describes a dataset read: which rows, in which order.
type Query struct {
	Dataset string
	Filters []Filter
	OrderBy string
}

// AtLeast, AtMost, Equals and MemberOf are shorthand constructors.
func AtLeast(column string, v any) Filter  { return Filter{Column: column, Op: OpAtLeast, Value: v} }
func AtMost(column string, v any) Filter   { return Filter{Column: column, Op: OpAtMost, Value: v} }
func Equals(column string, v any) Filter   { return Filter{Column: column, Op: OpEquals, Value: v} }
func MemberOf(column string, v any) Filter { return Filter{Column: column, Op: OpMemberOf, Value: v} }

// Source serves pages of rows for one dataset.
type Source[T any] interface {
	// FetchPage returns up to limit rows starting at offset.
	FetchPage(ctx context.Context, q Query, offset, limit int) ([]T, error)
}

// FetchAll reads the full matching row set through repeated fixed-size pages.
func FetchAll[T any](ctx context.Context, src Source[T], q Query) ([]T, error) {
	var all []T

	for page := 0; page < MaxPages; page++ {
		rows, err := src.FetchPage(ctx, q, page*PageSize, PageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", q.Dataset, page, err)
		}

		all = append(all, rows...)
		if len(rows) < PageSize {
			return all, nil
		}
	}

	return all, nil
}
