package postgres

import (
	"context"

	"gorm.io/gorm"
)

// Query starts a fluent query against the database. It returns a
// QueryBuilder whose methods can be chained; the read lock taken here is
// released when a terminal method runs or Done() is invoked.
//
// Example:
//
//	var rows []Listing
//	err := db.Query(ctx).
//	    Where("is_active = ?", true).
//	    Order("listing_id ASC").
//	    Limit(100).
//	    Find(&rows)
func (p *Postgres) Query(ctx context.Context) *QueryBuilder {
	p.mu.RLock() // Released when a terminal method or Done() is called
	return &QueryBuilder{
		db:      p.client.WithContext(ctx),
		release: p.mu.RUnlock,
	}
}

// QueryBuilder provides a fluent interface for building database queries.
// It wraps GORM's query construction with thread safety and automatic
// lock release on terminal methods.
type QueryBuilder struct {
	db *gorm.DB

	// release returns the read lock taken by Query
	release func()
}

// Model specifies the model the query operates on. Useful when the model
// can't be inferred from the terminal method's destination.
func (qb *QueryBuilder) Model(value interface{}) *QueryBuilder {
	qb.db = qb.db.Model(value)
	return qb
}

// Where adds a WHERE condition. Multiple Where calls combine with AND.
func (qb *QueryBuilder) Where(query interface{}, args ...interface{}) *QueryBuilder {
	qb.db = qb.db.Where(query, args...)
	return qb
}

// Or combines the given condition with the previous ones using OR.
func (qb *QueryBuilder) Or(query interface{}, args ...interface{}) *QueryBuilder {
	qb.db = qb.db.Or(query, args...)
	return qb
}

// Joins adds a JOIN clause to the query.
func (qb *QueryBuilder) Joins(query string, args ...interface{}) *QueryBuilder {
	qb.db = qb.db.Joins(query, args...)
	return qb
}

// Select specifies the fields to retrieve.
func (qb *QueryBuilder) Select(query interface{}, args ...interface{}) *QueryBuilder {
	qb.db = qb.db.Select(query, args...)
	return qb
}

// Distinct eliminates duplicate rows from the result set.
func (qb *QueryBuilder) Distinct(args ...interface{}) *QueryBuilder {
	qb.db = qb.db.Distinct(args...)
	return qb
}

// Order adds an ORDER BY clause.
func (qb *QueryBuilder) Order(value interface{}) *QueryBuilder {
	qb.db = qb.db.Order(value)
	return qb
}

// Limit sets the maximum number of records to return.
func (qb *QueryBuilder) Limit(limit int) *QueryBuilder {
	qb.db = qb.db.Limit(limit)
	return qb
}

// Offset sets the number of records to skip, typically paired with Limit
// for pagination.
func (qb *QueryBuilder) Offset(offset int) *QueryBuilder {
	qb.db = qb.db.Offset(offset)
	return qb
}

// Raw replaces the query with a raw SQL statement.
func (qb *QueryBuilder) Raw(sql string, values ...interface{}) *QueryBuilder {
	qb.db = qb.db.Raw(sql, values...)
	return qb
}

// Find executes the query and stores matching rows in dest.
// Terminal: releases the lock.
func (qb *QueryBuilder) Find(dest interface{}) error {
	defer qb.release()
	return qb.db.Find(dest).Error
}

// First executes the query and stores the first matching row in dest.
// Terminal: releases the lock.
func (qb *QueryBuilder) First(dest interface{}) error {
	defer qb.release()
	return qb.db.First(dest).Error
}

// Count counts rows matching the query conditions.
// Terminal: releases the lock.
func (qb *QueryBuilder) Count(count *int64) error {
	defer qb.release()
	return qb.db.Count(count).Error
}

// Pluck queries a single column into dest.
// Terminal: releases the lock.
func (qb *QueryBuilder) Pluck(column string, dest interface{}) error {
	defer qb.release()
	return qb.db.Pluck(column, dest).Error
}

// Scan scans the query result into dest.
// Terminal: releases the lock.
func (qb *QueryBuilder) Scan(dest interface{}) error {
	defer qb.release()
	return qb.db.Scan(dest).Error
}

// Done releases the lock without executing a terminal operation. Call it
// when abandoning a builder chain.
func (qb *QueryBuilder) Done() {
	qb.release()
}
