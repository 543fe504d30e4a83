package postgres

import (
	"context"
)

// Find finds records that match the given conditions
func (p *Postgres) Find(ctx context.Context, dest interface{}, conditions ...interface{}) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.client.WithContext(ctx).Find(dest, conditions...).Error
}

// First finds the first record that matches the given conditions
func (p *Postgres) First(ctx context.Context, dest interface{}, conditions ...interface{}) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.client.WithContext(ctx).First(dest, conditions...).Error
}

// Create creates a new record
func (p *Postgres) Create(ctx context.Context, value interface{}) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.client.WithContext(ctx).Create(value).Error
}

// Save persists all fields of the given record
func (p *Postgres) Save(ctx context.Context, value interface{}) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.client.WithContext(ctx).Save(value).Error
}

// Exec executes raw SQL
func (p *Postgres) Exec(ctx context.Context, sql string, values ...interface{}) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.client.WithContext(ctx).Exec(sql, values...).Error
}
