package postgres

import "fmt"

// Migrate creates or updates the tables backing the given models. It
// takes the write lock so no query observes a half-migrated schema.
func (p *Postgres) Migrate(models ...interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.client.AutoMigrate(models...); err != nil {
		return fmt.Errorf("running schema migration: %w", err)
	}
	return nil
}
