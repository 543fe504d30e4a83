package postgres

import (
	"context"
	"sync"

	"go.uber.org/fx"
)

var FXModule = fx.Module("postgres",
	fx.Provide(
		NewPostgres,
	),
	fx.Invoke(RegisterPostgresLifecycle),
)

// RegisterPostgresLifecycle starts the connection monitor and retry
// goroutines on application start and waits for them on shutdown.
func RegisterPostgresLifecycle(lifecycle fx.Lifecycle, postgres *Postgres) {
	wg := &sync.WaitGroup{}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				postgres.monitorConnection(context.Background())
			}()

			wg.Add(1)
			go func() {
				defer wg.Done()
				postgres.retryConnection(context.Background())
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(postgres.shutdownSignal)
			wg.Wait()
			return nil
		},
	})
}
