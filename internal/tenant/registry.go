package tenant

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Tenant is one row of the tenant directory. Each tenant's data lives in
// its own database, reachable through the DSN recorded here.
type Tenant struct {
	ID   uuid.UUID
	Code string
	Name string
	DSN  string
}

// Handle binds a tenant to its open connection pool. It is passed by
// value through the ingest call chain so that concurrent workers never
// share an "active tenant" through process state.
type Handle struct {
	Tenant Tenant
	Pool   *pgxpool.Pool
}

// Registry enumerates tenants from the directory database and hands out
// per-tenant connection pools, opened lazily and cached for the process
// lifetime.
type Registry struct {
	directory *pgxpool.Pool
	logger    *zap.Logger

	mu    sync.Mutex
	pools map[uuid.UUID]*pgxpool.Pool
}

// NewRegistry creates a registry backed by the directory database
func NewRegistry(lc fx.Lifecycle, logger *zap.Logger, directoryURL string) (*Registry, error) {
	logger.Info("initializing tenant directory connection pool")

	poolCfg, err := pgxpool.ParseConfig(directoryURL)
	if err != nil {
		return nil, fmt.Errorf("[DIRECTORY] failed to parse database URL: %w", err)
	}

	directory, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("[DIRECTORY] failed to create connection pool: %w", err)
	}

	r := &Registry{
		directory: directory,
		logger:    logger,
		pools:     make(map[uuid.UUID]*pgxpool.Pool),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("attempting to connect to tenant directory...")
			if err := directory.Ping(ctx); err != nil {
				logger.Error("tenant directory ping failed", zap.Error(err))
				return fmt.Errorf("[DIRECTORY CONNECTION FAILED] cannot reach the tenant directory database. Please check: 1) Database is running, 2) DIRECTORY_DATABASE_URL is correct, 3) Network/firewall allows connection. Error: %w", err)
			}
			logger.Info("tenant directory connection established successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			r.closeAll()
			logger.Info("tenant connection pools closed")
			return nil
		},
	})

	return r, nil
}

// List enumerates all active tenants from the directory
func (r *Registry) List(ctx context.Context) ([]Tenant, error) {
	query := `
		SELECT id, code, name, dsn
		FROM tenants
		WHERE active = true
		ORDER BY code
	`

	rows, err := r.directory.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Code, &t.Name, &t.DSN); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tenants, nil
}

// Acquire returns a handle on the tenant's database, opening the pool on
// first use.
func (r *Registry) Acquire(ctx context.Context, t Tenant) (Handle, error) {
	r.mu.Lock()
	pool, ok := r.pools[t.ID]
	r.mu.Unlock()
	if ok {
		return Handle{Tenant: t, Pool: pool}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(t.DSN)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to parse DSN for tenant %s: %w", t.Code, err)
	}

	pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to open pool for tenant %s: %w", t.Code, err)
	}

	r.mu.Lock()
	// Another worker may have raced us here; keep the first pool.
	if existing, ok := r.pools[t.ID]; ok {
		r.mu.Unlock()
		pool.Close()
		return Handle{Tenant: t, Pool: existing}, nil
	}
	r.pools[t.ID] = pool
	r.mu.Unlock()

	r.logger.Debug("opened tenant pool", zap.String("tenant", t.Code))
	return Handle{Tenant: t, Pool: pool}, nil
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, pool := range r.pools {
		pool.Close()
		delete(r.pools, id)
	}
	r.directory.Close()
}
