package tenant

import (
	"context"

	"github.com/workpulse-hris/attendance-worker/internal/store"
	"go.uber.org/zap"
)

// Match is one tenant that owns a device serial, together with the handle
// the caller should use for subsequent writes.
type Match struct {
	Handle Handle
	Device *store.BiometricDevice
}

// Directory is the slice of the registry the resolver needs
type Directory interface {
	List(ctx context.Context) ([]Tenant, error)
	Acquire(ctx context.Context, t Tenant) (Handle, error)
}

// DeviceLookup finds an active device by serial within one tenant
type DeviceLookup func(ctx context.Context, h Handle, serial string) (*store.BiometricDevice, error)

func defaultDeviceLookup(ctx context.Context, h Handle, serial string) (*store.BiometricDevice, error) {
	return store.NewRepository(h.Pool).FindActiveDeviceBySerial(ctx, serial)
}

// Resolver finds which tenant(s) own a given device serial by scanning
// every tenant database in turn. Device serials are globally unique in
// practice, but the scan reports every owner so the writer can record a
// shared serial in each tenant that registered it.
type Resolver struct {
	directory Directory
	lookup    DeviceLookup
	logger    *zap.Logger
}

// NewResolver creates a new cross-tenant device resolver
func NewResolver(directory Directory, logger *zap.Logger) *Resolver {
	return &Resolver{directory: directory, lookup: defaultDeviceLookup, logger: logger}
}

// NewResolverWithLookup creates a resolver with a custom device lookup
func NewResolverWithLookup(directory Directory, lookup DeviceLookup, logger *zap.Logger) *Resolver {
	return &Resolver{directory: directory, lookup: lookup, logger: logger}
}

// ResolveAll scans all tenants for an active device with the given
// serial. The scan is sequential and error-isolated: a tenant whose
// database is unreachable is logged and skipped, never fatal. An empty
// result means no tenant owns the serial.
func (r *Resolver) ResolveAll(ctx context.Context, serial string) []Match {
	tenants, err := r.directory.List(ctx)
	if err != nil {
		r.logger.Error("failed to list tenants for device scan",
			zap.String("device_serial", serial),
			zap.Error(err),
		)
		return nil
	}

	var matches []Match
	for _, t := range tenants {
		handle, err := r.directory.Acquire(ctx, t)
		if err != nil {
			r.logger.Warn("skipping unreachable tenant during device scan",
				zap.String("tenant", t.Code),
				zap.String("device_serial", serial),
				zap.Error(err),
			)
			continue
		}

		device, err := r.lookup(ctx, handle, serial)
		if err != nil {
			r.logger.Warn("device query failed for tenant, skipping",
				zap.String("tenant", t.Code),
				zap.String("device_serial", serial),
				zap.Error(err),
			)
			continue
		}
		if device == nil {
			continue
		}

		matches = append(matches, Match{Handle: handle, Device: device})
	}

	return matches
}

// ResolveFirst returns the first tenant owning the serial, or ok=false
// when no tenant does. It shares the all-matches scan so that both call
// paths apply one matching policy.
func (r *Resolver) ResolveFirst(ctx context.Context, serial string) (Match, bool) {
	matches := r.ResolveAll(ctx, serial)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}
