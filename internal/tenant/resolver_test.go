package tenant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/workpulse-hris/attendance-worker/internal/store"
	"go.uber.org/zap"
)

// fakeDirectory simulates a tenant directory without opening any pools
type fakeDirectory struct {
	tenants     []Tenant
	unreachable map[string]bool
}

func (f *fakeDirectory) List(_ context.Context) ([]Tenant, error) {
	return f.tenants, nil
}

func (f *fakeDirectory) Acquire(_ context.Context, t Tenant) (Handle, error) {
	if f.unreachable[t.Code] {
		return Handle{}, errors.New("connection refused")
	}
	return Handle{Tenant: t}, nil
}

func simulatedTenants(n int) []Tenant {
	tenants := make([]Tenant, 0, n)
	for i := 0; i < n; i++ {
		tenants = append(tenants, Tenant{
			ID:   uuid.New(),
			Code: fmt.Sprintf("tenant-%d", i),
		})
	}
	return tenants
}

// ownerLookup owns the serial in exactly the named tenants
func ownerLookup(serial string, owners map[string]bool, failing map[string]bool) DeviceLookup {
	return func(_ context.Context, h Handle, s string) (*store.BiometricDevice, error) {
		if failing[h.Tenant.Code] {
			return nil, errors.New("query timeout")
		}
		if s == serial && owners[h.Tenant.Code] {
			return &store.BiometricDevice{ID: uuid.New(), Serial: s, Active: true}, nil
		}
		return nil, nil
	}
}

func TestResolver_SingleOwnerAmongFive(t *testing.T) {
	dir := &fakeDirectory{tenants: simulatedTenants(5)}
	lookup := ownerLookup("52084890", map[string]bool{"tenant-3": true}, nil)
	r := NewResolverWithLookup(dir, lookup, zap.NewNop())

	matches := r.ResolveAll(context.Background(), "52084890")
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(matches))
	}
	if matches[0].Handle.Tenant.Code != "tenant-3" {
		t.Errorf("expected tenant-3, got %s", matches[0].Handle.Tenant.Code)
	}

	m, ok := r.ResolveFirst(context.Background(), "52084890")
	if !ok {
		t.Fatal("expected ResolveFirst to find the owner")
	}
	if m.Handle.Tenant.Code != "tenant-3" {
		t.Errorf("expected tenant-3, got %s", m.Handle.Tenant.Code)
	}
}

func TestResolver_NoOwner(t *testing.T) {
	dir := &fakeDirectory{tenants: simulatedTenants(5)}
	lookup := ownerLookup("52084890", nil, nil)
	r := NewResolverWithLookup(dir, lookup, zap.NewNop())

	if matches := r.ResolveAll(context.Background(), "52084890"); len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
	if _, ok := r.ResolveFirst(context.Background(), "52084890"); ok {
		t.Error("expected ResolveFirst to report no owner")
	}
}

func TestResolver_UnreachableTenantSkipped(t *testing.T) {
	dir := &fakeDirectory{
		tenants:     simulatedTenants(5),
		unreachable: map[string]bool{"tenant-1": true},
	}
	lookup := ownerLookup("52084890", map[string]bool{"tenant-4": true}, map[string]bool{"tenant-2": true})
	r := NewResolverWithLookup(dir, lookup, zap.NewNop())

	matches := r.ResolveAll(context.Background(), "52084890")
	if len(matches) != 1 {
		t.Fatalf("bad tenants must not abort the scan; expected one match, got %d", len(matches))
	}
	if matches[0].Handle.Tenant.Code != "tenant-4" {
		t.Errorf("expected tenant-4, got %s", matches[0].Handle.Tenant.Code)
	}
}

func TestResolver_SharedSerialMatchesAllOwners(t *testing.T) {
	dir := &fakeDirectory{tenants: simulatedTenants(5)}
	lookup := ownerLookup("52084890", map[string]bool{"tenant-0": true, "tenant-4": true}, nil)
	r := NewResolverWithLookup(dir, lookup, zap.NewNop())

	matches := r.ResolveAll(context.Background(), "52084890")
	if len(matches) != 2 {
		t.Fatalf("expected both owners, got %d", len(matches))
	}

	// First match follows directory order, so ResolveFirst is stable
	m, ok := r.ResolveFirst(context.Background(), "52084890")
	if !ok || m.Handle.Tenant.Code != "tenant-0" {
		t.Errorf("expected deterministic first owner tenant-0, got %+v", m.Handle.Tenant.Code)
	}
}
