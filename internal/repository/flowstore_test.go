package repository

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paybazaar/retailer-portal/internal/flow"
	"github.com/paybazaar/retailer-portal/internal/models"
)

func setupFlowStore(t *testing.T) (*FlowStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewFlowStore(client, 30*time.Minute), mr
}

func TestFlowStoreRoundTrip(t *testing.T) {
	store, mr := setupFlowStore(t)
	ctx := context.Background()

	o := flow.NewOnboarding()
	o.SetLocation(models.Location{Latitude: 19.07, Longitude: 72.87, Source: "browser"})
	require.NoError(t, o.BeginWalletCheck("9876543210"))
	require.NoError(t, o.ApplyWalletCheck(false))
	require.NoError(t, store.Save(ctx, "dmt", "R1", o))

	assert.True(t, mr.Exists("portal:flow:dmt:R1"))

	got := flow.NewOnboarding()
	found, err := store.Load(ctx, "dmt", "R1", got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, flow.StepAadhaarBiometric, got.Step())
	assert.Equal(t, "9876543210", got.Mobile())
}

func TestFlowStoreMissingAndDelete(t *testing.T) {
	store, _ := setupFlowStore(t)
	ctx := context.Background()

	found, err := store.Load(ctx, "dmt", "nobody", flow.NewOnboarding())
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Save(ctx, "payout", "R1", flow.NewPayDialog()))
	require.NoError(t, store.Delete(ctx, "payout", "R1"))
	found, err = store.Load(ctx, "payout", "R1", flow.NewPayDialog())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFlowStoreExpires(t *testing.T) {
	store, mr := setupFlowStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "dmt", "R1", flow.NewOnboarding()))
	mr.FastForward(31 * time.Minute)

	found, err := store.Load(ctx, "dmt", "R1", flow.NewOnboarding())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFlowStoreKeysAreIsolated(t *testing.T) {
	store, _ := setupFlowStore(t)
	ctx := context.Background()

	a := flow.NewOnboarding()
	a.SetLocation(models.Location{Latitude: 1, Longitude: 1})
	require.NoError(t, a.BeginWalletCheck("9000000001"))
	require.NoError(t, store.Save(ctx, "dmt", "A", a))
	require.NoError(t, store.Save(ctx, "dmt", "B", flow.NewOnboarding()))

	got := flow.NewOnboarding()
	_, err := store.Load(ctx, "dmt", "B", got)
	require.NoError(t, err)
	assert.Empty(t, got.Mobile())
}

func TestFlowStoreRejectsCorruptSnapshot(t *testing.T) {
	store, mr := setupFlowStore(t)
	require.NoError(t, mr.Set("portal:flow:dmt:R1", `{"step":"otp_verify"}`))

	_, err := store.Load(context.Background(), "dmt", "R1", flow.NewOnboarding())
	assert.Error(t, err)
}

func TestMemoryFlowStoreExpires(t *testing.T) {
	store := NewMemoryFlowStore(time.Minute)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "dmt", "R1", flow.NewOnboarding()))
	found, err := store.Load(ctx, "dmt", "R1", flow.NewOnboarding())
	require.NoError(t, err)
	assert.True(t, found)

	now = now.Add(time.Minute)
	found, err = store.Load(ctx, "dmt", "R1", flow.NewOnboarding())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryAudit(t *testing.T) {
	audit := NewMemoryAudit()
	ctx := context.Background()

	for _, action := range []string{"wallet_created", "payout", "wallet_verified"} {
		require.NoError(t, audit.RecordAudit(ctx, &models.AuditEvent{RetailerID: "R1", Action: action, Outcome: models.OutcomeSuccess}))
	}
	require.NoError(t, audit.RecordAudit(ctx, &models.AuditEvent{RetailerID: "R2", Action: "payout"}))

	events, err := audit.ListAudit(ctx, "R1", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "wallet_verified", events[0].Action)
	assert.Equal(t, "payout", events[1].Action)
	assert.Len(t, audit.Events(), 4)
}

func TestFlowStoreClaimIsExclusive(t *testing.T) {
	store, mr := setupFlowStore(t)
	ctx := context.Background()

	release, ok, err := store.Claim(ctx, "payout", "R1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = store.Claim(ctx, "payout", "R1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must wait for the first")

	other, ok, err := store.Claim(ctx, "payout", "R2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "claims are per retailer")
	other()

	release()
	assert.False(t, mr.Exists("portal:flow:payout:R1:lock"))
	again, ok, err := store.Claim(ctx, "payout", "R1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	again()
}

func TestFlowStoreExpiredClaimIsNotReleasedByOldHolder(t *testing.T) {
	store, mr := setupFlowStore(t)
	ctx := context.Background()

	stale, ok, err := store.Claim(ctx, "payout", "R1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	mr.FastForward(2 * time.Second)

	_, ok, err = store.Claim(ctx, "payout", "R1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	stale()
	assert.True(t, mr.Exists("portal:flow:payout:R1:lock"))
}

func TestMemoryFlowStoreClaim(t *testing.T) {
	store := NewMemoryFlowStore(time.Minute)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	release, ok, err := store.Claim(ctx, "dmt", "R1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, _ = store.Claim(ctx, "dmt", "R1", time.Minute)
	assert.False(t, ok)

	release()
	_, ok, _ = store.Claim(ctx, "dmt", "R1", time.Minute)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = store.Claim(ctx, "dmt", "R1", time.Minute)
	assert.True(t, ok, "an expired claim can be retaken")
}
