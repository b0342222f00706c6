package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storefront/internal/identity"
	"github.com/roach88/storefront/internal/localstore"
	"github.com/roach88/storefront/internal/notify"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeSignOuter counts sign-outs and snapshots the notices shown before each.
type fakeSignOuter struct {
	mu      sync.Mutex
	calls   int
	notices *notify.Recorder
	seen    []int
	err     error
}

func (f *fakeSignOuter) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.seen = append(f.seen, len(f.notices.Notices()))
	return f.err
}

func (f *fakeSignOuter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	monitor *Monitor
	clock   *clock.Mock
	stamp   *localstore.Value[time.Time]
	signOut *fakeSignOuter
	notices *notify.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(t0)

	notices := &notify.Recorder{}
	signOut := &fakeSignOuter{notices: notices}
	stamp := localstore.NewValue[time.Time](localstore.NewMemory(), DefaultStampKey, nil)
	m := New(stamp, signOut, notices, WithClock(mock))
	t.Cleanup(func() {
		m.Close()
		m.Drain()
	})
	return &fixture{monitor: m, clock: mock, stamp: stamp, signOut: signOut, notices: notices}
}

func signedIn(session string) identity.Change {
	return identity.Change{
		Kind:      identity.SignedIn,
		SessionID: session,
		Identity:  identity.Identity{UserID: "u1", BackendReachable: true},
	}
}

func restored(session string) identity.Change {
	c := signedIn(session)
	c.Kind = identity.SessionRestored
	return c
}

func signedOut() identity.Change {
	return identity.Change{
		Kind:     identity.SignedOut,
		Identity: identity.Identity{BackendReachable: true},
		Previous: identity.Identity{UserID: "u1", BackendReachable: true},
	}
}

// advanceUntilSignOut keeps moving the mock clock by one interval until the
// ticker goroutine has forced n sign-outs.
func (f *fixture) advanceUntilSignOut(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		if f.signOut.Calls() >= n {
			return true
		}
		f.clock.Add(DefaultInterval)
		return false
	}, 5*time.Second, 5*time.Millisecond)
}

func TestInteractionQualifies(t *testing.T) {
	for _, i := range Interactions {
		assert.True(t, i.Qualifies(), i)
	}
	assert.False(t, Interaction("mousemove").Qualifies())
	assert.False(t, Interaction("").Qualifies())
}

func TestSignInRecordsActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.monitor.OnIdentity(ctx, signedIn("s1"))

	assert.True(t, f.monitor.Active())
	last, ok := f.monitor.LastActivity()
	require.True(t, ok)
	assert.True(t, last.Equal(t0))

	stored, ok := f.stamp.Load(ctx)
	require.True(t, ok)
	assert.True(t, stored.Equal(t0))
}

func TestObserveOutsideSessionIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.False(t, f.monitor.Observe(ctx, Click))
	_, ok := f.stamp.Load(ctx)
	assert.False(t, ok)

	f.monitor.OnIdentity(ctx, signedIn("s1"))
	assert.False(t, f.monitor.Observe(ctx, Interaction("mousemove")))
	assert.True(t, f.monitor.Observe(ctx, Scroll))
}

func TestObserveAdvancesTimestamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.monitor.OnIdentity(ctx, signedIn("s1"))

	f.clock.Add(2 * time.Hour)
	require.True(t, f.monitor.Observe(ctx, KeyDown))

	last, _ := f.monitor.LastActivity()
	assert.True(t, last.Equal(t0.Add(2*time.Hour)))
}

func TestTimestampNeverDecreases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	future := t0.Add(time.Hour)
	f.stamp.Save(ctx, future)

	f.monitor.OnIdentity(ctx, restored("s1"))
	require.True(t, f.monitor.Observe(ctx, TouchStart))

	last, _ := f.monitor.LastActivity()
	assert.True(t, last.Equal(future))
	stored, _ := f.stamp.Load(ctx)
	assert.True(t, stored.Equal(future))
}

func TestInactiveSessionIsForciblyEnded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.monitor.OnIdentity(ctx, signedIn("s1"))

	f.clock.Add(73 * time.Hour)
	f.advanceUntilSignOut(t, 1)
	f.monitor.Drain()

	assert.Equal(t, []notify.Notice{{Severity: notify.Info, Message: MsgExpired}}, f.notices.Notices())
	assert.Equal(t, []int{1}, f.signOut.seen, "notice shown before sign-out")
}

func TestExpiryHappensOncePerSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.monitor.OnIdentity(ctx, signedIn("s1"))

	f.clock.Add(73 * time.Hour)
	f.advanceUntilSignOut(t, 1)

	for i := 0; i < 5; i++ {
		f.clock.Add(DefaultInterval)
	}
	assert.False(t, f.monitor.Check(ctx))
	assert.False(t, f.monitor.Observe(ctx, Click), "no activity recorded after expiry")
	f.monitor.Drain()
	assert.Equal(t, 1, f.signOut.Calls())
}

func TestActivityKeepsSessionAlive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.monitor.OnIdentity(ctx, signedIn("s1"))

	for i := 0; i < 10; i++ {
		f.clock.Add(10 * time.Hour)
		f.monitor.Observe(ctx, PointerDown)
	}

	assert.False(t, f.monitor.Check(ctx))
	assert.Zero(t, f.signOut.Calls())
	assert.Empty(t, f.notices.Notices())
}

func TestRestoredStaleSessionExpiresImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale := t0.Add(-73 * time.Hour)
	f.stamp.Save(ctx, stale)

	f.monitor.OnIdentity(ctx, restored("s1"))
	f.monitor.Drain()

	assert.Equal(t, 1, f.signOut.Calls())
	assert.Equal(t, []string{MsgExpired}, f.notices.Messages())
	stored, _ := f.stamp.Load(ctx)
	assert.True(t, stored.Equal(stale), "expired session does not record activity")
}

func TestRestoredFreshSessionRecordsActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stamp.Save(ctx, t0.Add(-71*time.Hour))

	f.monitor.OnIdentity(ctx, restored("s1"))

	assert.Zero(t, f.signOut.Calls())
	last, _ := f.monitor.LastActivity()
	assert.True(t, last.Equal(t0))
}

func TestSignOutClearsTimestampAndStopsTicker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.monitor.OnIdentity(ctx, signedIn("s1"))

	f.monitor.OnIdentity(ctx, signedOut())

	assert.False(t, f.monitor.Active())
	_, ok := f.monitor.LastActivity()
	assert.False(t, ok)
	_, ok = f.stamp.Load(ctx)
	assert.False(t, ok)

	f.clock.Add(100 * time.Hour)
	f.monitor.Drain()
	assert.Zero(t, f.signOut.Calls())
}

func TestAnonymousStartDoesNotTrack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.monitor.OnIdentity(ctx, identity.Change{Kind: identity.Initial, Identity: identity.Identity{BackendReachable: true}})
	assert.False(t, f.monitor.Active())
	assert.False(t, f.monitor.Observe(ctx, Click))
}

func TestNewSessionAfterExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.monitor.OnIdentity(ctx, signedIn("s1"))
	f.clock.Add(73 * time.Hour)
	f.advanceUntilSignOut(t, 1)
	f.monitor.Drain()

	f.monitor.OnIdentity(ctx, signedOut())
	f.monitor.OnIdentity(ctx, signedIn("s2"))
	assert.True(t, f.monitor.Active())

	f.clock.Add(73 * time.Hour)
	f.advanceUntilSignOut(t, 2)
	f.monitor.Drain()
	assert.Equal(t, 2, f.signOut.Calls())
}

func TestUserUpdateKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.monitor.OnIdentity(ctx, signedIn("s1"))

	f.monitor.OnIdentity(ctx, identity.Change{
		Kind:      identity.UserUpdated,
		SessionID: "s1",
		Identity:  identity.Identity{UserID: "u2", BackendReachable: true},
	})
	assert.True(t, f.monitor.Active())
}

func TestSignOutFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	f.signOut.err = errors.New("network down")
	ctx := context.Background()
	f.stamp.Save(ctx, t0.Add(-100*time.Hour))

	assert.NotPanics(t, func() {
		f.monitor.OnIdentity(ctx, restored("s1"))
		f.monitor.Drain()
	})
	assert.Equal(t, 1, f.signOut.Calls())
}

func TestTickOfReplacedSessionIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.monitor.OnIdentity(ctx, signedIn("s1"))
	f.monitor.OnIdentity(ctx, signedIn("s2"))

	f.monitor.mu.Lock()
	f.monitor.last = t0.Add(-73 * time.Hour)
	f.monitor.mu.Unlock()

	assert.False(t, f.monitor.check(ctx, "s1"), "tick from s1 must not expire s2")
	f.monitor.Drain()
	assert.Zero(t, f.signOut.Calls())
	assert.Empty(t, f.notices.Messages())

	assert.True(t, f.monitor.check(ctx, "s2"))
	f.monitor.Drain()
	assert.Equal(t, 1, f.signOut.Calls())
	assert.Equal(t, []string{MsgExpired}, f.notices.Messages())
}
