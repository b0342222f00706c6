package harness

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/roach88/storefront/internal/activity"
	"github.com/roach88/storefront/internal/app"
	"github.com/roach88/storefront/internal/cart"
	"github.com/roach88/storefront/internal/config"
	"github.com/roach88/storefront/internal/identity"
	"github.com/roach88/storefront/internal/notify"
	"github.com/roach88/storefront/internal/remote"
	"github.com/roach88/storefront/internal/remote/sqlstore"
	"github.com/roach88/storefront/internal/shop"
	"github.com/roach88/storefront/internal/store"
	"github.com/roach88/storefront/internal/testutil"
)

// SettleTimeout bounds how long a step may take to settle.
const SettleTimeout = 10 * time.Second

// checkInterval keeps the monitor's own ticker from firing; clock.advance
// runs the periodic check explicitly so its notice lands in that step.
const checkInterval = 100 * 365 * 24 * time.Hour

// epoch is the remote association timestamp of the first write.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness runs one scenario against a fully wired app. Device and remote
// storage are in-memory SQLite databases that outlive app restarts.
type Harness struct {
	device  *store.Store
	backend *store.Store
	records *testutil.Records

	// direct reads the backend without failure injection or caching.
	direct *remote.Favorites

	clock   *clock.Mock
	stamps  *testutil.StepClock
	ids     *testutil.SequenceGenerator
	sink    *notify.Recorder
	cfg     config.Config
	logger  *slog.Logger
	catalog map[string]shop.Product

	app  *app.App
	feed *identity.LocalFeed
	seen int
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against fresh databases, a mock clock and sequential
// session ids, so the same scenario always produces the same trace.
// Execution errors (not assertion failures) are returned as err.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	h, err := newHarness(ctx, scenario)
	if err != nil {
		return nil, err
	}
	defer h.close()

	result := NewResult()

	if err := h.start(ctx, false); err != nil {
		return nil, fmt.Errorf("failed to start app: %w", err)
	}
	if err := h.settle(ctx); err != nil {
		return nil, fmt.Errorf("app start did not settle: %w", err)
	}
	result.AddEvent(h.event(0, ActStart, nil))

	for i, step := range scenario.Steps {
		stepErr, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		if err := h.settle(ctx); err != nil {
			return nil, fmt.Errorf("step %d (%s) did not settle: %w", i+1, step.Action, err)
		}
		result.AddEvent(h.event(i+1, step.Action, stepErr))

		h.logger.Debug("step completed", "seq", i+1, "action", step.Action)
	}

	result.Final = h.state()

	actx := &AssertionContext{
		Ctx:    ctx,
		Device: h.device,
		Remote: h.direct,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(ctx context.Context, scenario *Scenario) (*Harness, error) {
	cfg := config.Defaults()
	cfg.ActivityCheckInterval = checkInterval
	cfg.WriteRetries = 2
	cfg.WriteBackoffMin = time.Millisecond
	cfg.WriteBackoffMax = 2 * time.Millisecond

	device, err := store.Open(":memory:", store.WithQuota(cfg.LocalQuotaBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create device store: %w", err)
	}
	backend, err := store.Open(":memory:")
	if err != nil {
		device.Close()
		return nil, fmt.Errorf("failed to create backend store: %w", err)
	}

	h := &Harness{
		device:  device,
		backend: backend,
		records: testutil.NewRecords(sqlstore.New(backend)),
		direct:  remote.NewFavorites(sqlstore.New(backend), remote.WithProductCacheTTL(0)),
		clock:   clock.NewMock(),
		stamps:  testutil.NewStepClock(epoch, time.Second),
		ids:     testutil.NewSequenceGenerator("session"),
		sink:    &notify.Recorder{},
		cfg:     cfg,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		catalog: make(map[string]shop.Product, len(scenario.Products)),
	}

	for _, p := range scenario.Products {
		if err := h.direct.PutProduct(ctx, p); err != nil {
			h.close()
			return nil, fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
		h.catalog[p.ID] = p
	}
	return h, nil
}

// start builds a new app over the surviving stores. An unreachable start
// fails the initial identity check, as when the auth provider is down.
func (h *Harness) start(ctx context.Context, unreachable bool) error {
	h.feed = identity.NewLocalFeed(h.device,
		identity.WithSessionKey(h.cfg.SessionKey),
		identity.WithIDGenerator(h.ids),
		identity.WithFeedLogger(h.logger),
	)
	var feed app.Feed = h.feed
	if unreachable {
		feed = testutil.UnreachableFeed{LocalFeed: h.feed}
	}

	h.app = app.New(app.Deps{
		Device:  h.device,
		Records: h.records,
		Feed:    feed,
		Sink:    h.sink,
		Clock:   h.clock,
		Now:     h.stamps.Now,
		Logger:  h.logger,
	}, h.cfg)
	return h.app.Start(ctx)
}

func (h *Harness) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, SettleTimeout)
	defer cancel()
	return h.app.Settle(ctx)
}

func (h *Harness) close() {
	if h.app != nil {
		if err := h.app.Close(); err != nil {
			h.logger.Warn("app close failed", "error", err)
		}
	}
	h.device.Close()
	h.backend.Close()
}

// execute runs one step. stepErr is an error reported by the action itself
// and becomes part of the trace; err aborts the scenario.
func (h *Harness) execute(ctx context.Context, step Step) (stepErr, err error) {
	args := step.Args
	a := h.app

	switch step.Action {
	case ActCartAdd:
		p, err := h.product(args)
		if err != nil {
			return nil, err
		}
		qty, _ := argIntOr(args, "quantity", 1)
		size, err := argStringOr(args, "size", "")
		if err != nil {
			return nil, err
		}
		color, err := argStringOr(args, "color", "")
		if err != nil {
			return nil, err
		}
		a.Cart.Add(ctx, p, qty, cart.WithSize(size), cart.WithColor(color))

	case ActCartRemove:
		p, err := h.product(args)
		if err != nil {
			return nil, err
		}
		a.Cart.Remove(ctx, p.ID)

	case ActCartQuantity:
		p, err := h.product(args)
		if err != nil {
			return nil, err
		}
		qty, err := argInt(args, "quantity")
		if err != nil {
			return nil, err
		}
		a.Cart.UpdateQuantity(ctx, p.ID, qty)

	case ActCartClear:
		a.Cart.Clear(ctx)

	case ActFavoriteToggle:
		p, err := h.product(args)
		if err != nil {
			return nil, err
		}
		a.Favorites.Toggle(ctx, p)

	case ActSignIn:
		user, err := argString(args, "user")
		if err != nil {
			return nil, err
		}
		_, stepErr = a.Feed.SignIn(ctx, user)

	case ActSignOut:
		stepErr = a.Feed.SignOut(ctx)

	case ActUpdateUser:
		user, err := argString(args, "user")
		if err != nil {
			return nil, err
		}
		stepErr = h.feed.UpdateUser(ctx, user)

	case ActObserve:
		kind, err := argString(args, "kind")
		if err != nil {
			return nil, err
		}
		a.Monitor.Observe(ctx, activity.Interaction(kind))

	case ActCheck:
		a.Monitor.Check(ctx)

	case ActClockAdvance:
		d, err := argDuration(args, "duration")
		if err != nil {
			return nil, err
		}
		h.clock.Add(d)
		a.Monitor.Check(ctx)

	case ActBackendFail:
		op, err := argString(args, "op")
		if err != nil {
			return nil, err
		}
		times, _ := argIntOr(args, "times", 0)
		ops := []string{op}
		if op == OpAll {
			ops = []string{testutil.OpSelectByIDs, testutil.OpSelectWhere, testutil.OpInsert, testutil.OpDeleteWhere}
		}
		for _, o := range ops {
			if times == 0 {
				h.records.FailAlways(o)
			} else {
				h.records.FailNext(o, times)
			}
		}

	case ActBackendHeal:
		h.records.Heal()

	case ActRestart:
		unreachable, err := argBoolOr(args, "unreachable", false)
		if err != nil {
			return nil, err
		}
		if err := a.Close(); err != nil {
			return nil, fmt.Errorf("close before restart: %w", err)
		}
		h.app = nil
		if err := h.start(ctx, unreachable); err != nil {
			return nil, fmt.Errorf("restart: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown action %q", step.Action)
	}
	return stepErr, nil
}

func (h *Harness) product(args map[string]any) (shop.Product, error) {
	id, err := argString(args, "product")
	if err != nil {
		return shop.Product{}, err
	}
	p, ok := h.catalog[id]
	if !ok {
		return shop.Product{}, fmt.Errorf("unknown product %q", id)
	}
	return p, nil
}

// event snapshots the app after a step. Notices emitted since the previous
// event are attributed to this one, sorted because background writes race
// the foreground notice of the same step.
func (h *Harness) event(seq int, action string, stepErr error) TraceEvent {
	all := h.sink.Notices()
	fresh := slices.Clone(all[h.seen:])
	h.seen = len(all)
	slices.SortStableFunc(fresh, func(a, b notify.Notice) int {
		return cmp.Or(cmp.Compare(a.Severity, b.Severity), cmp.Compare(a.Message, b.Message))
	})

	e := TraceEvent{Seq: seq, Action: action, Notices: fresh, State: h.state()}
	if len(fresh) == 0 {
		e.Notices = nil
	}
	if stepErr != nil {
		e.Error = stepErr.Error()
	}
	return e
}

func (h *Harness) state() State {
	a := h.app
	favs := a.Favorites.Items()
	ids := make([]string, 0, len(favs))
	for _, p := range favs {
		ids = append(ids, p.ID)
	}
	return State{
		User:      a.Watcher.Identity().UserID,
		Cart:      a.Cart.Totals(),
		Lines:     a.Cart.Items(),
		Favorites: ids,
		Source:    a.Favorites.State().String(),
	}
}
