package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/storefront/internal/localstore"
	"github.com/roach88/storefront/internal/remote"
)

// AssertionContext provides what assertions need beyond the result.
type AssertionContext struct {
	Ctx context.Context

	// Device is the device storage, for device assertions.
	Device localstore.Storage

	// Remote reads the backend directly, for remote_favorites assertions.
	Remote *remote.Favorites
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s", event.Seq, event.Action)
		if event.Error != "" {
			fmt.Fprintf(&buf, " error=%q", event.Error)
		}
		for _, n := range event.Notices {
			fmt.Fprintf(&buf, " %s=%q", n.Severity, n.Message)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertCart:
		return assertCart(result, a)
	case AssertCartLine:
		return assertCartLine(result, a)
	case AssertFavorites:
		return assertFavorites(result, a)
	case AssertRemoteFavorites:
		return assertRemoteFavorites(result, a, actx)
	case AssertIdentity:
		return assertIdentity(result, a)
	case AssertNotice:
		return assertNotice(result, a)
	case AssertDevice:
		return assertDevice(result, a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func fail(result *Result, typ, expected, actual string) error {
	return &AssertionError{Type: typ, Expected: expected, Actual: actual, Trace: result.Trace}
}

func assertCart(result *Result, a Assertion) error {
	totals := result.Final.Cart
	if a.Items != nil && *a.Items != totals.Items {
		return fail(result, AssertCart, fmt.Sprintf("%d items", *a.Items), fmt.Sprintf("%d items", totals.Items))
	}
	if a.Subtotal != nil && *a.Subtotal != totals.Subtotal {
		return fail(result, AssertCart, fmt.Sprintf("subtotal %d", *a.Subtotal), fmt.Sprintf("subtotal %d", totals.Subtotal))
	}
	return nil
}

// assertCartLine checks the line for product, size and color. A missing
// quantity only requires the line to exist; quantity 0 requires it not to.
func assertCartLine(result *Result, a Assertion) error {
	for _, li := range result.Final.Lines {
		if li.Product.ID != a.Product || li.Size != a.Size || li.Color != a.Color {
			continue
		}
		if a.Quantity != nil && *a.Quantity != li.Quantity {
			return fail(result, AssertCartLine,
				fmt.Sprintf("%s quantity %d", a.Product, *a.Quantity),
				fmt.Sprintf("%s quantity %d", a.Product, li.Quantity))
		}
		return nil
	}
	if a.Quantity != nil && *a.Quantity == 0 {
		return nil
	}
	return fail(result, AssertCartLine,
		fmt.Sprintf("line for %s (size %q, color %q)", a.Product, a.Size, a.Color),
		"no such line")
}

func assertFavorites(result *Result, a Assertion) error {
	final := result.Final
	if a.IDs != nil && !slices.Equal(a.IDs, final.Favorites) {
		return fail(result, AssertFavorites, fmt.Sprintf("favorites %v", a.IDs), fmt.Sprintf("favorites %v", final.Favorites))
	}
	if a.Source != "" && a.Source != final.Source {
		return fail(result, AssertFavorites, fmt.Sprintf("source %s", a.Source), fmt.Sprintf("source %s", final.Source))
	}
	return nil
}

func assertRemoteFavorites(result *Result, a Assertion, actx *AssertionContext) error {
	if actx == nil || actx.Remote == nil {
		return fmt.Errorf("remote_favorites needs a backend")
	}
	products, err := actx.Remote.FetchAll(actx.Ctx, a.User)
	if err != nil {
		return fmt.Errorf("remote_favorites: %w", err)
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	want := a.IDs
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(want, ids) {
		return fail(result, AssertRemoteFavorites,
			fmt.Sprintf("%s has %v", a.User, want),
			fmt.Sprintf("%s has %v", a.User, ids))
	}
	return nil
}

func assertIdentity(result *Result, a Assertion) error {
	if a.User != result.Final.User {
		return fail(result, AssertIdentity, describeUser(a.User), describeUser(result.Final.User))
	}
	return nil
}

func describeUser(u string) string {
	if u == "" {
		return "anonymous"
	}
	return "user " + u
}

// assertNotice counts notices matching message and severity. Without count
// at least one must match.
func assertNotice(result *Result, a Assertion) error {
	n := 0
	for _, notice := range result.Notices() {
		if a.Message != "" && notice.Message != a.Message {
			continue
		}
		if a.Severity != "" && string(notice.Severity) != a.Severity {
			continue
		}
		n++
	}

	desc := strings.TrimSpace(a.Severity + " " + fmt.Sprintf("%q", a.Message))
	if a.Message == "" {
		desc = a.Severity
	}
	switch {
	case a.Count == nil && n == 0:
		return fail(result, AssertNotice, "notice "+desc, "not found")
	case a.Count != nil && *a.Count != n:
		return fail(result, AssertNotice,
			fmt.Sprintf("notice %s %d times", desc, *a.Count),
			fmt.Sprintf("%d times", n))
	}
	return nil
}

func assertDevice(result *Result, a Assertion, actx *AssertionContext) error {
	if actx == nil || actx.Device == nil {
		return fmt.Errorf("device needs device storage")
	}
	_, ok, err := actx.Device.Get(actx.Ctx, a.Key)
	if err != nil {
		return fmt.Errorf("device: %w", err)
	}
	if ok != *a.Present {
		return fail(result, AssertDevice,
			fmt.Sprintf("key %s present=%t", a.Key, *a.Present),
			fmt.Sprintf("present=%t", ok))
	}
	return nil
}
