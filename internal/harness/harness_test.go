package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)
			require.Equal(t, name, scenario.Name, "scenario name must match its file name")
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRunIsDeterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "favorites_follow_sign_in.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalTrace(scenario.Name, first)
	require.NoError(t, err)
	b, err := MarshalTrace(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRunReportsFailedAssertions(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_expectations
description: "Every assertion here is false"
products:
  - { id: p1, name: Shirt, price: 1999 }
steps:
  - action: cart.add
    args: { product: p1, quantity: 2 }
assertions:
  - type: cart
    items: 3
  - type: favorites
    ids: [p1]
  - type: identity
    user: u1
  - type: notice
    message: "Cart cleared"
  - type: device
    key: storefront.cart
    present: false
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "Expected: 3 items")
	assert.Contains(t, result.Errors[0], "Actual: 2 items")
	assert.Contains(t, result.Errors[2], "Expected: user u1")
	assert.Contains(t, result.Errors[2], "Actual: anonymous")
	assert.Contains(t, result.Errors[3], "not found")
	assert.Contains(t, result.Errors[4], "present=true")
}

func TestRunRecordsActionErrors(t *testing.T) {
	scenario := mustParse(t, `
name: update_without_session
description: "Changing the user needs a session"
steps:
  - action: auth.update_user
    args: { user: u2 }
assertions:
  - type: identity
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "no active session", result.Trace[1].Error)
}

func TestRunUpdateUserSwitchesFavorites(t *testing.T) {
	scenario := mustParse(t, `
name: update_user
description: "A user change reloads favorites for the new user"
products:
  - { id: p1, name: Shirt, price: 1999 }
steps:
  - action: auth.sign_in
    args: { user: u1 }
  - action: favorites.toggle
    args: { product: p1 }
  - action: auth.update_user
    args: { user: u2 }
assertions:
  - type: identity
    user: u2
  - type: favorites
    ids: []
    source: remote
  - type: remote_favorites
    user: u1
    ids: [p1]
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRunFailNextRecovers(t *testing.T) {
	scenario := mustParse(t, `
name: transient_insert_failure
description: "A write that fails once is retried"
products:
  - { id: p1, name: Shirt, price: 1999 }
steps:
  - action: auth.sign_in
    args: { user: u1 }
  - action: backend.fail
    args: { op: insert, times: 1 }
  - action: favorites.toggle
    args: { product: p1 }
assertions:
  - type: remote_favorites
    user: u1
    ids: [p1]
  - type: notice
    severity: error
    count: 0
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRunClearRemovesDeviceCart(t *testing.T) {
	scenario := mustParse(t, `
name: clear_cart
description: "Clearing the cart removes it from the device"
products:
  - { id: p1, name: Shirt, price: 1999 }
steps:
  - action: cart.add
    args: { product: p1, color: red }
  - action: cart.clear
assertions:
  - type: cart
    items: 0
    subtotal: 0
  - type: device
    key: storefront.cart
    present: false
  - type: notice
    message: "Cart cleared"
    severity: success
    count: 1
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func mustParse(t *testing.T, doc string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(doc))
	require.NoError(t, err)
	return s
}
