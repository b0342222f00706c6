package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storefrontDir runs commands against device and backend databases in dir.
type storefrontDir string

func newStorefront(t *testing.T) storefrontDir {
	t.Helper()
	t.Setenv("STOREFRONT_BACKEND", "sqlite")
	t.Setenv("STOREFRONT_AUTH", "local")
	return storefrontDir(t.TempDir())
}

func (d storefrontDir) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{
		"--local-db", filepath.Join(string(d), "device.db"),
		"--backend-db", filepath.Join(string(d), "backend.db"),
	}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func (d storefrontDir) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := d.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func (d storefrontDir) state(t *testing.T) StateView {
	t.Helper()
	out := d.mustRun(t, "--format", "json", "cart", "show")
	var resp struct {
		Status string    `json:"status"`
		Data   StateView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func (d storefrontDir) seed(t *testing.T) {
	t.Helper()
	d.mustRun(t, "product", "add", "p1", "--name", "Shirt", "--price", "1999")
	d.mustRun(t, "product", "add", "p2", "--name", "Mug", "--price", "1250")
}

func TestProductAddAndShow(t *testing.T) {
	d := newStorefront(t)

	out := d.mustRun(t, "product", "add", "p1", "--name", "Shirt", "--price", "123456")
	assert.Contains(t, out, "Saved p1  Shirt  1,234.56")

	out = d.mustRun(t, "product", "show", "p1")
	assert.Contains(t, out, "p1  Shirt  1,234.56")

	_, err := d.run(t, "product", "add", "p1", "--name", "Shirt", "--price", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product already exists: p1")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestProductAddValidation(t *testing.T) {
	d := newStorefront(t)

	_, err := d.run(t, "product", "add", "p1", "--price", "100")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = d.run(t, "product", "add", "p1", "--name", "Shirt", "--price", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCartCommandsPersistBetweenRuns(t *testing.T) {
	d := newStorefront(t)
	d.seed(t)

	out := d.mustRun(t, "cart", "add", "p1", "--quantity", "2", "--size", "M")
	assert.Contains(t, out, "✓ Added to cart")
	assert.Contains(t, out, "Cart: 2 item(s), subtotal 39.98")
	assert.Contains(t, out, "2 × Shirt [M] @ 19.99 = 39.98")

	d.mustRun(t, "cart", "add", "p1", "--size", "M")
	d.mustRun(t, "cart", "add", "p2", "-q", "0")

	v := d.state(t)
	require.Len(t, v.Cart, 2)
	assert.Equal(t, 3, v.Cart[0].Quantity)
	assert.Equal(t, 1, v.Cart[1].Quantity)
	assert.Equal(t, 4, v.Totals.Items)
	assert.Equal(t, int64(3*1999+1250), v.Totals.Subtotal)

	out = d.mustRun(t, "cart", "qty", "p2", "3")
	assert.Contains(t, out, "✓ Cart updated")

	out = d.mustRun(t, "cart", "remove", "p1")
	assert.Contains(t, out, "✓ Removed from cart")
	assert.Contains(t, out, "Cart: 3 item(s), subtotal 37.50")

	out = d.mustRun(t, "cart", "clear")
	assert.Contains(t, out, "✓ Cart cleared")
	assert.Contains(t, out, "Cart is empty")
	assert.Empty(t, d.state(t).Cart)
}

func TestCartCommandErrors(t *testing.T) {
	d := newStorefront(t)
	d.seed(t)

	_, err := d.run(t, "cart", "add", "p9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product not found: p9")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = d.run(t, "cart", "remove", "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the cart")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = d.run(t, "cart", "qty", "p1", "many")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFavoritesFollowSignIn(t *testing.T) {
	d := newStorefront(t)
	d.seed(t)

	out := d.mustRun(t, "favorites", "toggle", "p1")
	assert.Contains(t, out, "✓ Added to favorites")
	assert.Contains(t, out, "Favorites (local):")
	assert.Contains(t, out, "p1  Shirt  19.99")

	out = d.mustRun(t, "auth", "signin", "u1")
	assert.Contains(t, out, "Signed in as u1")
	assert.Contains(t, out, "Session ")

	out = d.mustRun(t, "favorites", "list")
	assert.Contains(t, out, "No favorites (remote)")

	d.mustRun(t, "favorites", "toggle", "p2")
	v := d.state(t)
	assert.Equal(t, "u1", v.User)
	assert.Equal(t, "remote", v.FavoritesSource)
	require.Len(t, v.Favorites, 1)
	assert.Equal(t, "p2", v.Favorites[0].ID)
	assert.NotNil(t, v.LastActivity)

	out = d.mustRun(t, "favorites", "toggle", "p2")
	assert.Contains(t, out, "✓ Removed from favorites")
	assert.Contains(t, out, "No favorites (remote)")

	out = d.mustRun(t, "auth", "signout")
	assert.Contains(t, out, "Not signed in")

	v = d.state(t)
	assert.Equal(t, "", v.User)
	assert.Equal(t, "local", v.FavoritesSource)
	require.Len(t, v.Favorites, 1)
	assert.Equal(t, "p1", v.Favorites[0].ID)
	assert.Nil(t, v.LastActivity)
}

func TestActivityCommands(t *testing.T) {
	d := newStorefront(t)

	out := d.mustRun(t, "activity", "touch")
	assert.Contains(t, out, "No active session; activity ignored")

	out = d.mustRun(t, "activity", "check")
	assert.Contains(t, out, "No active session")

	d.mustRun(t, "auth", "signin", "u1")

	out = d.mustRun(t, "activity", "touch", "--kind", "keydown")
	assert.Contains(t, out, "Activity recorded")
	assert.Contains(t, out, "Last activity: ")

	out = d.mustRun(t, "activity", "check")
	assert.Contains(t, out, "Session active")

	_, err := d.run(t, "activity", "touch", "--kind", "mousemove")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAuthStatus(t *testing.T) {
	d := newStorefront(t)

	out := d.mustRun(t, "auth", "status")
	assert.Contains(t, out, "Not signed in")

	d.mustRun(t, "auth", "signin", "u1")
	out = d.mustRun(t, "auth", "status")
	assert.Contains(t, out, "Signed in as u1")
}

func TestInvalidConfiguration(t *testing.T) {
	d := newStorefront(t)
	t.Setenv("STOREFRONT_BACKEND", "postgres")

	_, err := d.run(t, "cart", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
