package syncerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := Conflict("favorites.add", "u1__p1")
	assert.Equal(t, "favorites.add: CONFLICT (key=u1__p1)", err.Error())

	err = Backend("favorites.fetch", errors.New("dial tcp: refused"))
	assert.Equal(t, "favorites.fetch: BACKEND: dial tcp: refused", err.Error())
}

func TestIsHelpersSeeWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("toggle: %w", Conflict("favorites.add", "k"))
	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsBackend(wrapped))

	assert.True(t, IsQuota(fmt.Errorf("save: %w", Quota("cart", 10, 5))))
	assert.True(t, IsStorageParse(StorageParse("cart", errors.New("bad json"))))
	assert.False(t, IsBackend(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("quota cause")
	err := Backend("op", cause)
	assert.ErrorIs(t, err, cause)
}
