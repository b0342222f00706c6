package testutil

import (
	"context"
	"errors"

	"github.com/roach88/storefront/internal/identity"
)

// ErrUnreachable is returned by UnreachableFeed.Current.
var ErrUnreachable = errors.New("auth backend unreachable")

// UnreachableFeed is a LocalFeed whose initial identity check fails, as when
// the auth provider cannot be reached at startup. Later sign-ins still work.
type UnreachableFeed struct {
	*identity.LocalFeed
}

// Current always fails.
func (UnreachableFeed) Current(context.Context) (identity.Session, error) {
	return identity.Session{}, ErrUnreachable
}
