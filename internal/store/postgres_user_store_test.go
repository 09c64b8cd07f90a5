package store

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestWatchlistReferenceError(t *testing.T) {
	movieGone := &pq.Error{Code: "23503", Constraint: "fk_watchlist_movie"}
	require.ErrorIs(t, watchlistReferenceError(movieGone), ErrMovieNotFound)

	userGone := &pq.Error{Code: "23503", Constraint: "fk_watchlist_user"}
	require.ErrorIs(t, watchlistReferenceError(userGone), ErrUserNotFound)
}
