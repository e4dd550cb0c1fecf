package order

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/mercado-ecom/internal/identity"
)

type fakeDirectory struct {
	users map[string]identity.User
	err   error
}

func (f fakeDirectory) GetUser(_ context.Context, id string) (identity.User, error) {
	if f.err != nil {
		return identity.User{}, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return identity.User{}, identity.ErrNotFound
	}
	return u, nil
}

func (f fakeDirectory) Authenticate(context.Context, string, string) (identity.Session, error) {
	return identity.Session{}, identity.ErrInvalidCredentials
}

func TestExt_ResolveBuyer(t *testing.T) {
	ext := &Ext{Users: fakeDirectory{users: map[string]identity.User{
		"u1": {ID: "u1", Email: "buyer@example.com"},
	}}}

	b, err := ext.ResolveBuyer(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Buyer{ID: "u1", Email: "buyer@example.com"}, b)

	_, err = ext.ResolveBuyer(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrAuthenticationRequired)

	down := errors.New("connection refused")
	_, err = (&Ext{Users: fakeDirectory{err: down}}).ResolveBuyer(context.Background(), "u1")
	assert.ErrorIs(t, err, down)
	assert.NoError(t, (&Ext{}).Close())
}
