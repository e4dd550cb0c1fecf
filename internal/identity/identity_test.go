package identity

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type fakeDirectory struct{}

func (fakeDirectory) GetUser(_ context.Context, id string) (User, error) {
	if id != "u1" {
		return User{}, ErrNotFound
	}
	return User{ID: "u1", Email: "a@b.c", Role: "admin", SupermarketID: "s1"}, nil
}

func (fakeDirectory) Authenticate(_ context.Context, email, password string) (Session, error) {
	if email != "a@b.c" || password != "pw" {
		return Session{}, ErrInvalidCredentials
	}
	return Session{
		Token:     "tok",
		ExpiresAt: time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
		User:      User{ID: "u1", Email: email, Role: "customer"},
	}, nil
}

func dial(t *testing.T) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	Register(srv, fakeDirectory{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })
	return NewClient(cc)
}

func TestGetUser(t *testing.T) {
	c := dial(t)

	u, err := c.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, User{ID: "u1", Email: "a@b.c", Role: "admin", SupermarketID: "s1"}, u)

	_, err = c.GetUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetUser(context.Background(), "")
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	c := dial(t)

	s, err := c.Authenticate(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", s.Token)
	assert.Equal(t, "u1", s.User.ID)
	assert.True(t, s.ExpiresAt.Equal(time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)))

	_, err = c.Authenticate(context.Background(), "a@b.c", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
