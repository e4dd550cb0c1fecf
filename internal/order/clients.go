package order

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/MikeMC777/mercado-ecom/internal/identity"
)

// Directory is the part of the identity client the order service needs.
type Directory interface {
	GetUser(ctx context.Context, id string) (identity.User, error)
	Authenticate(ctx context.Context, email, password string) (identity.Session, error)
}

// Ext bundles the order service's outbound dependencies on other services.
type Ext struct {
	Users Directory
	conn  *grpc.ClientConn
}

func NewExt(userAddr string) (*Ext, error) {
	// Non-blocking: the connection is established on first RPC.
	conn, err := grpc.NewClient(userAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &Ext{Users: identity.NewClient(conn), conn: conn}, nil
}

func (e *Ext) Close() error {
	if e.conn == nil {
		return nil
	}
	return e.conn.Close()
}

// ResolveBuyer looks the buyer up in the directory. Unknown ids are treated as
// unauthenticated.
func (e *Ext) ResolveBuyer(ctx context.Context, userID string) (Buyer, error) {
	u, err := e.Users.GetUser(ctx, userID)
	if errors.Is(err, identity.ErrNotFound) {
		return Buyer{}, ErrAuthenticationRequired
	}
	if err != nil {
		return Buyer{}, err
	}
	return Buyer{ID: u.ID, Email: u.Email}, nil
}
