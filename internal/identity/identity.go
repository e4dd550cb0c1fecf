// Package identity is the gRPC contract of the user directory. Messages are
// protobuf well-known types so client and server share no generated code.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "mercado.identity.v1.Directory"

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type User struct {
	ID            string
	Email         string
	Role          string
	SupermarketID string
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// Server is implemented by the user service.
type Server interface {
	GetUser(ctx context.Context, id string) (User, error)
	Authenticate(ctx context.Context, email, password string) (Session, error)
}

func userToStruct(u User) map[string]any {
	return map[string]any{
		"id":             u.ID,
		"email":          u.Email,
		"role":           u.Role,
		"supermarket_id": u.SupermarketID,
	}
}

func userFromStruct(s *structpb.Struct) User {
	f := s.GetFields()
	return User{
		ID:            f["id"].GetStringValue(),
		Email:         f["email"].GetStringValue(),
		Role:          f["role"].GetStringValue(),
		SupermarketID: f["supermarket_id"].GetStringValue(),
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, err.Error())
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Errorf(codes.Internal, "%v", err)
}

func getUserHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		id := req.(*wrapperspb.StringValue).GetValue()
		if id == "" {
			return nil, status.Error(codes.InvalidArgument, "id is required")
		}
		u, err := srv.(Server).GetUser(ctx, id)
		if err != nil {
			return nil, toStatus(err)
		}
		return structpb.NewStruct(userToStruct(u))
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetUser"}, call)
}

func authenticateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		f := req.(*structpb.Struct).GetFields()
		email, password := f["email"].GetStringValue(), f["password"].GetStringValue()
		if email == "" || password == "" {
			return nil, status.Error(codes.InvalidArgument, "email and password are required")
		}
		s, err := srv.(Server).Authenticate(ctx, email, password)
		if err != nil {
			return nil, toStatus(err)
		}
		return structpb.NewStruct(map[string]any{
			"token":      s.Token,
			"expires_at": s.ExpiresAt.UTC().Format(time.RFC3339),
			"user":       userToStruct(s.User),
		})
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Authenticate"}, call)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetUser", Handler: getUserHandler},
		{MethodName: "Authenticate", Handler: authenticateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mercado/identity/v1/directory",
}

func Register(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}

// Client calls the directory over an existing connection.
type Client struct {
	cc      grpc.ClientConnInterface
	timeout time.Duration
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc, timeout: 3 * time.Second}
}

func fromStatus(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.Unauthenticated:
		return ErrInvalidCredentials
	}
	return err
}

func (c *Client) GetUser(ctx context.Context, id string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetUser", wrapperspb.String(id), out); err != nil {
		return User{}, fromStatus(err)
	}
	return userFromStruct(out), nil
}

func (c *Client) Authenticate(ctx context.Context, email, password string) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	in, err := structpb.NewStruct(map[string]any{"email": email, "password": password})
	if err != nil {
		return Session{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Authenticate", in, out); err != nil {
		return Session{}, fromStatus(err)
	}
	f := out.GetFields()
	exp, err := time.Parse(time.RFC3339, f["expires_at"].GetStringValue())
	if err != nil {
		return Session{}, fmt.Errorf("bad expires_at: %w", err)
	}
	return Session{
		Token:     f["token"].GetStringValue(),
		ExpiresAt: exp,
		User:      userFromStruct(f["user"].GetStructValue()),
	}, nil
}
