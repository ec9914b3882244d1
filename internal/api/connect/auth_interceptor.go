// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"crypto/subtle"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19queue/internal/app/identity"
	"github.com/osa030/19queue/internal/domain/errs"
	"github.com/osa030/19queue/internal/domain/user"
	"github.com/osa030/19queue/internal/infra/token"
)

const (
	// AdminTokenHeader is the header name for admin authentication token.
	AdminTokenHeader = "X-Admin-Token"
	// UserEmailHeader names the caller when a trusted proxy authenticates users.
	UserEmailHeader = "X-User-Email"
	// AuthorizationHeader carries the bearer token.
	AuthorizationHeader = "Authorization"
)

// NewAdminAuthInterceptor creates an interceptor that validates admin tokens
// from request metadata for AdminService methods.
func NewAdminAuthInterceptor(adminToken string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			token := req.Header().Get(AdminTokenHeader)
			if token == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("admin token is required"))
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
				return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid admin token"))
			}
			return next(ctx, req)
		}
	}
}

// adminActor names who made an admin change, for the audit fields.
func adminActor(h http.Header) string {
	if v := h.Get(UserEmailHeader); v != "" {
		return v
	}
	return "admin"
}

type callerKey struct{}

// WithCaller returns ctx carrying the authenticated user.
func WithCaller(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, callerKey{}, u)
}

// CallerFromContext returns the user set by the identity interceptor.
func CallerFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(callerKey{}).(*user.User)
	return u, ok && u != nil
}

func caller(ctx context.Context) (*user.User, error) {
	if u, ok := CallerFromContext(ctx); ok {
		return u, nil
	}
	return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("caller is not authenticated"))
}

// IdentityInterceptor resolves the caller from a bearer token or, when
// trusted, from the X-User-Email header. Users seen for the first time are
// created.
type IdentityInterceptor struct {
	signer      *token.Signer
	trustHeader bool
	users       *identity.Service
}

// NewIdentityInterceptor creates the interceptor. signer may be nil when only
// the trusted header is accepted.
func NewIdentityInterceptor(users *identity.Service, signer *token.Signer, trustHeader bool) *IdentityInterceptor {
	return &IdentityInterceptor{signer: signer, trustHeader: trustHeader, users: users}
}

var _ connect.Interceptor = (*IdentityInterceptor)(nil)

func (i *IdentityInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		u, err := i.resolve(ctx, req.Header())
		if err != nil {
			return nil, err
		}
		return next(WithCaller(ctx, u), req)
	}
}

func (i *IdentityInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *IdentityInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		u, err := i.resolve(ctx, conn.RequestHeader())
		if err != nil {
			return err
		}
		return next(WithCaller(ctx, u), conn)
	}
}

func (i *IdentityInterceptor) resolve(ctx context.Context, h http.Header) (*user.User, error) {
	var id *token.Identity
	if raw, ok := token.FromHeader(h.Get(AuthorizationHeader)); ok && i.signer != nil {
		verified, err := i.signer.Verify(raw)
		if err != nil {
			zlog.Debug().Msgf("Rejected bearer token: err=%v", err)
			return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid bearer token"))
		}
		id = verified
	} else if email := h.Get(UserEmailHeader); i.trustHeader && email != "" {
		id = &token.Identity{Email: email}
	} else {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("credentials are required"))
	}

	u, err := i.users.GetUserByEmail(ctx, id.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, toConnectError(err)
	}
	u, err = i.users.UpsertUser(ctx, identity.UpsertInput{
		Email:      id.Email,
		Name:       id.Name,
		Image:      id.Image,
		ExternalID: id.ExternalID,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return u, nil
}

// headerInterceptor attaches fixed headers to every outgoing request.
type headerInterceptor struct {
	header http.Header
}

// WithHeaders returns a client option that sends h on every call.
func WithHeaders(h http.Header) connect.ClientOption {
	return connect.WithInterceptors(&headerInterceptor{header: h.Clone()})
}

// WithBearer returns a client option that authenticates with a bearer token.
func WithBearer(raw string) connect.ClientOption {
	h := http.Header{}
	h.Set(AuthorizationHeader, "Bearer "+raw)
	return WithHeaders(h)
}

// WithAdminToken returns a client option that sends the admin token.
func WithAdminToken(adminToken string) connect.ClientOption {
	h := http.Header{}
	h.Set(AdminTokenHeader, adminToken)
	return WithHeaders(h)
}

func (i *headerInterceptor) apply(dst http.Header) {
	for k, vs := range i.header {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func (i *headerInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			i.apply(req.Header())
		}
		return next(ctx, req)
	}
}

func (i *headerInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		i.apply(conn.RequestHeader())
		return conn
	}
}

func (i *headerInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
