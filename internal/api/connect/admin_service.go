package connect

import (
	"context"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19queue/internal/app/gate"
	"github.com/osa030/19queue/internal/app/identity"
	"github.com/osa030/19queue/internal/app/jukebox"
)

// AdminService implements the AdminService RPC.
type AdminService struct {
	engine *jukebox.Engine
	gate   *gate.Gate
	users  *identity.Service
}

// NewAdminService creates a new AdminService.
func NewAdminService(engine *jukebox.Engine, g *gate.Gate, users *identity.Service) *AdminService {
	return &AdminService{engine: engine, gate: g, users: users}
}

// Transition moves an entry to another status.
func (s *AdminService) Transition(
	ctx context.Context,
	req *connect.Request[TransitionRequest],
) (*connect.Response[EntryResponse], error) {
	entry, err := s.engine.TransitionStatus(ctx, req.Msg.ID, req.Msg.Status, req.Msg.SkipReason)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&EntryResponse{Entry: entry}), nil
}

// Reorder moves the pending entry at position From to position To.
func (s *AdminService) Reorder(
	ctx context.Context,
	req *connect.Request[ReorderRequest],
) (*connect.Response[Empty], error) {
	if err := s.engine.Reorder(ctx, req.Msg.From, req.Msg.To); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *AdminService) GetSettings(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[SettingsResponse], error) {
	settings, err := s.gate.GetSettings(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SettingsResponse{Settings: settings}), nil
}

func (s *AdminService) UpdateSettings(
	ctx context.Context,
	req *connect.Request[UpdateSettingsRequest],
) (*connect.Response[SettingsResponse], error) {
	if req.Msg.Patch.Empty() {
		return nil, invalidArgument("patch has no fields")
	}
	settings, err := s.gate.UpdateSettings(ctx, req.Msg.Patch, adminActor(req.Header()))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SettingsResponse{Settings: settings}), nil
}

func (s *AdminService) InitializeSettings(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[InitializeSettingsResponse], error) {
	created, settings, err := s.gate.InitializeSettings(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&InitializeSettingsResponse{Created: created, Settings: settings}), nil
}

// BulkEnqueue enqueues tracks on behalf of a user, optionally replacing the
// pending queue.
func (s *AdminService) BulkEnqueue(
	ctx context.Context,
	req *connect.Request[AdminBulkEnqueueRequest],
) (*connect.Response[BulkEnqueueResponse], error) {
	if req.Msg.SubmitterEmail == "" {
		return nil, invalidArgument("submitterEmail is required")
	}
	res, err := s.engine.BulkEnqueue(ctx, req.Msg.Tracks, req.Msg.SubmitterEmail, req.Msg.ClearExisting)
	if err != nil {
		return nil, toConnectError(err)
	}
	zlog.Info().Msgf("Admin bulk enqueue: by=%s submitter=%s added=%d clear=%t",
		adminActor(req.Header()), req.Msg.SubmitterEmail, res.AddedCount, req.Msg.ClearExisting)
	return connect.NewResponse(&BulkEnqueueResponse{AddedCount: res.AddedCount, IDs: res.IDs}), nil
}

func (s *AdminService) ListUsers(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[UsersResponse], error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&UsersResponse{Users: users}), nil
}

func (s *AdminService) UpdateUserRole(
	ctx context.Context,
	req *connect.Request[UpdateUserRoleRequest],
) (*connect.Response[UserResponse], error) {
	u, err := s.users.UpdateUserRole(ctx, req.Msg.UserID, req.Msg.Role)
	if err != nil {
		return nil, toConnectError(err)
	}
	zlog.Info().Msgf("User role changed: id=%s role=%s by=%s", u.ID, u.Role, adminActor(req.Header()))
	return connect.NewResponse(&UserResponse{User: u}), nil
}

// DeleteUser removes a user and their playlists.
func (s *AdminService) DeleteUser(
	ctx context.Context,
	req *connect.Request[UserRequest],
) (*connect.Response[Empty], error) {
	if err := s.users.DeleteUser(ctx, req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

// ListRules describes the active gate rules in evaluation order.
func (s *AdminService) ListRules(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[RulesResponse], error) {
	rules := s.gate.Chain().Rules()
	out := make([]RuleInfo, len(rules))
	for i, r := range rules {
		out[i] = RuleInfo{Name: r.Name(), Description: r.Description(), Codes: r.ReturnCodes()}
	}
	return connect.NewResponse(&RulesResponse{Rules: out}), nil
}
