package connect

import (
	"context"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19queue/internal/app/identity"
	"github.com/osa030/19queue/internal/app/playlists"
)

// PlaylistService implements the PlaylistService RPC, including the
// caller's own profile.
type PlaylistService struct {
	engine  *playlists.Engine
	users   *identity.Service
	catalog Catalog
}

// NewPlaylistService creates a new PlaylistService. catalog may be nil.
func NewPlaylistService(engine *playlists.Engine, users *identity.Service, catalog Catalog) *PlaylistService {
	return &PlaylistService{engine: engine, users: users, catalog: catalog}
}

func (s *PlaylistService) Create(
	ctx context.Context,
	req *connect.Request[CreatePlaylistRequest],
) (*connect.Response[PlaylistResponse], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.engine.Create(ctx, u.ID, playlists.CreateInput{
		Name:        req.Msg.Name,
		Description: req.Msg.Description,
		Image:       req.Msg.Image,
		IsPublic:    req.Msg.IsPublic,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PlaylistResponse{Playlist: p}), nil
}

func (s *PlaylistService) Get(
	ctx context.Context,
	req *connect.Request[PlaylistRequest],
) (*connect.Response[PlaylistResponse], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.engine.Get(ctx, req.Msg.ID, u.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PlaylistResponse{Playlist: p}), nil
}

func (s *PlaylistService) ListMine(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[PlaylistsResponse], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	ps, err := s.engine.GetUserPlaylists(ctx, u.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PlaylistsResponse{Playlists: ps}), nil
}

func (s *PlaylistService) ListPublic(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[PlaylistsResponse], error) {
	ps, err := s.engine.GetPublicPlaylists(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PlaylistsResponse{Playlists: ps}), nil
}

func (s *PlaylistService) Update(
	ctx context.Context,
	req *connect.Request[UpdatePlaylistRequest],
) (*connect.Response[PlaylistResponse], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.engine.Update(ctx, req.Msg.ID, u.ID, req.Msg.Patch)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PlaylistResponse{Playlist: p}), nil
}

func (s *PlaylistService) Delete(
	ctx context.Context,
	req *connect.Request[PlaylistRequest],
) (*connect.Response[Empty], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Delete(ctx, req.Msg.ID, u.ID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *PlaylistService) AddTrack(
	ctx context.Context,
	req *connect.Request[AddPlaylistTrackRequest],
) (*connect.Response[PlaylistResponse], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	t, err := resolveTrack(ctx, s.catalog, req.Msg.Track, req.Msg.TrackID)
	if err != nil {
		return nil, err
	}
	p, err := s.engine.AddTrack(ctx, req.Msg.ID, u.ID, *t)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PlaylistResponse{Playlist: p}), nil
}

func (s *PlaylistService) RemoveTrack(
	ctx context.Context,
	req *connect.Request[RemovePlaylistTrackRequest],
) (*connect.Response[PlaylistResponse], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.engine.RemoveTrack(ctx, req.Msg.ID, u.ID, req.Msg.SpotifyID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PlaylistResponse{Playlist: p}), nil
}

func (s *PlaylistService) BulkAdd(
	ctx context.Context,
	req *connect.Request[BulkAddRequest],
) (*connect.Response[CountResponse], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.engine.BulkAdd(ctx, req.Msg.ID, u.ID, req.Msg.Tracks)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CountResponse{Count: n}), nil
}

func (s *PlaylistService) Reorder(
	ctx context.Context,
	req *connect.Request[ReorderPlaylistRequest],
) (*connect.Response[PlaylistResponse], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.engine.Reorder(ctx, req.Msg.ID, u.ID, req.Msg.From, req.Msg.To)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PlaylistResponse{Playlist: p}), nil
}

// Import copies the tracks of a Spotify playlist into one of the caller's playlists.
func (s *PlaylistService) Import(
	ctx context.Context,
	req *connect.Request[ImportPlaylistRequest],
) (*connect.Response[CountResponse], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if s.catalog == nil {
		return nil, unavailable("catalog is not configured")
	}
	if req.Msg.Source == "" {
		return nil, invalidArgument("source is required")
	}
	// check ownership before fetching a possibly long playlist
	if _, err := s.engine.Get(ctx, req.Msg.ID, u.ID); err != nil {
		return nil, toConnectError(err)
	}

	tracks, err := s.catalog.GetPlaylistTracks(ctx, req.Msg.Source)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	n, err := s.engine.BulkAdd(ctx, req.Msg.ID, u.ID, tracks)
	if err != nil {
		return nil, toConnectError(err)
	}
	zlog.Info().Msgf("Playlist imported: id=%s source=%s fetched=%d added=%d", req.Msg.ID, req.Msg.Source, len(tracks), n)
	return connect.NewResponse(&CountResponse{Count: n}), nil
}

// GetMe returns the caller's profile.
func (s *PlaylistService) GetMe(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[UserResponse], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&UserResponse{User: u}), nil
}

// UpdateProfile changes the caller's display name or image.
func (s *PlaylistService) UpdateProfile(
	ctx context.Context,
	req *connect.Request[UpdateProfileRequest],
) (*connect.Response[UserResponse], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := s.users.UpdateUserProfile(ctx, u.ID, identity.ProfilePatch{
		Name:  req.Msg.Name,
		Image: req.Msg.Image,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&UserResponse{User: updated}), nil
}
