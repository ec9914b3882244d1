package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/osa030/19queue/internal/app/notification"
	"github.com/osa030/19queue/internal/app/reconcile"
)

func newClient[Req, Res any](hc connect.HTTPClient, baseURL, procedure string, opts []connect.ClientOption) *connect.Client[Req, Res] {
	opts = append([]connect.ClientOption{connect.WithCodec(Codec)}, opts...)
	return connect.NewClient[Req, Res](hc, strings.TrimRight(baseURL, "/")+procedure, opts...)
}

func unary[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// QueueClient is a client for QueueService.
type QueueClient struct {
	enqueue       *connect.Client[EnqueueRequest, EntryResponse]
	bulkEnqueue   *connect.Client[BulkEnqueueRequest, BulkEnqueueResponse]
	remove        *connect.Client[RemoveRequest, Empty]
	getQueue      *connect.Client[Empty, EntriesResponse]
	getPending    *connect.Client[Empty, EntriesResponse]
	getCurrent    *connect.Client[Empty, CurrentResponse]
	getNowPlaying *connect.Client[Empty, NowPlayingResponse]
	getHistory    *connect.Client[HistoryRequest, HistoryResponse]
	view          *connect.Client[Empty, reconcile.View]
	refresh       *connect.Client[Empty, RefreshResponse]
	search        *connect.Client[SearchRequest, TracksResponse]
	devices       *connect.Client[Empty, DevicesResponse]
	watch         *connect.Client[WatchRequest, notification.Event]
}

// NewQueueClient creates a QueueService client for baseURL (e.g. http://localhost:8080).
func NewQueueClient(hc connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *QueueClient {
	return &QueueClient{
		enqueue:       newClient[EnqueueRequest, EntryResponse](hc, baseURL, QueueServiceEnqueueProcedure, opts),
		bulkEnqueue:   newClient[BulkEnqueueRequest, BulkEnqueueResponse](hc, baseURL, QueueServiceBulkEnqueueProcedure, opts),
		remove:        newClient[RemoveRequest, Empty](hc, baseURL, QueueServiceRemoveProcedure, opts),
		getQueue:      newClient[Empty, EntriesResponse](hc, baseURL, QueueServiceGetQueueProcedure, opts),
		getPending:    newClient[Empty, EntriesResponse](hc, baseURL, QueueServiceGetPendingProcedure, opts),
		getCurrent:    newClient[Empty, CurrentResponse](hc, baseURL, QueueServiceGetCurrentProcedure, opts),
		getNowPlaying: newClient[Empty, NowPlayingResponse](hc, baseURL, QueueServiceGetNowPlayingProcedure, opts),
		getHistory:    newClient[HistoryRequest, HistoryResponse](hc, baseURL, QueueServiceGetHistoryProcedure, opts),
		view:          newClient[Empty, reconcile.View](hc, baseURL, QueueServiceViewProcedure, opts),
		refresh:       newClient[Empty, RefreshResponse](hc, baseURL, QueueServiceRefreshProcedure, opts),
		search:        newClient[SearchRequest, TracksResponse](hc, baseURL, QueueServiceSearchProcedure, opts),
		devices:       newClient[Empty, DevicesResponse](hc, baseURL, QueueServiceDevicesProcedure, opts),
		watch:         newClient[WatchRequest, notification.Event](hc, baseURL, QueueServiceWatchProcedure, opts),
	}
}

func (c *QueueClient) Enqueue(ctx context.Context, req *EnqueueRequest) (*EntryResponse, error) {
	return unary(ctx, c.enqueue, req)
}

func (c *QueueClient) BulkEnqueue(ctx context.Context, req *BulkEnqueueRequest) (*BulkEnqueueResponse, error) {
	return unary(ctx, c.bulkEnqueue, req)
}

func (c *QueueClient) Remove(ctx context.Context, id string) error {
	_, err := unary(ctx, c.remove, &RemoveRequest{ID: id})
	return err
}

func (c *QueueClient) GetQueue(ctx context.Context) (*EntriesResponse, error) {
	return unary(ctx, c.getQueue, &Empty{})
}

func (c *QueueClient) GetPending(ctx context.Context) (*EntriesResponse, error) {
	return unary(ctx, c.getPending, &Empty{})
}

func (c *QueueClient) GetCurrent(ctx context.Context) (*CurrentResponse, error) {
	return unary(ctx, c.getCurrent, &Empty{})
}

func (c *QueueClient) GetNowPlaying(ctx context.Context) (*NowPlayingResponse, error) {
	return unary(ctx, c.getNowPlaying, &Empty{})
}

func (c *QueueClient) GetHistory(ctx context.Context, limit int) (*HistoryResponse, error) {
	return unary(ctx, c.getHistory, &HistoryRequest{Limit: limit})
}

func (c *QueueClient) View(ctx context.Context) (*reconcile.View, error) {
	return unary(ctx, c.view, &Empty{})
}

func (c *QueueClient) Refresh(ctx context.Context) (*RefreshResponse, error) {
	return unary(ctx, c.refresh, &Empty{})
}

func (c *QueueClient) Search(ctx context.Context, query string, limit int) (*TracksResponse, error) {
	return unary(ctx, c.search, &SearchRequest{Query: query, Limit: limit})
}

func (c *QueueClient) Devices(ctx context.Context) (*DevicesResponse, error) {
	return unary(ctx, c.devices, &Empty{})
}

// Watch opens the notification stream. The caller must Close it.
func (c *QueueClient) Watch(ctx context.Context) (*connect.ServerStreamForClient[notification.Event], error) {
	return c.watch.CallServerStream(ctx, connect.NewRequest(&WatchRequest{}))
}

// PlaylistClient is a client for PlaylistService.
type PlaylistClient struct {
	create        *connect.Client[CreatePlaylistRequest, PlaylistResponse]
	get           *connect.Client[PlaylistRequest, PlaylistResponse]
	listMine      *connect.Client[Empty, PlaylistsResponse]
	listPublic    *connect.Client[Empty, PlaylistsResponse]
	update        *connect.Client[UpdatePlaylistRequest, PlaylistResponse]
	del           *connect.Client[PlaylistRequest, Empty]
	addTrack      *connect.Client[AddPlaylistTrackRequest, PlaylistResponse]
	removeTrack   *connect.Client[RemovePlaylistTrackRequest, PlaylistResponse]
	bulkAdd       *connect.Client[BulkAddRequest, CountResponse]
	reorder       *connect.Client[ReorderPlaylistRequest, PlaylistResponse]
	importTracks  *connect.Client[ImportPlaylistRequest, CountResponse]
	getMe         *connect.Client[Empty, UserResponse]
	updateProfile *connect.Client[UpdateProfileRequest, UserResponse]
}

// NewPlaylistClient creates a PlaylistService client.
func NewPlaylistClient(hc connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PlaylistClient {
	return &PlaylistClient{
		create:        newClient[CreatePlaylistRequest, PlaylistResponse](hc, baseURL, PlaylistServiceCreateProcedure, opts),
		get:           newClient[PlaylistRequest, PlaylistResponse](hc, baseURL, PlaylistServiceGetProcedure, opts),
		listMine:      newClient[Empty, PlaylistsResponse](hc, baseURL, PlaylistServiceListMineProcedure, opts),
		listPublic:    newClient[Empty, PlaylistsResponse](hc, baseURL, PlaylistServiceListPublicProcedure, opts),
		update:        newClient[UpdatePlaylistRequest, PlaylistResponse](hc, baseURL, PlaylistServiceUpdateProcedure, opts),
		del:           newClient[PlaylistRequest, Empty](hc, baseURL, PlaylistServiceDeleteProcedure, opts),
		addTrack:      newClient[AddPlaylistTrackRequest, PlaylistResponse](hc, baseURL, PlaylistServiceAddTrackProcedure, opts),
		removeTrack:   newClient[RemovePlaylistTrackRequest, PlaylistResponse](hc, baseURL, PlaylistServiceRemoveTrackProcedure, opts),
		bulkAdd:       newClient[BulkAddRequest, CountResponse](hc, baseURL, PlaylistServiceBulkAddProcedure, opts),
		reorder:       newClient[ReorderPlaylistRequest, PlaylistResponse](hc, baseURL, PlaylistServiceReorderProcedure, opts),
		importTracks:  newClient[ImportPlaylistRequest, CountResponse](hc, baseURL, PlaylistServiceImportProcedure, opts),
		getMe:         newClient[Empty, UserResponse](hc, baseURL, PlaylistServiceGetMeProcedure, opts),
		updateProfile: newClient[UpdateProfileRequest, UserResponse](hc, baseURL, PlaylistServiceUpdateProfileProcedure, opts),
	}
}

func (c *PlaylistClient) Create(ctx context.Context, req *CreatePlaylistRequest) (*PlaylistResponse, error) {
	return unary(ctx, c.create, req)
}

func (c *PlaylistClient) Get(ctx context.Context, id string) (*PlaylistResponse, error) {
	return unary(ctx, c.get, &PlaylistRequest{ID: id})
}

func (c *PlaylistClient) ListMine(ctx context.Context) (*PlaylistsResponse, error) {
	return unary(ctx, c.listMine, &Empty{})
}

func (c *PlaylistClient) ListPublic(ctx context.Context) (*PlaylistsResponse, error) {
	return unary(ctx, c.listPublic, &Empty{})
}

func (c *PlaylistClient) Update(ctx context.Context, req *UpdatePlaylistRequest) (*PlaylistResponse, error) {
	return unary(ctx, c.update, req)
}

func (c *PlaylistClient) Delete(ctx context.Context, id string) error {
	_, err := unary(ctx, c.del, &PlaylistRequest{ID: id})
	return err
}

func (c *PlaylistClient) AddTrack(ctx context.Context, req *AddPlaylistTrackRequest) (*PlaylistResponse, error) {
	return unary(ctx, c.addTrack, req)
}

func (c *PlaylistClient) RemoveTrack(ctx context.Context, id, spotifyID string) (*PlaylistResponse, error) {
	return unary(ctx, c.removeTrack, &RemovePlaylistTrackRequest{ID: id, SpotifyID: spotifyID})
}

func (c *PlaylistClient) BulkAdd(ctx context.Context, req *BulkAddRequest) (*CountResponse, error) {
	return unary(ctx, c.bulkAdd, req)
}

func (c *PlaylistClient) Reorder(ctx context.Context, id string, from, to int) (*PlaylistResponse, error) {
	return unary(ctx, c.reorder, &ReorderPlaylistRequest{ID: id, From: from, To: to})
}

func (c *PlaylistClient) Import(ctx context.Context, id, source string) (*CountResponse, error) {
	return unary(ctx, c.importTracks, &ImportPlaylistRequest{ID: id, Source: source})
}

func (c *PlaylistClient) GetMe(ctx context.Context) (*UserResponse, error) {
	return unary(ctx, c.getMe, &Empty{})
}

func (c *PlaylistClient) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*UserResponse, error) {
	return unary(ctx, c.updateProfile, req)
}

// AdminClient is a client for AdminService.
type AdminClient struct {
	transition         *connect.Client[TransitionRequest, EntryResponse]
	reorder            *connect.Client[ReorderRequest, Empty]
	getSettings        *connect.Client[Empty, SettingsResponse]
	updateSettings     *connect.Client[UpdateSettingsRequest, SettingsResponse]
	initializeSettings *connect.Client[Empty, InitializeSettingsResponse]
	bulkEnqueue        *connect.Client[AdminBulkEnqueueRequest, BulkEnqueueResponse]
	listUsers          *connect.Client[Empty, UsersResponse]
	updateUserRole     *connect.Client[UpdateUserRoleRequest, UserResponse]
	deleteUser         *connect.Client[UserRequest, Empty]
	listRules          *connect.Client[Empty, RulesResponse]
}

// NewAdminClient creates an AdminService client. Pass WithAdminToken in opts.
func NewAdminClient(hc connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AdminClient {
	return &AdminClient{
		transition:         newClient[TransitionRequest, EntryResponse](hc, baseURL, AdminServiceTransitionProcedure, opts),
		reorder:            newClient[ReorderRequest, Empty](hc, baseURL, AdminServiceReorderProcedure, opts),
		getSettings:        newClient[Empty, SettingsResponse](hc, baseURL, AdminServiceGetSettingsProcedure, opts),
		updateSettings:     newClient[UpdateSettingsRequest, SettingsResponse](hc, baseURL, AdminServiceUpdateSettingsProcedure, opts),
		initializeSettings: newClient[Empty, InitializeSettingsResponse](hc, baseURL, AdminServiceInitializeSettingsProcedure, opts),
		bulkEnqueue:        newClient[AdminBulkEnqueueRequest, BulkEnqueueResponse](hc, baseURL, AdminServiceBulkEnqueueProcedure, opts),
		listUsers:          newClient[Empty, UsersResponse](hc, baseURL, AdminServiceListUsersProcedure, opts),
		updateUserRole:     newClient[UpdateUserRoleRequest, UserResponse](hc, baseURL, AdminServiceUpdateUserRoleProcedure, opts),
		deleteUser:         newClient[UserRequest, Empty](hc, baseURL, AdminServiceDeleteUserProcedure, opts),
		listRules:          newClient[Empty, RulesResponse](hc, baseURL, AdminServiceListRulesProcedure, opts),
	}
}

func (c *AdminClient) Transition(ctx context.Context, req *TransitionRequest) (*EntryResponse, error) {
	return unary(ctx, c.transition, req)
}

func (c *AdminClient) Reorder(ctx context.Context, from, to int) error {
	_, err := unary(ctx, c.reorder, &ReorderRequest{From: from, To: to})
	return err
}

func (c *AdminClient) GetSettings(ctx context.Context) (*SettingsResponse, error) {
	return unary(ctx, c.getSettings, &Empty{})
}

func (c *AdminClient) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*SettingsResponse, error) {
	return unary(ctx, c.updateSettings, req)
}

func (c *AdminClient) InitializeSettings(ctx context.Context) (*InitializeSettingsResponse, error) {
	return unary(ctx, c.initializeSettings, &Empty{})
}

func (c *AdminClient) BulkEnqueue(ctx context.Context, req *AdminBulkEnqueueRequest) (*BulkEnqueueResponse, error) {
	return unary(ctx, c.bulkEnqueue, req)
}

func (c *AdminClient) ListUsers(ctx context.Context) (*UsersResponse, error) {
	return unary(ctx, c.listUsers, &Empty{})
}

func (c *AdminClient) UpdateUserRole(ctx context.Context, req *UpdateUserRoleRequest) (*UserResponse, error) {
	return unary(ctx, c.updateUserRole, req)
}

func (c *AdminClient) DeleteUser(ctx context.Context, id string) error {
	_, err := unary(ctx, c.deleteUser, &UserRequest{ID: id})
	return err
}

func (c *AdminClient) ListRules(ctx context.Context) (*RulesResponse, error) {
	return unary(ctx, c.listRules, &Empty{})
}
