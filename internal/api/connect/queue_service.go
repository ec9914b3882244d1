package connect

import (
	"context"
	"sync"
	"time"

	"connectrpc.com/connect"

	"github.com/osa030/19queue/internal/app/jukebox"
	"github.com/osa030/19queue/internal/app/notification"
	"github.com/osa030/19queue/internal/app/reconcile"
	"github.com/osa030/19queue/internal/domain/queue"
	"github.com/osa030/19queue/internal/domain/track"
)

// Catalog is the track catalog and device list of the playback provider.
type Catalog interface {
	Search(ctx context.Context, query string, limit int) ([]track.Track, error)
	GetTrack(ctx context.Context, trackID string) (*track.Track, error)
	GetPlaylistTracks(ctx context.Context, playlistURL string) ([]track.Track, error)
	Devices(ctx context.Context) ([]queue.Device, error)
}

// Reconciler exposes the reconciliation adapter to clients.
type Reconciler interface {
	View(ctx context.Context) (*reconcile.View, error)
	Sync(ctx context.Context) (bool, error)
}

// QueueService implements the QueueService RPC.
type QueueService struct {
	engine        *jukebox.Engine
	catalog       Catalog
	reconciler    Reconciler
	notifications *notification.Manager

	done      chan struct{}
	closeOnce sync.Once
}

// NewQueueService creates a new QueueService. catalog and reconciler may be
// nil when Spotify is not configured.
func NewQueueService(engine *jukebox.Engine, catalog Catalog, reconciler Reconciler, notifications *notification.Manager) *QueueService {
	return &QueueService{
		engine:        engine,
		catalog:       catalog,
		reconciler:    reconciler,
		notifications: notifications,
		done:          make(chan struct{}),
	}
}

// Close ends every open Watch stream.
func (s *QueueService) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Enqueue handles single track submissions.
func (s *QueueService) Enqueue(
	ctx context.Context,
	req *connect.Request[EnqueueRequest],
) (*connect.Response[EntryResponse], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	t, err := resolveTrack(ctx, s.catalog, req.Msg.Track, req.Msg.TrackID)
	if err != nil {
		return nil, err
	}

	entry, err := s.engine.Enqueue(ctx, *t, u.Email, jukebox.EnqueueOptions{
		RequestedBy: u.Name,
		Notes:       req.Msg.Notes,
		Priority:    req.Msg.Priority,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&EntryResponse{Entry: entry}), nil
}

// BulkEnqueue appends several tracks at once.
func (s *QueueService) BulkEnqueue(
	ctx context.Context,
	req *connect.Request[BulkEnqueueRequest],
) (*connect.Response[BulkEnqueueResponse], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.BulkEnqueue(ctx, req.Msg.Tracks, u.Email, false)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&BulkEnqueueResponse{AddedCount: res.AddedCount, IDs: res.IDs}), nil
}

// Remove deletes a pending entry submitted by the caller.
func (s *QueueService) Remove(
	ctx context.Context,
	req *connect.Request[RemoveRequest],
) (*connect.Response[Empty], error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Remove(ctx, req.Msg.ID, u.Email); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

// GetQueue returns live entries by position.
func (s *QueueService) GetQueue(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[EntriesResponse], error) {
	entries, err := s.engine.List(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&EntriesResponse{Entries: entries}), nil
}

// GetPending returns pending entries by position.
func (s *QueueService) GetPending(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[EntriesResponse], error) {
	entries, err := s.engine.Pending(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&EntriesResponse{Entries: entries}), nil
}

// GetCurrent returns the playing entry, if any.
func (s *QueueService) GetCurrent(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[CurrentResponse], error) {
	entry, err := s.engine.Current(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CurrentResponse{Entry: entry}), nil
}

// GetNowPlaying returns the last known player state.
func (s *QueueService) GetNowPlaying(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[NowPlayingResponse], error) {
	np, err := s.engine.NowPlaying(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&NowPlayingResponse{NowPlaying: np}), nil
}

// GetHistory returns finished entries, newest first.
func (s *QueueService) GetHistory(
	ctx context.Context,
	req *connect.Request[HistoryRequest],
) (*connect.Response[HistoryResponse], error) {
	entries, err := s.engine.History(ctx, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&HistoryResponse{Entries: entries}), nil
}

// View returns now playing, the user queue and the system queue.
func (s *QueueService) View(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[reconcile.View], error) {
	if s.reconciler != nil {
		v, err := s.reconciler.View(ctx)
		if err != nil {
			return nil, toConnectError(err)
		}
		return connect.NewResponse(v), nil
	}

	// without a player there is no system band
	np, err := s.engine.NowPlaying(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	live, err := s.engine.List(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&reconcile.View{
		NowPlaying:  np,
		UserQueue:   live,
		SystemQueue: []track.Track{},
	}), nil
}

// Refresh asks for an immediate reconciliation. Synced is false when the
// request was throttled.
func (s *QueueService) Refresh(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[RefreshResponse], error) {
	if s.reconciler == nil {
		return nil, unavailable("reconciliation is disabled")
	}
	synced, err := s.reconciler.Sync(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewResponse(&RefreshResponse{Synced: synced}), nil
}

// Search searches the catalog for tracks.
func (s *QueueService) Search(
	ctx context.Context,
	req *connect.Request[SearchRequest],
) (*connect.Response[TracksResponse], error) {
	if s.catalog == nil {
		return nil, unavailable("catalog is not configured")
	}
	if req.Msg.Query == "" {
		return nil, invalidArgument("query is required")
	}
	tracks, err := s.catalog.Search(ctx, req.Msg.Query, req.Msg.Limit)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewResponse(&TracksResponse{Tracks: tracks}), nil
}

// Devices lists the playback devices.
func (s *QueueService) Devices(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[DevicesResponse], error) {
	if s.catalog == nil {
		return nil, unavailable("catalog is not configured")
	}
	devices, err := s.catalog.Devices(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewResponse(&DevicesResponse{Devices: devices}), nil
}

// Watch streams change notifications, starting with initial_state.
func (s *QueueService) Watch(
	ctx context.Context,
	req *connect.Request[WatchRequest],
	stream *connect.ServerStream[notification.Event],
) error {
	adapter := &eventStream{stream: stream}
	initial := &notification.Event{
		Type:       notification.EventInitialState,
		SequenceNo: s.notifications.NextSequenceNo(),
		At:         time.Now(),
	}

	// subscribe before sending initial_state so no change is missed; holding
	// the send lock keeps broadcasts behind it
	adapter.mu.Lock()
	id := s.notifications.Subscribe(adapter)
	err := stream.Send(initial)
	adapter.mu.Unlock()
	defer s.notifications.Unsubscribe(id)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

// eventStream adapts connect.ServerStream to notification.Stream. Broadcasts
// may overlap, so sends are serialized.
type eventStream struct {
	mu     sync.Mutex
	stream *connect.ServerStream[notification.Event]
}

func (a *eventStream) Send(ev *notification.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(ev)
}

// resolveTrack returns t, or looks trackID up in the catalog.
func resolveTrack(ctx context.Context, catalog Catalog, t *track.Track, trackID string) (*track.Track, error) {
	if t != nil {
		return t, nil
	}
	if trackID == "" {
		return nil, invalidArgument("track or trackId is required")
	}
	if catalog == nil {
		return nil, unavailable("catalog is not configured")
	}
	found, err := catalog.GetTrack(ctx, trackID)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	return found, nil
}
