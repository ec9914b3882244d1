package connect

import (
	"net/http"

	"connectrpc.com/connect"
)

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec)}, opts...)
}

// NewQueueServiceHandler builds an HTTP handler for QueueService. It returns
// the path on which to mount the handler and the handler itself.
func NewQueueServiceHandler(svc *QueueService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(QueueServiceEnqueueProcedure, connect.NewUnaryHandler(QueueServiceEnqueueProcedure, svc.Enqueue, opts...))
	mux.Handle(QueueServiceBulkEnqueueProcedure, connect.NewUnaryHandler(QueueServiceBulkEnqueueProcedure, svc.BulkEnqueue, opts...))
	mux.Handle(QueueServiceRemoveProcedure, connect.NewUnaryHandler(QueueServiceRemoveProcedure, svc.Remove, opts...))
	mux.Handle(QueueServiceGetQueueProcedure, connect.NewUnaryHandler(QueueServiceGetQueueProcedure, svc.GetQueue, opts...))
	mux.Handle(QueueServiceGetPendingProcedure, connect.NewUnaryHandler(QueueServiceGetPendingProcedure, svc.GetPending, opts...))
	mux.Handle(QueueServiceGetCurrentProcedure, connect.NewUnaryHandler(QueueServiceGetCurrentProcedure, svc.GetCurrent, opts...))
	mux.Handle(QueueServiceGetNowPlayingProcedure, connect.NewUnaryHandler(QueueServiceGetNowPlayingProcedure, svc.GetNowPlaying, opts...))
	mux.Handle(QueueServiceGetHistoryProcedure, connect.NewUnaryHandler(QueueServiceGetHistoryProcedure, svc.GetHistory, opts...))
	mux.Handle(QueueServiceViewProcedure, connect.NewUnaryHandler(QueueServiceViewProcedure, svc.View, opts...))
	mux.Handle(QueueServiceRefreshProcedure, connect.NewUnaryHandler(QueueServiceRefreshProcedure, svc.Refresh, opts...))
	mux.Handle(QueueServiceSearchProcedure, connect.NewUnaryHandler(QueueServiceSearchProcedure, svc.Search, opts...))
	mux.Handle(QueueServiceDevicesProcedure, connect.NewUnaryHandler(QueueServiceDevicesProcedure, svc.Devices, opts...))
	mux.Handle(QueueServiceWatchProcedure, connect.NewServerStreamHandler(QueueServiceWatchProcedure, svc.Watch, opts...))
	return "/" + QueueServiceName + "/", mux
}

// NewPlaylistServiceHandler builds an HTTP handler for PlaylistService.
func NewPlaylistServiceHandler(svc *PlaylistService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(PlaylistServiceCreateProcedure, connect.NewUnaryHandler(PlaylistServiceCreateProcedure, svc.Create, opts...))
	mux.Handle(PlaylistServiceGetProcedure, connect.NewUnaryHandler(PlaylistServiceGetProcedure, svc.Get, opts...))
	mux.Handle(PlaylistServiceListMineProcedure, connect.NewUnaryHandler(PlaylistServiceListMineProcedure, svc.ListMine, opts...))
	mux.Handle(PlaylistServiceListPublicProcedure, connect.NewUnaryHandler(PlaylistServiceListPublicProcedure, svc.ListPublic, opts...))
	mux.Handle(PlaylistServiceUpdateProcedure, connect.NewUnaryHandler(PlaylistServiceUpdateProcedure, svc.Update, opts...))
	mux.Handle(PlaylistServiceDeleteProcedure, connect.NewUnaryHandler(PlaylistServiceDeleteProcedure, svc.Delete, opts...))
	mux.Handle(PlaylistServiceAddTrackProcedure, connect.NewUnaryHandler(PlaylistServiceAddTrackProcedure, svc.AddTrack, opts...))
	mux.Handle(PlaylistServiceRemoveTrackProcedure, connect.NewUnaryHandler(PlaylistServiceRemoveTrackProcedure, svc.RemoveTrack, opts...))
	mux.Handle(PlaylistServiceBulkAddProcedure, connect.NewUnaryHandler(PlaylistServiceBulkAddProcedure, svc.BulkAdd, opts...))
	mux.Handle(PlaylistServiceReorderProcedure, connect.NewUnaryHandler(PlaylistServiceReorderProcedure, svc.Reorder, opts...))
	mux.Handle(PlaylistServiceImportProcedure, connect.NewUnaryHandler(PlaylistServiceImportProcedure, svc.Import, opts...))
	mux.Handle(PlaylistServiceGetMeProcedure, connect.NewUnaryHandler(PlaylistServiceGetMeProcedure, svc.GetMe, opts...))
	mux.Handle(PlaylistServiceUpdateProfileProcedure, connect.NewUnaryHandler(PlaylistServiceUpdateProfileProcedure, svc.UpdateProfile, opts...))
	return "/" + PlaylistServiceName + "/", mux
}

// NewAdminServiceHandler builds an HTTP handler for AdminService.
func NewAdminServiceHandler(svc *AdminService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(AdminServiceTransitionProcedure, connect.NewUnaryHandler(AdminServiceTransitionProcedure, svc.Transition, opts...))
	mux.Handle(AdminServiceReorderProcedure, connect.NewUnaryHandler(AdminServiceReorderProcedure, svc.Reorder, opts...))
	mux.Handle(AdminServiceGetSettingsProcedure, connect.NewUnaryHandler(AdminServiceGetSettingsProcedure, svc.GetSettings, opts...))
	mux.Handle(AdminServiceUpdateSettingsProcedure, connect.NewUnaryHandler(AdminServiceUpdateSettingsProcedure, svc.UpdateSettings, opts...))
	mux.Handle(AdminServiceInitializeSettingsProcedure, connect.NewUnaryHandler(AdminServiceInitializeSettingsProcedure, svc.InitializeSettings, opts...))
	mux.Handle(AdminServiceBulkEnqueueProcedure, connect.NewUnaryHandler(AdminServiceBulkEnqueueProcedure, svc.BulkEnqueue, opts...))
	mux.Handle(AdminServiceListUsersProcedure, connect.NewUnaryHandler(AdminServiceListUsersProcedure, svc.ListUsers, opts...))
	mux.Handle(AdminServiceUpdateUserRoleProcedure, connect.NewUnaryHandler(AdminServiceUpdateUserRoleProcedure, svc.UpdateUserRole, opts...))
	mux.Handle(AdminServiceDeleteUserProcedure, connect.NewUnaryHandler(AdminServiceDeleteUserProcedure, svc.DeleteUser, opts...))
	mux.Handle(AdminServiceListRulesProcedure, connect.NewUnaryHandler(AdminServiceListRulesProcedure, svc.ListRules, opts...))
	return "/" + AdminServiceName + "/", mux
}
