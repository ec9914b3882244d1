package connect

// Fully-qualified service names.
const (
	QueueServiceName    = "jukebox.v1.QueueService"
	PlaylistServiceName = "jukebox.v1.PlaylistService"
	AdminServiceName    = "jukebox.v1.AdminService"
)

// QueueService procedures.
const (
	QueueServiceEnqueueProcedure       = "/" + QueueServiceName + "/Enqueue"
	QueueServiceBulkEnqueueProcedure   = "/" + QueueServiceName + "/BulkEnqueue"
	QueueServiceRemoveProcedure        = "/" + QueueServiceName + "/Remove"
	QueueServiceGetQueueProcedure      = "/" + QueueServiceName + "/GetQueue"
	QueueServiceGetPendingProcedure    = "/" + QueueServiceName + "/GetPending"
	QueueServiceGetCurrentProcedure    = "/" + QueueServiceName + "/GetCurrent"
	QueueServiceGetNowPlayingProcedure = "/" + QueueServiceName + "/GetNowPlaying"
	QueueServiceGetHistoryProcedure    = "/" + QueueServiceName + "/GetHistory"
	QueueServiceViewProcedure          = "/" + QueueServiceName + "/View"
	QueueServiceRefreshProcedure       = "/" + QueueServiceName + "/Refresh"
	QueueServiceSearchProcedure        = "/" + QueueServiceName + "/Search"
	QueueServiceDevicesProcedure       = "/" + QueueServiceName + "/Devices"
	QueueServiceWatchProcedure         = "/" + QueueServiceName + "/Watch"
)

// PlaylistService procedures.
const (
	PlaylistServiceCreateProcedure        = "/" + PlaylistServiceName + "/Create"
	PlaylistServiceGetProcedure           = "/" + PlaylistServiceName + "/Get"
	PlaylistServiceListMineProcedure      = "/" + PlaylistServiceName + "/ListMine"
	PlaylistServiceListPublicProcedure    = "/" + PlaylistServiceName + "/ListPublic"
	PlaylistServiceUpdateProcedure        = "/" + PlaylistServiceName + "/Update"
	PlaylistServiceDeleteProcedure        = "/" + PlaylistServiceName + "/Delete"
	PlaylistServiceAddTrackProcedure      = "/" + PlaylistServiceName + "/AddTrack"
	PlaylistServiceRemoveTrackProcedure   = "/" + PlaylistServiceName + "/RemoveTrack"
	PlaylistServiceBulkAddProcedure       = "/" + PlaylistServiceName + "/BulkAdd"
	PlaylistServiceReorderProcedure       = "/" + PlaylistServiceName + "/Reorder"
	PlaylistServiceImportProcedure        = "/" + PlaylistServiceName + "/Import"
	PlaylistServiceGetMeProcedure         = "/" + PlaylistServiceName + "/GetMe"
	PlaylistServiceUpdateProfileProcedure = "/" + PlaylistServiceName + "/UpdateProfile"
)

// AdminService procedures.
const (
	AdminServiceTransitionProcedure         = "/" + AdminServiceName + "/Transition"
	AdminServiceReorderProcedure            = "/" + AdminServiceName + "/Reorder"
	AdminServiceGetSettingsProcedure        = "/" + AdminServiceName + "/GetSettings"
	AdminServiceUpdateSettingsProcedure     = "/" + AdminServiceName + "/UpdateSettings"
	AdminServiceInitializeSettingsProcedure = "/" + AdminServiceName + "/InitializeSettings"
	AdminServiceBulkEnqueueProcedure        = "/" + AdminServiceName + "/BulkEnqueue"
	AdminServiceListUsersProcedure          = "/" + AdminServiceName + "/ListUsers"
	AdminServiceUpdateUserRoleProcedure     = "/" + AdminServiceName + "/UpdateUserRole"
	AdminServiceDeleteUserProcedure         = "/" + AdminServiceName + "/DeleteUser"
	AdminServiceListRulesProcedure          = "/" + AdminServiceName + "/ListRules"
)
