package connect

import (
	"github.com/osa030/19queue/internal/domain/playlist"
	"github.com/osa030/19queue/internal/domain/queue"
	"github.com/osa030/19queue/internal/domain/track"
	"github.com/osa030/19queue/internal/domain/user"
)

// Empty is used by procedures without parameters or results.
type Empty struct{}

// EnqueueRequest submits one track. TrackID (an id, URI or URL) is looked up
// in the catalog when Track is not given.
type EnqueueRequest struct {
	Track    *track.Track `json:"track,omitempty"`
	TrackID  string       `json:"trackId,omitempty"`
	Notes    string       `json:"notes,omitempty"`
	Priority int          `json:"priority,omitempty"`
}

type EntryResponse struct {
	Entry *queue.Entry `json:"entry"`
}

type BulkEnqueueRequest struct {
	Tracks []track.Track `json:"tracks"`
}

type BulkEnqueueResponse struct {
	AddedCount int      `json:"addedCount"`
	IDs        []string `json:"ids"`
}

type RemoveRequest struct {
	ID string `json:"id"`
}

type EntriesResponse struct {
	Entries []queue.Entry `json:"entries"`
}

// CurrentResponse holds the playing entry; Entry is nil when none is playing.
type CurrentResponse struct {
	Entry *queue.Entry `json:"entry,omitempty"`
}

type NowPlayingResponse struct {
	NowPlaying *queue.NowPlaying `json:"nowPlaying,omitempty"`
}

type HistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

type HistoryResponse struct {
	Entries []queue.HistoryEntry `json:"entries"`
}

type RefreshResponse struct {
	Synced bool `json:"synced"`
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type TracksResponse struct {
	Tracks []track.Track `json:"tracks"`
}

type DevicesResponse struct {
	Devices []queue.Device `json:"devices"`
}

type WatchRequest struct{}

type CreatePlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	IsPublic    bool   `json:"isPublic"`
}

type PlaylistRequest struct {
	ID string `json:"id"`
}

type PlaylistResponse struct {
	Playlist *playlist.Playlist `json:"playlist"`
}

type PlaylistsResponse struct {
	Playlists []playlist.Playlist `json:"playlists"`
}

type UpdatePlaylistRequest struct {
	ID    string         `json:"id"`
	Patch playlist.Patch `json:"patch"`
}

type AddPlaylistTrackRequest struct {
	ID      string       `json:"id"`
	Track   *track.Track `json:"track,omitempty"`
	TrackID string       `json:"trackId,omitempty"`
}

type RemovePlaylistTrackRequest struct {
	ID        string `json:"id"`
	SpotifyID string `json:"spotifyId"`
}

type BulkAddRequest struct {
	ID     string        `json:"id"`
	Tracks []track.Track `json:"tracks"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type ReorderPlaylistRequest struct {
	ID   string `json:"id"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

// ImportPlaylistRequest copies the tracks of a Spotify playlist (URL, URI or id).
type ImportPlaylistRequest struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

type UserResponse struct {
	User *user.User `json:"user"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty"`
	Image *string `json:"image,omitempty"`
}

type TransitionRequest struct {
	ID         string       `json:"id"`
	Status     queue.Status `json:"status"`
	SkipReason string       `json:"skipReason,omitempty"`
}

type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type SettingsResponse struct {
	Settings *queue.Settings `json:"settings"`
}

type UpdateSettingsRequest struct {
	Patch queue.SettingsPatch `json:"patch"`
}

type InitializeSettingsResponse struct {
	Created  bool            `json:"created"`
	Settings *queue.Settings `json:"settings"`
}

// AdminBulkEnqueueRequest enqueues on behalf of SubmitterEmail, optionally
// replacing everything pending.
type AdminBulkEnqueueRequest struct {
	Tracks         []track.Track `json:"tracks"`
	SubmitterEmail string        `json:"submitterEmail"`
	ClearExisting  bool          `json:"clearExisting"`
}

type UsersResponse struct {
	Users []user.User `json:"users"`
}

type UpdateUserRoleRequest struct {
	UserID string    `json:"userId"`
	Role   user.Role `json:"role"`
}

type UserRequest struct {
	ID string `json:"id"`
}

type RuleInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Codes       []string `json:"codes"`
}

type RulesResponse struct {
	Rules []RuleInfo `json:"rules"`
}
