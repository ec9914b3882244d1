// Package main provides the user CLI entry point for testing.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/19queue/internal/api/connect"
	"github.com/osa030/19queue/internal/app/notification"
	"github.com/osa030/19queue/internal/domain/queue"
)

var (
	app    = kingpin.New("19queue-usercli", "19queue user client for testing")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Bearer token (or set USER_TOKEN env)").Envar("USER_TOKEN").String()
	email  = app.Flag("email", "Caller email, sent in the trusted header").Envar("USER_EMAIL").String()

	// queue commands
	enqueueCmd   = app.Command("enqueue", "Submit a track")
	enqueueTrack = enqueueCmd.Arg("track", "Spotify track ID, URI or URL").Required().String()
	enqueueNotes = enqueueCmd.Flag("notes", "Note shown with the entry").String()

	searchCmd   = app.Command("search", "Search the catalog")
	searchQuery = searchCmd.Arg("query", "Search terms").Required().Strings()
	searchLimit = searchCmd.Flag("limit", "Maximum results").Default("10").Int()

	queueCmd      = app.Command("queue", "Show pending and playing entries").Alias("list")
	pendingCmd    = app.Command("pending", "Show pending entries")
	nowPlayingCmd = app.Command("now-playing", "Show what the player is playing")
	historyCmd    = app.Command("history", "Show recently played entries")
	historyLimit  = historyCmd.Flag("limit", "Maximum entries").Default("20").Int()
	viewCmd       = app.Command("view", "Show now playing, user queue and system queue")
	refreshCmd    = app.Command("refresh", "Ask the server to sync with the player")
	devicesCmd    = app.Command("devices", "List playback devices")
	watchCmd      = app.Command("watch", "Stream change notifications")

	removeCmd = app.Command("remove", "Remove one of your pending entries")
	removeID  = removeCmd.Arg("entry-id", "Entry ID").Required().String()

	// playlist commands
	playlistCmd = app.Command("playlist", "Manage your playlists")

	plCreateCmd    = playlistCmd.Command("create", "Create a playlist")
	plCreateName   = plCreateCmd.Arg("name", "Playlist name").Required().String()
	plCreatePublic = plCreateCmd.Flag("public", "Make the playlist public").Bool()

	plListCmd    = playlistCmd.Command("list", "List your playlists").Default()
	plListPublic = plListCmd.Flag("public", "List public playlists instead").Bool()

	plShowCmd = playlistCmd.Command("show", "Show a playlist")
	plShowID  = plShowCmd.Arg("playlist-id", "Playlist ID").Required().String()

	plAddCmd   = playlistCmd.Command("add", "Add a track to a playlist")
	plAddID    = plAddCmd.Arg("playlist-id", "Playlist ID").Required().String()
	plAddTrack = plAddCmd.Arg("track", "Spotify track ID, URI or URL").Required().String()

	plImportCmd    = playlistCmd.Command("import", "Copy a Spotify playlist's tracks into a playlist")
	plImportID     = plImportCmd.Arg("playlist-id", "Playlist ID").Required().String()
	plImportSource = plImportCmd.Arg("source", "Spotify playlist URL, URI or ID").Required().String()

	meCmd = app.Command("me", "Show your profile")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	var opts []connect.ClientOption
	switch {
	case *token != "":
		opts = append(opts, apiconnect.WithBearer(*token))
	case *email != "":
		h := http.Header{}
		h.Set(apiconnect.UserEmailHeader, *email)
		opts = append(opts, apiconnect.WithHeaders(h))
	default:
		fmt.Println("Error: --token or --email is required")
		os.Exit(1)
	}

	queueClient := apiconnect.NewQueueClient(http.DefaultClient, *server, opts...)
	playlistClient := apiconnect.NewPlaylistClient(http.DefaultClient, *server, opts...)

	ctx := context.Background()

	switch command {
	case enqueueCmd.FullCommand():
		enqueue(ctx, queueClient)
	case searchCmd.FullCommand():
		search(ctx, queueClient)
	case queueCmd.FullCommand():
		resp, err := queueClient.GetQueue(ctx)
		exitOnError(err)
		printEntries("QUEUE", resp.Entries)
	case pendingCmd.FullCommand():
		resp, err := queueClient.GetPending(ctx)
		exitOnError(err)
		printEntries("PENDING", resp.Entries)
	case nowPlayingCmd.FullCommand():
		resp, err := queueClient.GetNowPlaying(ctx)
		exitOnError(err)
		printNowPlaying(resp.NowPlaying)
	case historyCmd.FullCommand():
		history(ctx, queueClient)
	case viewCmd.FullCommand():
		view(ctx, queueClient)
	case refreshCmd.FullCommand():
		resp, err := queueClient.Refresh(ctx)
		exitOnError(err)
		if resp.Synced {
			fmt.Println("Synced with player")
		} else {
			fmt.Println("Sync throttled, try again shortly")
		}
	case devicesCmd.FullCommand():
		devices(ctx, queueClient)
	case watchCmd.FullCommand():
		watch(ctx, queueClient)
	case removeCmd.FullCommand():
		exitOnError(queueClient.Remove(ctx, *removeID))
		fmt.Println("Entry removed")
	case plCreateCmd.FullCommand():
		resp, err := playlistClient.Create(ctx, &apiconnect.CreatePlaylistRequest{Name: *plCreateName, IsPublic: *plCreatePublic})
		exitOnError(err)
		fmt.Printf("Created playlist %s (%s)\n", resp.Playlist.Name, resp.Playlist.ID)
	case plListCmd.FullCommand():
		listPlaylists(ctx, playlistClient)
	case plShowCmd.FullCommand():
		resp, err := playlistClient.Get(ctx, *plShowID)
		exitOnError(err)
		p := resp.Playlist
		fmt.Printf("\n=== %s (%d tracks, %s) ===\n", p.Name, len(p.Tracks), p.TotalDuration())
		for i := range p.Tracks {
			fmt.Printf("%3d. %s\n", i, p.Tracks[i].Track.String())
		}
		fmt.Println()
	case plAddCmd.FullCommand():
		resp, err := playlistClient.AddTrack(ctx, &apiconnect.AddPlaylistTrackRequest{ID: *plAddID, TrackID: *plAddTrack})
		exitOnError(err)
		fmt.Printf("Playlist %s now has %d tracks\n", resp.Playlist.Name, len(resp.Playlist.Tracks))
	case plImportCmd.FullCommand():
		resp, err := playlistClient.Import(ctx, *plImportID, *plImportSource)
		exitOnError(err)
		fmt.Printf("Imported %d tracks\n", resp.Count)
	case meCmd.FullCommand():
		resp, err := playlistClient.GetMe(ctx)
		exitOnError(err)
		fmt.Printf("%s <%s> role=%s id=%s\n", resp.User.Name, resp.User.Email, resp.User.Role, resp.User.ID)
	}
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	if code := apiconnect.DenyCode(err); code != "" {
		fmt.Printf("Rejected [%s]: %v\n", code, err)
	} else {
		fmt.Printf("Error: %v\n", err)
	}
	os.Exit(1)
}

func enqueue(ctx context.Context, client *apiconnect.QueueClient) {
	resp, err := client.Enqueue(ctx, &apiconnect.EnqueueRequest{TrackID: *enqueueTrack, Notes: *enqueueNotes})
	exitOnError(err)
	fmt.Printf("Queued at position %d: %s (entry %s)\n", resp.Entry.Position, resp.Entry.Track.String(), resp.Entry.ID)
}

func search(ctx context.Context, client *apiconnect.QueueClient) {
	resp, err := client.Search(ctx, strings.Join(*searchQuery, " "), *searchLimit)
	exitOnError(err)
	for _, t := range resp.Tracks {
		fmt.Printf("%s  %s (%s)\n", t.SpotifyID, t.String(), t.Duration())
	}
}

func history(ctx context.Context, client *apiconnect.QueueClient) {
	resp, err := client.GetHistory(ctx, *historyLimit)
	exitOnError(err)
	fmt.Printf("\n=== HISTORY (%d) ===\n", len(resp.Entries))
	for _, h := range resp.Entries {
		state := "played"
		if h.WasSkipped {
			state = "skipped"
			if h.SkipReason != "" {
				state += ": " + h.SkipReason
			}
		}
		fmt.Printf("%s  %s [%s] by %s\n", h.PlayedAt.Format("15:04:05"), h.Track.String(), state, h.AddedBy)
	}
	fmt.Println()
}

func view(ctx context.Context, client *apiconnect.QueueClient) {
	v, err := client.View(ctx)
	exitOnError(err)
	printNowPlaying(v.NowPlaying)
	printEntries("USER QUEUE", v.UserQueue)
	fmt.Printf("=== SYSTEM QUEUE (%d) ===\n", len(v.SystemQueue))
	for i := range v.SystemQueue {
		fmt.Printf("%3d. %s\n", i, v.SystemQueue[i].String())
	}
	if !v.SyncedAt.IsZero() {
		fmt.Printf("\nSynced at %s\n", v.SyncedAt.Format("15:04:05"))
	}
	fmt.Println()
}

func devices(ctx context.Context, client *apiconnect.QueueClient) {
	resp, err := client.Devices(ctx)
	exitOnError(err)
	for _, d := range resp.Devices {
		active := ""
		if d.IsActive {
			active = " (active)"
		}
		fmt.Printf("%s  %s [%s] volume=%d%%%s\n", d.ID, d.Name, d.Type, d.VolumePercent, active)
	}
}

func listPlaylists(ctx context.Context, client *apiconnect.PlaylistClient) {
	var (
		resp *apiconnect.PlaylistsResponse
		err  error
	)
	if *plListPublic {
		resp, err = client.ListPublic(ctx)
	} else {
		resp, err = client.ListMine(ctx)
	}
	exitOnError(err)
	for _, p := range resp.Playlists {
		visibility := "private"
		if p.IsPublic {
			visibility = "public"
		}
		fmt.Printf("%s  %s (%d tracks, %s)\n", p.ID, p.Name, len(p.Tracks), visibility)
	}
}

func printEntries(title string, entries []queue.Entry) {
	fmt.Printf("\n=== %s (%d) ===\n", title, len(entries))
	for _, e := range entries {
		marker := "  "
		if e.Status == queue.StatusPlaying {
			marker = "▶ "
		}
		fmt.Printf("%s%3d. %s by %s (%s)\n", marker, e.Position, e.Track.String(), e.AddedBy, e.ID)
	}
	fmt.Println()
}

func printNowPlaying(np *queue.NowPlaying) {
	if np == nil {
		fmt.Println("\nNothing playing")
		return
	}
	state := "playing"
	if !np.IsPlaying {
		state = "paused"
	}
	fmt.Printf("\nNow %s: %s [%s / %s] on %s\n", state, np.Track.String(),
		msString(np.ProgressMs), np.Track.Duration(), np.Device.Name)
}

func msString(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Truncate(time.Second).String()
}

func watch(ctx context.Context, client *apiconnect.QueueClient) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.Watch(ctx)
	exitOnError(err)
	defer stream.Close()

	fmt.Println("Watching for changes. Press Ctrl+C to exit.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nStopping...")
		cancel()
	}()

	for stream.Receive() {
		printEvent(stream.Msg())
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printEvent(ev *notification.Event) {
	fmt.Printf("[%d] %s %s", ev.SequenceNo, ev.At.Format("15:04:05"), ev.Type)
	if ev.Reason != "" {
		fmt.Printf(" reason=%s", ev.Reason)
	}
	if ev.SubjectID != "" {
		fmt.Printf(" subject=%s", ev.SubjectID)
	}
	fmt.Println()
}
