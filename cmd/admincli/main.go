// Package main provides the admin CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/19queue/internal/api/connect"
	"github.com/osa030/19queue/internal/domain/queue"
	"github.com/osa030/19queue/internal/domain/track"
	"github.com/osa030/19queue/internal/domain/user"
)

// set records which settings flags were given.
var set struct {
	maxQueueSize, allowDups, dupThreshold, autoSkip, maxDuration, paused, locked bool
}

var (
	app    = kingpin.New("19queue-admincli", "19queue admin client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()
	actor  = app.Flag("as", "Admin email recorded as the actor").Envar("ADMIN_EMAIL").String()

	settingsCmd = app.Command("settings", "Queue settings")

	settingsGetCmd = settingsCmd.Command("get", "Show current settings").Default()

	settingsInitCmd = settingsCmd.Command("init", "Create settings from server defaults if missing")

	settingsUpdateCmd  = settingsCmd.Command("update", "Update settings")
	updateMaxQueueSize = settingsUpdateCmd.Flag("max-queue-size", "Maximum pending entries").Action(mark(&set.maxQueueSize)).Int()
	updateAllowDups    = settingsUpdateCmd.Flag("allow-duplicates", "Allow live duplicates").Action(mark(&set.allowDups)).Bool()
	updateDupThreshold = settingsUpdateCmd.Flag("duplicate-threshold", "Minutes a played track stays blocked").Action(mark(&set.dupThreshold)).Int()
	updateAutoSkip     = settingsUpdateCmd.Flag("auto-skip-threshold", "Skip votes before auto skip").Action(mark(&set.autoSkip)).Int()
	updateMaxDuration  = settingsUpdateCmd.Flag("max-song-duration", "Longest accepted track in ms (0 disables)").Action(mark(&set.maxDuration)).Int64()
	updateRestricted   = settingsUpdateCmd.Flag("restricted", "Restricted user (repeatable; 'none' clears)").Strings()
	updatePaused       = settingsUpdateCmd.Flag("paused", "Pause or resume the queue").Action(mark(&set.paused)).Bool()
	updateLocked       = settingsUpdateCmd.Flag("locked", "Lock or unlock the queue").Action(mark(&set.locked)).Bool()

	// transition command
	transitionCmd    = app.Command("transition", "Change an entry's status")
	transitionID     = transitionCmd.Arg("entry-id", "Entry ID").Required().String()
	transitionStatus = transitionCmd.Arg("status", "New status").Required().Enum("playing", "played", "skipped")
	transitionReason = transitionCmd.Flag("reason", "Skip reason").String()

	// reorder command
	reorderCmd  = app.Command("reorder", "Move a pending entry")
	reorderFrom = reorderCmd.Arg("from", "Current position").Required().Int()
	reorderTo   = reorderCmd.Arg("to", "New position").Required().Int()

	// bulk command
	bulkCmd       = app.Command("bulk", "Enqueue tracks from a JSON file on behalf of a user")
	bulkFile      = bulkCmd.Arg("file", "JSON array of tracks").Required().ExistingFile()
	bulkSubmitter = bulkCmd.Flag("submitter", "Submitter email").Required().String()
	bulkClear     = bulkCmd.Flag("clear", "Remove every pending entry first").Bool()

	// users commands
	usersCmd = app.Command("users", "List users")

	roleCmd    = app.Command("role", "Change a user's role")
	roleUserID = roleCmd.Arg("user-id", "User ID").Required().String()
	roleValue  = roleCmd.Arg("role", "New role").Required().Enum("admin", "user", "guest")

	deleteUserCmd = app.Command("delete-user", "Delete a user")
	deleteUserID  = deleteUserCmd.Arg("user-id", "User ID").Required().String()

	// rules command
	rulesCmd = app.Command("rules", "List the active gate rules")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}

	opts := []connect.ClientOption{apiconnect.WithAdminToken(*token)}
	if *actor != "" {
		h := http.Header{}
		h.Set(apiconnect.UserEmailHeader, *actor)
		opts = append(opts, apiconnect.WithHeaders(h))
	}
	client := apiconnect.NewAdminClient(http.DefaultClient, *server, opts...)

	ctx := context.Background()

	switch command {
	case settingsGetCmd.FullCommand():
		getSettings(ctx, client)
	case settingsInitCmd.FullCommand():
		initSettings(ctx, client)
	case settingsUpdateCmd.FullCommand():
		updateSettings(ctx, client)
	case transitionCmd.FullCommand():
		transition(ctx, client)
	case reorderCmd.FullCommand():
		reorder(ctx, client)
	case bulkCmd.FullCommand():
		bulk(ctx, client)
	case usersCmd.FullCommand():
		listUsers(ctx, client)
	case roleCmd.FullCommand():
		updateRole(ctx, client)
	case deleteUserCmd.FullCommand():
		deleteUser(ctx, client)
	case rulesCmd.FullCommand():
		listRules(ctx, client)
	}
}

// mark returns a flag action that records the flag was given.
func mark(b *bool) kingpin.Action {
	return func(*kingpin.ParseContext) error {
		*b = true
		return nil
	}
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	if code := apiconnect.DenyCode(err); code != "" {
		fmt.Printf("Denied (%s): %v\n", code, err)
	} else {
		fmt.Printf("Error: %v\n", err)
	}
	os.Exit(1)
}

func getSettings(ctx context.Context, client *apiconnect.AdminClient) {
	resp, err := client.GetSettings(ctx)
	exitOnError(err)
	printSettings(resp.Settings)
}

func initSettings(ctx context.Context, client *apiconnect.AdminClient) {
	resp, err := client.InitializeSettings(ctx)
	exitOnError(err)
	if resp.Created {
		fmt.Println("Settings created")
	} else {
		fmt.Println("Settings already exist")
	}
	printSettings(resp.Settings)
}

func updateSettings(ctx context.Context, client *apiconnect.AdminClient) {
	var patch queue.SettingsPatch
	if set.maxQueueSize {
		patch.MaxQueueSize = updateMaxQueueSize
	}
	if set.allowDups {
		patch.AllowDuplicates = updateAllowDups
	}
	if set.dupThreshold {
		patch.DuplicateThreshold = updateDupThreshold
	}
	if set.autoSkip {
		patch.AutoSkipThreshold = updateAutoSkip
	}
	if set.maxDuration {
		patch.MaxSongDuration = updateMaxDuration
	}
	if set.paused {
		patch.IsPaused = updatePaused
	}
	if set.locked {
		patch.IsLocked = updateLocked
	}
	if len(*updateRestricted) > 0 {
		patch.RestrictedUsers = []string{}
		for _, u := range *updateRestricted {
			if u != "none" {
				patch.RestrictedUsers = append(patch.RestrictedUsers, u)
			}
		}
	}

	resp, err := client.UpdateSettings(ctx, &apiconnect.UpdateSettingsRequest{Patch: patch})
	exitOnError(err)
	fmt.Println("Settings updated")
	printSettings(resp.Settings)
}

func printSettings(s *queue.Settings) {
	if s == nil {
		fmt.Println("No settings")
		return
	}
	fmt.Println("\n=== QUEUE SETTINGS ===")
	fmt.Printf("Max Queue Size: %d\n", s.MaxQueueSize)
	fmt.Printf("Allow Duplicates: %v\n", s.AllowDuplicates)
	fmt.Printf("Duplicate Threshold: %d minutes\n", s.DuplicateThreshold)
	fmt.Printf("Auto Skip Threshold: %d\n", s.AutoSkipThreshold)
	fmt.Printf("Max Song Duration: %d ms\n", s.MaxSongDuration)
	fmt.Printf("Restricted Users: %v\n", s.RestrictedUsers)
	fmt.Printf("Paused: %v\n", s.IsPaused)
	fmt.Printf("Locked: %v\n", s.IsLocked)
	if s.UpdatedBy != "" {
		fmt.Printf("Updated By: %s at %s\n", s.UpdatedBy, s.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Println()
}

func transition(ctx context.Context, client *apiconnect.AdminClient) {
	resp, err := client.Transition(ctx, &apiconnect.TransitionRequest{
		ID:         *transitionID,
		Status:     queue.Status(*transitionStatus),
		SkipReason: *transitionReason,
	})
	exitOnError(err)
	if resp.Entry != nil {
		fmt.Printf("Entry %s is now %s\n", resp.Entry.ID, resp.Entry.Status)
	} else {
		fmt.Printf("Entry %s is now %s\n", *transitionID, *transitionStatus)
	}
}

func reorder(ctx context.Context, client *apiconnect.AdminClient) {
	exitOnError(client.Reorder(ctx, *reorderFrom, *reorderTo))
	fmt.Printf("Moved entry from %d to %d\n", *reorderFrom, *reorderTo)
}

func bulk(ctx context.Context, client *apiconnect.AdminClient) {
	data, err := os.ReadFile(*bulkFile)
	exitOnError(err)
	var tracks []track.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		exitOnError(fmt.Errorf("failed to parse %s: %w", *bulkFile, err))
	}

	resp, err := client.BulkEnqueue(ctx, &apiconnect.AdminBulkEnqueueRequest{
		Tracks:         tracks,
		SubmitterEmail: *bulkSubmitter,
		ClearExisting:  *bulkClear,
	})
	exitOnError(err)
	fmt.Printf("Added %d of %d tracks\n", resp.AddedCount, len(tracks))
}

func listUsers(ctx context.Context, client *apiconnect.AdminClient) {
	resp, err := client.ListUsers(ctx)
	exitOnError(err)

	fmt.Printf("\n=== USERS (%d) ===\n", len(resp.Users))
	for _, u := range resp.Users {
		fmt.Printf("%s  %-6s  %s", u.ID, u.Role, u.Email)
		if u.Name != "" {
			fmt.Printf(" (%s)", u.Name)
		}
		fmt.Println()
	}
	fmt.Println()
}

func updateRole(ctx context.Context, client *apiconnect.AdminClient) {
	resp, err := client.UpdateUserRole(ctx, &apiconnect.UpdateUserRoleRequest{
		UserID: *roleUserID,
		Role:   user.Role(*roleValue),
	})
	exitOnError(err)
	fmt.Printf("User %s is now %s\n", resp.User.Email, resp.User.Role)
}

func deleteUser(ctx context.Context, client *apiconnect.AdminClient) {
	exitOnError(client.DeleteUser(ctx, *deleteUserID))
	fmt.Println("User deleted")
}

func listRules(ctx context.Context, client *apiconnect.AdminClient) {
	resp, err := client.ListRules(ctx)
	exitOnError(err)

	fmt.Println("Active Rules:")
	for _, r := range resp.Rules {
		fmt.Printf("  %-22s - %s [codes: %s]\n", r.Name, r.Description, strings.Join(r.Codes, ", "))
	}
}
