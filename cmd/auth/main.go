// Package main provides the authentication tool: Spotify login for the
// playback account and development tokens for API callers.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/19queue/internal/infra/spotify"
	"github.com/osa030/19queue/internal/infra/token"
)

var (
	app = kingpin.New("19queue-auth", "Authentication tool for 19queue")

	spotifyCmd   = app.Command("spotify", "Obtain a Spotify refresh token for the playback account").Default()
	clientID     = spotifyCmd.Flag("client-id", "Spotify Client ID").Envar("SPOTIFY_CLIENT_ID").Required().String()
	clientSecret = spotifyCmd.Flag("client-secret", "Spotify Client Secret").Envar("SPOTIFY_CLIENT_SECRET").Required().String()
	port         = spotifyCmd.Flag("port", "Callback server port").Default("8888").Int()
	timeout      = spotifyCmd.Flag("timeout", "How long to wait for the browser login").Default("5m").Duration()

	tokenCmd    = app.Command("token", "Mint a bearer token for a user")
	tokenEmail  = tokenCmd.Arg("email", "User email").Required().String()
	tokenName   = tokenCmd.Flag("name", "Display name").String()
	tokenSecret = tokenCmd.Flag("secret", "Signing secret").Envar("JWT_SECRET").Required().String()
	tokenTTL    = tokenCmd.Flag("ttl", "Token lifetime").Default("720h").Duration()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	var err error
	switch kingpin.MustParse(app.Parse(os.Args[1:])) {
	case spotifyCmd.FullCommand():
		err = spotifyLogin()
	case tokenCmd.FullCommand():
		err = mintToken()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func mintToken() error {
	signer, err := token.NewSigner(*tokenSecret, *tokenTTL)
	if err != nil {
		return err
	}
	raw, err := signer.Issue(token.Identity{Email: *tokenEmail, Name: *tokenName})
	if err != nil {
		return err
	}
	fmt.Println(raw)
	return nil
}

type loginResult struct {
	token *oauth2.Token
	err   error
}

// spotifyLogin runs the authorization code flow for the playback scopes and
// prints the refresh token the server needs.
func spotifyLogin() error {
	state := "19queue-" + uuid.NewString()
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(fmt.Sprintf("http://127.0.0.1:%d/callback", *port)),
		spotifyauth.WithClientID(*clientID),
		spotifyauth.WithClientSecret(*clientSecret),
		spotifyauth.WithScopes(spotify.Scopes...),
	)

	results := make(chan loginResult, 1)
	// only the first outcome matters
	report := func(r loginResult) {
		select {
		case results <- r:
		default:
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("state") != state {
			http.Error(w, "state mismatch", http.StatusForbidden)
			return
		}
		tok, err := auth.Token(r.Context(), state, r)
		if err != nil {
			http.Error(w, "token exchange failed", http.StatusForbidden)
			report(loginResult{err: fmt.Errorf("token exchange failed: %w", err)})
			return
		}
		fmt.Fprintln(w, "19queue: playback account linked. You can close this tab.")
		report(loginResult{token: tok})
	})

	server := &http.Server{Addr: fmt.Sprintf(":%d", *port), Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			report(loginResult{err: fmt.Errorf("callback server: %w", err)})
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}()

	fmt.Println("Sign in with the account whose player 19queue should follow:")
	fmt.Println()
	fmt.Println(auth.AuthURL(state))
	fmt.Println()

	var res loginResult
	select {
	case res = <-results:
	case <-time.After(*timeout):
		return fmt.Errorf("no login within %s", *timeout)
	}
	if res.err != nil {
		return res.err
	}

	fmt.Println("Set the refresh token in config/server.yaml (spotify.refresh_token)")
	fmt.Println("or export it before starting 19queue-server:")
	fmt.Println()
	fmt.Printf("export SPOTIFY_REFRESH_TOKEN=%q\n", res.token.RefreshToken)
	return nil
}
