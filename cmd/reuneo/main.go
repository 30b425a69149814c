package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ReunioOrg/reuneo/internal/app"
	"github.com/ReunioOrg/reuneo/internal/lobby"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	prefsPath := flag.String("prefs", "", "override preferences path (optional)")
	lobbyCode := flag.String("lobby", "", "lobby code to join (overrides config)")
	pollSeconds := flag.Int("poll", 0, "refresh interval in seconds (optional, defaults to 2s)")
	admin := flag.Bool("admin", false, "organizer view for the lobby")
	flag.Parse()

	// Credentials come from the environment, optionally via a .env file.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		LobbyCode:  *lobbyCode,
		Admin:      *admin,
		Credentials: lobby.Credentials{
			BearerToken:   os.Getenv("REUNEO_TOKEN"),
			SessionCookie: os.Getenv("REUNEO_COOKIE"),
		},
	}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "reuneo: %v\n", err)
		return 1
	}
	return 0
}
