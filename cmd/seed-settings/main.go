// seed-settings provisions the singleton settings row with its documented
// defaults and creates the default operator account (username: boxtrackAdmin).
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-settings
//
// Override the operator password with SEED_ADMIN_PASSWORD.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/boxworkshq/boxtrack_backend/config"
	"github.com/boxworkshq/boxtrack_backend/models"
)

const (
	adminUsername = "boxtrackAdmin"
	adminName     = "BoxTrack Admin"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	models.MigrateTable()

	settings, err := models.FetchSettings(ctx, db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to provision settings: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("settings row ready (id=%d, gross_margin_pct=%s)\n", settings.ID, settings.GrossMarginPct)

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "default123"
	}
	user, err := models.CreateDefaultUser(db, ctx, adminUsername, adminName, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to provision operator account: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("operator account ready (id=%d, username=%s)\n", user.ID, user.Username)
}
