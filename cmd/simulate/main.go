// Command simulate runs headless ad-view sessions against a running API
// server. Useful for smoke-testing the full claim pipeline without a
// browser player: it watches, verifies and claims just like the UI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/watchearn/watchearn/internal/ads"
	"github.com/watchearn/watchearn/internal/auth"
	"github.com/watchearn/watchearn/internal/ledger"
	"github.com/watchearn/watchearn/internal/session"
	"github.com/watchearn/watchearn/internal/verify"
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "API server base URL")
		userID   = flag.String("user", "", "user UUID (random if empty)")
		email    = flag.String("email", "viewer@watchearn.example", "email claim for the signed token")
		secret   = flag.String("secret", os.Getenv("JWT_ACCESS_SECRET"), "JWT access secret")
		issuer   = flag.String("issuer", "watchearn", "JWT issuer claim")
		sessions = flag.Int("sessions", 1, "number of watch sessions to run")
		speedup  = flag.Int("speedup", 10, "playback speed multiplier")
	)
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "a JWT secret is required (-secret or JWT_ACCESS_SECRET)")
		os.Exit(1)
	}
	if *userID == "" {
		*userID = uuid.NewString()
	}
	if *speedup < 1 {
		*speedup = 1
	}

	token, err := auth.NewJWTManager(*secret, *issuer).SignAccessToken(*userID, *email, time.Hour)
	if err != nil {
		slog.Error("signing token", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	verifier := verify.NewClient(*baseURL, 10*time.Second, 1)
	ledgerClient := ledger.NewClient(*baseURL, token, 10*time.Second)

	coord := session.New(session.Config{
		UserID:   *userID,
		Catalog:  ads.DefaultCatalog(),
		Verifier: verifier,
		Ledger:   ledgerClient,
		NewPlayback: func(ad ads.Ad) session.Playback {
			d := time.Duration(ad.Duration) * time.Second / time.Duration(*speedup)
			return session.NewTimedPlayback(d)
		},
		Interval:  100 * time.Millisecond,
		Threshold: 0.90,
	})
	defer coord.Shutdown()

	total := 0
	for i := 0; i < *sessions; i++ {
		coord.LoadLimit(ctx)
		limit := coord.Limit()
		fmt.Printf("session %d/%d: viewed %d/%d today, next reward %d points\n",
			i+1, *sessions, limit.ViewedCount, limit.MaxDaily, coord.NextReward())

		if err := coord.StartWatching(); err != nil {
			fmt.Printf("  cannot start: %v\n", err)
			break
		}

		ad := coord.Ad()
		fmt.Printf("  watching %q (%ds, %s)\n", ad.Title, ad.Duration, ad.Provider)

		watchCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		err := coord.WaitForCompletion(watchCtx)
		cancel()
		if err != nil {
			slog.Error("waiting for completion", "error", err)
			os.Exit(1)
		}

		result, err := coord.Claim(ctx)
		if err != nil {
			fmt.Printf("  claim failed: %v\n", err)
			coord.Close()
			continue
		}
		if result.Success {
			total += result.PointsEarned
			fmt.Printf("  credited %d points\n", result.PointsEarned)
		} else {
			fmt.Printf("  rejected: %s\n", result.Message)
		}
	}

	fmt.Printf("done: %d points earned this run\n", total)
}
