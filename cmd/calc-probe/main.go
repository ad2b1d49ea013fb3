// Command calc-probe submits a synthetic calculation event to a running
// server and verifies the recommendation becomes visible via the API.
//
// Usage:
//
//	calc-probe -base-url http://localhost:8080 -account acc-probe
//
// Exit codes: 0 = record visible, 1 = error or timeout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heartmarshall/nba-backend/internal/calcprobe"
)

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080", "server base URL")
	source := flag.String("source", "calcprobe", "event source name")
	definition := flag.String("definition", "def-probe", "nba definition id")
	account := flag.String("account", "acc-probe", "account id to target")
	timeout := flag.Duration("timeout", 30*time.Second, "how long to wait for the record")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	probe := calcprobe.New(logger, calcprobe.Config{
		BaseURL:         *baseURL,
		Source:          *source,
		NbaDefinitionID: *definition,
		AccountID:       *account,
		PollTimeout:     *timeout,
	})

	report, err := probe.Run(ctx)
	if err != nil {
		log.Fatalf("calc-probe: %v", err)
	}

	fmt.Printf("ok: event %s created %s (pages walked: %d)\n", report.EventID, report.NbaID, report.PagesWalked)
}
