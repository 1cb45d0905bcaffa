package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/dashboard"
)

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// statusLine renders one terminal line for a snapshot.
func statusLine(s dashboard.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-7s", s.State)
	if s.Current == nil {
		b.WriteString(" no reading yet")
	} else {
		c := s.Current
		fmt.Fprintf(&b, " temp=%.1f°C hum=%.1f%% moist=%.1f%% pH=%.2f at %s",
			c.Temperature, c.Humidity, c.Moisture, c.PH,
			time.UnixMilli(c.CreatedAt).UTC().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "  history=%d (%s)", len(s.History), s.Range)
	if s.Reason != dashboard.ReasonNone {
		fmt.Fprintf(&b, " [%s]", s.Reason)
	}
	return b.String()
}

type command struct {
	name string
	arg  string
}

func parseCommand(line string) (command, bool) {
	f := strings.Fields(strings.ToLower(line))
	if len(f) == 0 {
		return command{}, false
	}
	switch f[0] {
	case "hide", "show", "quit", "q":
		return command{name: f[0]}, true
	case "range", "r":
		if len(f) < 2 {
			return command{}, false
		}
		return command{name: "range", arg: f[1]}, true
	}
	return command{}, false
}

func readCommands(ctx context.Context, in io.Reader, session *dashboard.Session, tracker *dashboard.Tracker, quit func()) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		cmd, ok := parseCommand(sc.Text())
		if !ok {
			fmt.Println("commands: show | hide | range <1h|6h|24h|7d> | quit")
			continue
		}
		switch cmd.name {
		case "show":
			tracker.SetVisible(true)
		case "hide":
			tracker.SetVisible(false)
		case "range":
			go func(rng string) {
				if err := session.SelectRange(ctx, rng); err != nil {
					log.Printf("dashboard: %v", err)
				}
			}(cmd.arg)
		case "quit", "q":
			quit()
			return
		}
	}
}

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api-url", env("API_URL", "http://localhost:8080"), "sensor-data API base URL")
	interval := flag.Duration("interval", dashboard.DefaultPollInterval, "latest-reading poll interval")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	rng := flag.String("range", dashboard.DefaultRange, "initial history range (1h, 6h, 24h, 7d)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := dashboard.NewClient(*apiURL, *timeout)
	session := dashboard.NewSession(client)
	tracker := dashboard.NewTracker(client, session,
		dashboard.WithInterval(*interval),
		dashboard.WithRequestTimeout(*timeout),
	)

	var mu sync.Mutex
	last := ""
	session.OnChange(func(s dashboard.Snapshot) {
		line := statusLine(s)
		mu.Lock()
		defer mu.Unlock()
		if line != last {
			fmt.Println(line)
			last = line
		}
	})

	if err := session.SelectRange(ctx, *rng); err != nil {
		log.Printf("dashboard: %v", err)
	}
	tracker.SetVisible(true)
	go readCommands(ctx, os.Stdin, session, tracker, stop)

	// SIGUSR1 plays the role of the page becoming hidden or visible again.
	toggle := make(chan os.Signal, 1)
	signal.Notify(toggle, syscall.SIGUSR1)
	visible := true
	for {
		select {
		case <-ctx.Done():
			tracker.Stop()
			log.Println("dashboard: stopped")
			return
		case <-toggle:
			visible = !visible
			tracker.SetVisible(visible)
			log.Printf("dashboard: visible=%t", visible)
		}
	}
}
