package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TsegabAbreham/MovieApp/internal/client"
	"github.com/TsegabAbreham/MovieApp/internal/log"
	"github.com/TsegabAbreham/MovieApp/internal/proto"
)

var (
	flagURL       string
	flagRoom      string
	flagUsername  string
	flagEmbedBase string
	flagStartIn   time.Duration
	flagSeason    string
	flagEpisode   int
	flagLogLevel  string
)

// terminalPlayer stands in for the browser embed: it prints the source URL
// the embed would reload with.
type terminalPlayer struct{}

func (terminalPlayer) Reload(src string) {
	fmt.Printf("player reload: %s\n", src)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roomcli",
		Short: "Join a watch-together room from the terminal",
		Long: `roomcli joins a watch-together room on the relay, prints membership and
playback events, and - when this client is the host - can schedule a
synchronized start with --start-in.`,
		RunE: run,
	}

	cmd.Flags().StringVar(&flagURL, "url", "ws://localhost:8080/ws", "relay WebSocket endpoint")
	cmd.Flags().StringVar(&flagRoom, "room", "", "room code (a fresh one is generated when empty)")
	cmd.Flags().StringVar(&flagUsername, "username", "Guest", "display name")
	cmd.Flags().StringVar(&flagEmbedBase, "embed", "https://vidsrc.example/embed/tv", "player embed base URL")
	cmd.Flags().DurationVar(&flagStartIn, "start-in", 0, "schedule a synchronized start this far in the future (host only)")
	cmd.Flags().StringVar(&flagSeason, "season", "", "season selector for --start-in")
	cmd.Flags().IntVar(&flagEpisode, "episode", 0, "episode selector for --start-in")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	logger := log.New(flagLogLevel)

	room := flagRoom
	if room == "" {
		room = client.NewRoomCode()
		fmt.Printf("room code: %s (share it to invite others)\n", room)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hostCh := make(chan bool, 1)

	c := client.New(client.Options{
		URL:       flagURL,
		Room:      room,
		Username:  flagUsername,
		EmbedBase: flagEmbedBase,
		Player:    terminalPlayer{},
		Logger:    logger,
		Handlers: client.Handlers{
			OnHost: func(isHost bool) {
				select {
				case hostCh <- isHost:
				default:
				}
				role := "participant"
				if isHost {
					role = "host"
				}
				fmt.Printf("role: %s\n", role)
			},
			OnPresence: func(participants []proto.Participant, hostID string) {
				fmt.Printf("presence (%d):\n", len(participants))
				for _, p := range participants {
					marker := ""
					if p.ClientID == hostID {
						marker = " (host)"
					}
					fmt.Printf("  %s%s\n", p.Username, marker)
				}
			},
			OnUserJoined: func(_, username string) {
				fmt.Printf("%s joined\n", username)
			},
			OnUserLeft: func(clientID string) {
				fmt.Printf("%s left\n", clientID)
			},
			OnStart: func(f proto.Start) {
				fmt.Printf("start scheduled at %s\n", time.UnixMilli(f.StartAt).Format(time.RFC3339))
			},
			OnCountdownTick: func(remaining time.Duration) {
				if remaining > 0 && remaining.Truncate(time.Second) == remaining {
					fmt.Printf("starting in %s\n", remaining)
				}
			},
			OnControl: func(frameType string, raw json.RawMessage) {
				fmt.Printf("control: %s %s\n", frameType, raw)
			},
			OnDisconnect: func(err error) {
				if err != nil {
					fmt.Printf("disconnected: %v\n", err)
				}
			},
		},
	})

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.Connect(dialCtx); err != nil {
		return err
	}
	defer c.Close()

	runErr := make(chan error, 1)
	go func() {
		runErr <- c.Run(ctx)
	}()

	if flagStartIn > 0 {
		select {
		case isHost := <-hostCh:
			if !isHost {
				fmt.Println("not the host, ignoring --start-in")
			} else if err := c.Start(ctx, flagStartIn, flagSeason, flagEpisode); err != nil {
				return fmt.Errorf("schedule start: %w", err)
			}
		case <-time.After(5 * time.Second):
			fmt.Println("no host reply from relay, ignoring --start-in")
		case <-ctx.Done():
			return nil
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-runErr:
		return err
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
