package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/notes/pkg/adapters/ws"
	"github.com/aretw0/notes/pkg/watch"
)

var (
	watchHost    string
	watchTimeout time.Duration
	watchJSON    bool
)

// watchCmd groups the companion-side commands.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Act as a paired companion of a serving host",
}

func hostURL() string {
	if watchHost != "" {
		return watchHost
	}
	return "ws://" + cfg.Listen + WatchPath
}

// withSession pairs with the host, runs fn and tears the pairing down.
func withSession(fn func(ctx context.Context, s *watch.Session) error) {
	codec, err := watch.CodecByName(cfg.Codec)
	if err != nil {
		fatal("Invalid codec", err)
	}

	url := hostURL()
	pairing := watch.NewPairing(func(ctx context.Context) (watch.ChannelCloser, error) {
		return ws.Dial(ctx, url, ws.WithCodec(codec), ws.WithLogger(slog.Default()))
	})
	if prev := watch.SetDefaultPairing(pairing); prev != nil {
		_ = prev.Close()
	}
	defer pairing.Close()

	ctx, cancel := context.WithTimeout(context.Background(), watchTimeout)
	defer cancel()

	s := watch.NewSession(watch.DefaultPairing(), watch.WithSessionLogger(slog.Default()))
	if err := fn(ctx, s); err != nil {
		fatal("Request failed", err)
	}
}

func printSummaries(list []watch.Summary) {
	if watchJSON {
		type item struct {
			Name string `json:"name"`
			URL  string `json:"url,omitempty"`
		}
		items := make([]item, 0, len(list))
		for _, s := range list {
			items = append(items, item{Name: s.Name, URL: s.Locator()})
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(items); err != nil {
			fatal("Failed to encode JSON", err)
		}
		return
	}
	for _, s := range list {
		fmt.Printf("%s\t%s\n", s.Name, s.Locator())
	}
}

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the host's notes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withSession(func(ctx context.Context, s *watch.Session) error {
			list, err := s.ListNotes(ctx)
			if err != nil {
				return err
			}
			printSummaries(list)
			return nil
		})
	},
}

var watchLoadCmd = &cobra.Command{
	Use:   "load [url]",
	Short: "Print the text of a host note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withSession(func(ctx context.Context, s *watch.Session) error {
			text, err := s.LoadNote(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		})
	},
}

var watchCreateCmd = &cobra.Command{
	Use:   "create [text]",
	Short: "Create a note on the host",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withSession(func(ctx context.Context, s *watch.Session) error {
			list, err := s.CreateNote(ctx, args[0])
			if err != nil {
				return err
			}
			printSummaries(list)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.AddCommand(watchListCmd, watchLoadCmd, watchCreateCmd)
	watchCmd.PersistentFlags().StringVar(&watchHost, "host", "", "Host endpoint (default ws://<listen>/watch)")
	watchCmd.PersistentFlags().DurationVar(&watchTimeout, "timeout", 10*time.Second, "Request timeout")
	watchCmd.PersistentFlags().BoolVar(&watchJSON, "json", false, "Output in JSON format")
}
