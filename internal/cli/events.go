package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-swift/internal/cli/ui"
	"github.com/teslashibe/go-swift/pkg/assistant"
	"github.com/teslashibe/go-swift/pkg/client"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream pipeline events from the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return tailEvents(ctx, newAPI().EventsURL(), printEvent)
	},
}

// tailEvents reads events from the feed at url until ctx ends or the
// server closes the connection.
func tailEvents(ctx context.Context, url string, handle func(assistant.Event)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		// Unblocks ReadMessage; errors are irrelevant once we are leaving.
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}

		var ev assistant.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			ui.PrintError("bad event: %v", err)
			continue
		}
		handle(ev)
	}
}

func printEvent(ev assistant.Event) {
	line := fmt.Sprintf("%s %s %s",
		ev.Time.Format("15:04:05.000"),
		ui.Styles.Stage.Render(fmt.Sprintf("%-16s", ev.Stage)),
		ev.RequestID)

	switch {
	case ev.Error != "":
		line += " " + ui.Styles.Error.Render("error: "+ev.Error)
	case ev.Latencies != nil:
		line += " " + client.FormatLatencies(&client.Latencies{Latencies: *ev.Latencies, Total: ev.Latencies.Total()})
	case ev.Response != "":
		line += " " + ev.Response
	case ev.Transcript != "":
		line += " " + ev.Transcript
	}
	fmt.Println(line)
}
