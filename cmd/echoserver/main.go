// Command echoserver wires a PAIR socket pair over inproc:// and echoes
// whatever the client sends, demonstrating the library's basic
// bind/connect/send/recv flow without any real network transport.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joeycumines/scalesock"
	"github.com/joeycumines/scalesock/internal/xlog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	log := xlog.For("echoserver")

	ctx, err := scalesock.NewContext(scalesock.WithPoolSize(2))
	if err != nil {
		return fmt.Errorf("new context: %w", err)
	}
	defer ctx.Shutdown()

	server, err := scalesock.NewPairSocket(ctx)
	if err != nil {
		return fmt.Errorf("new server socket: %w", err)
	}
	defer server.Close()

	client, err := scalesock.NewPairSocket(ctx)
	if err != nil {
		return fmt.Errorf("new client socket: %w", err)
	}
	defer client.Close()

	const addr = "inproc://echo"
	if _, err := server.Bind(addr); err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	if _, err := client.Connect(addr); err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}

	go func() {
		for {
			body, err := server.Recv()
			if err != nil {
				log.Info().Err(err).Msg("server stopped")
				return
			}
			log.Debug().Str("body", string(body)).Msg("echoing")
			if err := server.Send(body, 0); err != nil {
				log.Info().Err(err).Msg("echo send failed")
				return
			}
		}
	}()

	messages := []string{"hello", "from", "scalesock"}
	for _, m := range messages {
		if err := client.Send([]byte(m), 0); err != nil {
			return fmt.Errorf("send %q: %w", m, err)
		}
		if err := client.SetOption("RCVTIMEO", 2*time.Second); err != nil {
			return fmt.Errorf("set RCVTIMEO: %w", err)
		}
		reply, err := client.Recv()
		if err != nil {
			return fmt.Errorf("recv reply to %q: %w", m, err)
		}
		fmt.Printf("client received: %s\n", reply)
	}

	return nil
}
