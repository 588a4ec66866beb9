// streamtest connects to the Bitfinex WebSocket feed and prints decoded
// messages to the console. Nothing is written to disk.
// Usage: go run ./cmd/streamtest --symbols tBTCUSD,tETHUSD
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/bitfinex-recorder/internal/config"
	"github.com/rickgao/bitfinex-recorder/internal/connection"
	"github.com/rickgao/bitfinex-recorder/internal/protocol"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	symbols := flag.String("symbols", "tBTCUSD", "comma-separated instruments, ignored when the config names some")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Input.InstrumentsPath == "" && len(cfg.Input.Instruments) == 0 {
		cfg.Input.Instruments = strings.Split(*symbols, ",")
	}
	instruments, err := cfg.Instruments()
	if err != nil {
		logger.Error("failed to load instruments", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	client := connection.NewClient(connection.ClientConfig{
		URL:              cfg.Feed.WSURL,
		HandshakeTimeout: cfg.Feed.HandshakeTimeout,
		WriteTimeout:     cfg.Feed.WriteTimeout,
		BufferSize:       cfg.Feed.BufferSize,
	}, logger)

	if err := client.Connect(ctx); err != nil {
		logger.Error("failed to connect", "url", cfg.Feed.WSURL, "error", err)
		os.Exit(1)
	}
	defer client.Close()

	for _, symbol := range instruments {
		if err := client.Send(protocol.SubscribeRequest(cfg.Feed.Channel, symbol)); err != nil {
			logger.Error("failed to subscribe", "symbol", symbol, "error", err)
			os.Exit(1)
		}
	}

	logger.Info("streaming started - press Ctrl+C to stop", "instruments", len(instruments))

	var received, decodeErrors int
	stats := time.NewTicker(10 * time.Second)
	defer stats.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown complete", "received", received, "decode_errors", decodeErrors)
			return

		case err := <-client.Errors():
			logger.Error("connection error", "error", err)
			return

		case <-stats.C:
			logger.Info("stats", "received", received, "decode_errors", decodeErrors)

		case frame := <-client.Messages():
			received++
			if frame.Binary {
				continue
			}
			msg, err := protocol.Decode(frame.Data)
			if err != nil {
				decodeErrors++
				logger.Warn("failed to decode message", "error", err, "raw", string(frame.Data))
				continue
			}
			printMessage(msg, *verbose)
		}
	}
}

func printMessage(m protocol.Message, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(m, "", "  ")
		fmt.Printf("[%T] %s\n", m, data)
		return
	}

	switch msg := m.(type) {
	case protocol.Subscribed:
		fmt.Printf("[SUBSCRIBED] channel=%s symbol=%s pair=%s chan_id=%d\n",
			msg.Channel, msg.Symbol, msg.Pair, msg.ChanID)
	case protocol.Snapshot:
		fmt.Printf("[SNAPSHOT] chan_id=%d updates=%d\n", msg.ChanID, len(msg.Updates))
	case protocol.TradeUpdate:
		fmt.Printf("[TRADE %s] chan_id=%d id=%d mts=%d amount=%g price=%g\n",
			strings.ToUpper(msg.Kind), msg.ChanID, msg.Update.ID, msg.Update.MTS, msg.Update.Amount, msg.Update.Price)
	case protocol.HeartBeat:
		fmt.Printf("[HEARTBEAT] chan_id=%d\n", msg.ChanID)
	case protocol.Info:
		fmt.Printf("[INFO] version=%d server_id=%s status=%d\n", msg.Version, msg.ServerID, msg.PlatformStatus)
	case protocol.Error:
		fmt.Printf("[ERROR] code=%d msg=%s\n", msg.Code, msg.Msg)
	default:
		fmt.Printf("[%T] %+v\n", m, m)
	}
}
