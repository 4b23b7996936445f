// voicepipe is a demo CLI around the streaming audio pipeline: it
// selects input/output devices, builds a SelfListen or P2P pipeline,
// and runs until interrupted.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/p2p-voice/voicepipe/internal/audio"
	"github.com/p2p-voice/voicepipe/internal/pipeline"
)

type cliConfig struct {
	Mode         string
	InputDevice  string
	OutputDevice string
	LocalPort    int
	PeerEndpoint string
}

func parseFlags() (*cliConfig, error) {
	cfg := &cliConfig{}
	flag.StringVar(&cfg.Mode, "mode", "selflisten", "pipeline shape: selflisten or p2p")
	flag.StringVar(&cfg.InputDevice, "input-device", "", "substring match for the capture device name (default device if empty)")
	flag.StringVar(&cfg.OutputDevice, "output-device", "", "substring match for the playback device name (default device if empty)")
	flag.IntVar(&cfg.LocalPort, "local-port", 4000, "UDP port to bind for p2p mode")
	flag.StringVar(&cfg.PeerEndpoint, "peer", "127.0.0.1:4000", "peer host:port to send Opus packets to in p2p mode")
	flag.Parse()

	switch cfg.Mode {
	case "selflisten", "p2p":
	default:
		return nil, fmt.Errorf("unknown mode %q: want selflisten or p2p", cfg.Mode)
	}
	return cfg, nil
}

func selectDevice(ctx *audio.Context, deviceType malgo.DeviceType, match string) (audio.Device, error) {
	if match == "" {
		return audio.Device{}, nil
	}
	devices, err := ctx.Devices(deviceType)
	if err != nil {
		return audio.Device{}, err
	}
	for _, d := range devices {
		if strings.Contains(d.Name, match) {
			return d, nil
		}
	}
	return audio.Device{}, fmt.Errorf("no device matching %q", match)
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	log.Println("voicepipe starting...")

	ctx, err := audio.NewContext()
	if err != nil {
		log.Fatalf("failed to initialize audio context: %v", err)
	}
	defer ctx.Close()

	inDevice, err := selectDevice(ctx, malgo.Capture, cfg.InputDevice)
	if err != nil {
		log.Fatalf("input device selection failed: %v", err)
	}
	outDevice, err := selectDevice(ctx, malgo.Playback, cfg.OutputDevice)
	if err != nil {
		log.Fatalf("output device selection failed: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var closePipeline func()

	switch cfg.Mode {
	case "selflisten":
		p, err := pipeline.NewSelfListen(ctx, inDevice, outDevice)
		if err != nil {
			log.Fatalf("failed to start self-listen pipeline: %v", err)
		}
		log.Println("self-listen pipeline running (Ctrl+C to quit)")
		closePipeline = p.Close

	case "p2p":
		p, err := pipeline.NewP2P(ctx, inDevice, outDevice, cfg.LocalPort, cfg.PeerEndpoint)
		if err != nil {
			log.Fatalf("failed to start p2p pipeline: %v", err)
		}
		log.Printf("p2p pipeline running: local port %d, peer %s (Ctrl+C to quit)", p.LocalPort(), cfg.PeerEndpoint)
		closePipeline = p.Close
	}

	<-sigChan
	log.Println("shutting down...")

	done := make(chan struct{})
	go func() {
		closePipeline()
		close(done)
	}()

	select {
	case <-done:
		log.Println("shutdown complete")
	case <-time.After(5 * time.Second):
		log.Println("shutdown timeout, forcing exit")
	}
}

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)
}
