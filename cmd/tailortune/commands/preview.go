package commands

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/tailortune/internal/audio"
	"github.com/satindergrewal/tailortune/internal/stream"
)

var previewPort int

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Serve and stream the generated tracks",
	Long: `Serve the output tree over HTTP and stream every generated track in a
continuous crossfaded loop.

Routes:
  GET  /api/users           manifests of every generated track
  GET  /api/users/{id}      one manifest
  GET  /api/status          now playing and listener counts
  POST /api/skip            skip to the next track
  GET  /users/{id}/{file}   music.wav, spectrogram.png, preferences.png, track.json
  GET  /stream              MP3 stream
  POST /offer               WebRTC SDP offer, answered with an Opus stream

ffmpeg must be on PATH.

Example:
  tailortune preview --out output --port 8090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if outDir != "" {
			cfg.OutputDir = outDir
		}
		if previewPort != 0 {
			cfg.PreviewPort = previewPort
		}

		pipeline := audio.NewPipeline(cfg.PreviewCrossfade, log)
		go pipeline.Run(ctx)

		broadcaster := stream.NewBroadcaster()
		go broadcaster.Run(ctx, pipeline.Frames())

		playlist := stream.NewPlaylist(cfg.OutputDir, pipeline, stream.PlaylistConfig{
			BufferAhead:  2,
			PollInterval: 2 * time.Second,
		}, log)
		go playlist.Run(ctx)

		srv := stream.NewServer(stream.ServerConfig{
			Root:     cfg.OutputDir,
			Player:   pipeline,
			Playlist: playlist,
			HTTP:     stream.NewHTTPHandler(broadcaster, log),
			WebRTC:   stream.NewWebRTCHandler(broadcaster, log),
			Logger:   log,
		})

		addr := fmt.Sprintf(":%d", cfg.PreviewPort)
		server := &http.Server{Addr: addr, Handler: srv}

		go func() {
			<-ctx.Done()
			log.Info("Shutting down...")
			server.Close()
		}()

		log.Info("Preview live", "addr", addr, "root", cfg.OutputDir)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVar(&outDir, "out", "", "output root to serve (default $TAILORTUNE_OUTPUT_DIR)")
	previewCmd.Flags().IntVar(&previewPort, "port", 0, "listen port (default $TAILORTUNE_PREVIEW_PORT)")
}
