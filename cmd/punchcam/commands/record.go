package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/PunchCam/internal/api"
	"github.com/bryanchriswhite/PunchCam/internal/capture/router"
	"github.com/bryanchriswhite/PunchCam/internal/logger"
	"github.com/bryanchriswhite/PunchCam/internal/pipeline"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the camera until interrupted",
	Long: `Capture frames, detect motion and write the output streams.

Recording runs until the source ends (file backend) or SIGINT/SIGTERM
arrives. Output files are named <prefix>_<seconds>.<nanoseconds>_<stream>.`,
	Example: `  # Record the default camera
  punchcam record

  # Record another device into /var/cam
  punchcam record --device /dev/video2 --prefix /var/cam/front

  # Process a raw capture offline
  punchcam record --backend file --input capture.yuyv

  # Expose live counters on port 8090
  punchcam record --status-port 8090`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	configMgr, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sessionID := uuid.NewString()
	log := logger.WithComponent("record").With().Str("session", sessionID).Logger()
	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("backend", cfg.Camera.Backend).
		Str("prefix", cfg.Output.Prefix).
		Msg("Starting recorder")

	src, err := router.NewSource(cfg.Camera)
	if err != nil {
		return err
	}

	started := time.Now()
	outputs, err := pipeline.OpenOutputs(cfg.Output, started)
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			outputs.Close()
		}
	}()

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	stats := pipeline.NewStats(sessionID)
	rec, err := pipeline.NewRecorder(opts, outputs, stats)
	if err != nil {
		return err
	}

	if err := src.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", src.Name(), err)
	}

	var server *api.Server
	if cfg.StatusPort > 0 {
		server = api.NewServer(stats, configMgr)
		go func() {
			if err := server.Start(cfg.StatusPort); err != nil {
				log.Error().Err(err).Msg("Status server error")
			}
		}()
	}

	// Stopping the source ends the pipeline like an end of stream
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("Stopping capture")
			if err := src.Stop(); err != nil {
				log.Warn().Err(err).Msg("Failed to stop capture")
			}
		case <-done:
		}
	}()

	runErr := pipeline.New(src, rec, cfg.QueueCapacity, stats).Run()
	close(done)

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if err := src.Stop(); err != nil {
		log.Debug().Err(err).Msg("Capture already stopped")
	}
	if err := rec.Flush(); err != nil {
		errs = append(errs, err)
	}
	closed = true
	if err := outputs.Close(); err != nil {
		errs = append(errs, err)
	}
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := server.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to shut down status server")
		}
		cancel()
	}

	printSummary(cmd.OutOrStdout(), stats.Snapshot(), outputs)
	return errors.Join(errs...)
}

func printSummary(w io.Writer, snap pipeline.Snapshot, outputs *pipeline.Outputs) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Stream", "Path", "Written", "Reclaimed"})
	for _, s := range outputs.All() {
		_, written := s.Writer.Offsets()
		t.AppendRow(table.Row{
			s.Name,
			s.Path,
			humanize.IBytes(uint64(written)),
			humanize.IBytes(uint64(s.Writer.Punched())),
		})
	}
	t.AppendFooter(table.Row{"", "", humanize.IBytes(uint64(snap.BytesWritten)), humanize.IBytes(uint64(snap.BytesPunched))})
	t.Render()

	fmt.Fprintf(w, "\nSession %s: %s captured, %s emitted, %s discarded in %s\n",
		snap.SessionID,
		humanize.Comma(int64(snap.Captured)),
		humanize.Comma(int64(snap.Emitted)),
		humanize.Comma(int64(snap.Discarded)),
		snap.Uptime,
	)
	if snap.PunchFailures > 0 {
		fmt.Fprintf(w, "Hole punching failed %d times; output files were not trimmed\n", snap.PunchFailures)
	}
}
