package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zsiec/tsframe/internal/ingest"
	srtingest "github.com/zsiec/tsframe/internal/ingest/srt"
	"github.com/zsiec/tsframe/internal/mpegts"
)

// ErrInteractiveInput is returned when stdin is a terminal and no other
// source was given.
var ErrInteractiveInput = errors.New("no input: stdin is a terminal")

type options struct {
	verbose   bool
	srtAddr   string
	srtListen string
	streamID  string
	duration  time.Duration
	maxBytes  int64
}

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	isTTY  func() bool
	// pull and listen override the SRT caller and server in tests.
	pull   func(ctx context.Context, req srtingest.PullRequest) (*ingest.Capture, error)
	listen func(ctx context.Context, req srtingest.ListenRequest) (*ingest.Capture, error)
}

func (c *cli) rootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "tsframe [file]",
		Short: "Validate MPEG-TS packet framing",
		Long: `Reads a complete MPEG transport stream and checks that it is framed
into 188-byte packets, each starting with the 0x47 sync byte.

One line is printed per packet with its PID in hex. The first framing
error aborts the scan with the packet index and byte offset.

Input is read from stdin unless a file, --srt or --srt-listen is given.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), opts, args)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.Flags()
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Enables verbose logging")
	f.StringVar(&opts.srtAddr, "srt", envOr("TSFRAME_SRT_ADDR", ""), "capture from a remote SRT listener (host:port)")
	f.StringVar(&opts.srtListen, "srt-listen", envOr("TSFRAME_SRT_LISTEN", ""), "wait for an SRT publisher on this address (e.g. :6000)")
	f.StringVar(&opts.streamID, "srt-stream-id", envOr("TSFRAME_SRT_STREAM_ID", ""), "SRT stream id to request, or to accept in listen mode")
	f.DurationVar(&opts.duration, "duration", 0, "stop an SRT capture after this long (0 = until the sender closes)")
	f.Int64Var(&opts.maxBytes, "max-bytes", 0, "stop reading after this many bytes (0 = no limit)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tsframe %s\n", version)
		},
	})

	return cmd
}

func (c *cli) run(ctx context.Context, opts options, args []string) error {
	sources := len(args)
	if opts.srtAddr != "" {
		sources++
	}
	if opts.srtListen != "" {
		sources++
	}
	if sources > 1 {
		return fmt.Errorf("a file argument, --srt and --srt-listen are mutually exclusive")
	}

	capture, err := c.capture(ctx, opts, args)
	if err != nil {
		return err
	}

	stats := capture.Stats()
	if opts.verbose {
		slog.Info("input captured", "source", stats.Source,
			"bytes", stats.BytesReceived, "reads", stats.ReadCount,
			"duration", stats.Duration)
	}

	report, err := mpegts.NewScanner().Scan(capture.Bytes(), opts.verbose)
	if err != nil {
		return err
	}

	if opts.verbose {
		slog.Info("scan complete", "packets", report.Packets,
			"resynced_bytes", report.Resynced, "trailing_bytes", report.Trailing)
	}
	_, err = fmt.Fprintln(c.stdout, strings.Join(report.Lines, "\n"))
	return err
}

func (c *cli) capture(ctx context.Context, opts options, args []string) (*ingest.Capture, error) {
	switch {
	case opts.srtAddr != "":
		pull := c.pull
		if pull == nil {
			pull = srtingest.NewCaller(nil).Pull
		}
		return pull(ctx, srtingest.PullRequest{
			Address:  opts.srtAddr,
			StreamID: opts.streamID,
			Duration: opts.duration,
			MaxBytes: opts.maxBytes,
		})
	case opts.srtListen != "":
		listen := c.listen
		if listen == nil {
			listen = srtingest.NewServer(nil).Capture
		}
		return listen(ctx, srtingest.ListenRequest{
			Addr:      opts.srtListen,
			StreamKey: opts.streamID,
			Duration:  opts.duration,
			MaxBytes:  opts.maxBytes,
		})
	case len(args) == 1:
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ingest.Drain(ctx, f, args[0], opts.maxBytes)
	default:
		if c.isTTY != nil && c.isTTY() {
			fmt.Fprintln(c.stdout, "No file was passed as input, try the following command:")
			fmt.Fprintf(c.stdout, "%s\n\n", usageHint())
			return nil, ErrInteractiveInput
		}
		return ingest.Drain(ctx, c.stdin, "stdin", opts.maxBytes)
	}
}

func usageHint() string {
	if runtime.GOOS == "windows" {
		return "type test_failure.ts | tsframe.exe"
	}
	return "cat test_failure.ts | tsframe"
}
