package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ilmerge/internal/trace"
)

// readTraceFlags turns the persistent tracing flags into a tracer config.
func readTraceFlags(cmd *cobra.Command) (trace.Config, error) {
	flags := cmd.Root().PersistentFlags()
	output, err := flags.GetString("trace")
	if err != nil {
		return trace.Config{}, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return trace.Config{}, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return trace.Config{}, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	formatStr, err := flags.GetString("trace-format")
	if err != nil {
		return trace.Config{}, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return trace.Config{}, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeat, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return trace.Config{}, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return trace.Config{}, err
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return trace.Config{}, err
	}
	// An output path without a level traces phases.
	if level == trace.LevelOff && output != "" {
		level = trace.LevelPhase
	}
	return trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: output,
		RingSize:   ringSize,
		Heartbeat:  heartbeat,
	}, nil
}

// setupTracing attaches a tracer built from the trace flags to the command
// context and returns its cleanup. In ring mode the cleanup prints the
// buffered events when the command failed.
func setupTracing(cmd *cobra.Command) (func(error), error) {
	cfg, err := readTraceFlags(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func(error) {}, nil
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = "-"
	}

	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	heartbeat := trace.StartHeartbeat(tracer, cfg.Heartbeat)
	return func(runErr error) {
		heartbeat.Stop()
		if ring, ok := tracer.(*trace.RingTracer); ok && runErr != nil {
			stderr := cmd.ErrOrStderr()
			fmt.Fprintln(stderr, "trace: last events before the failure:")
			if err := ring.Dump(stderr, trace.FormatText); err != nil {
				fmt.Fprintf(stderr, "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}
