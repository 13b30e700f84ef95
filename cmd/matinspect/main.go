package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/AnthonyAndroulakis/matlab/internal/logger"
)

var (
	logLevel  string
	logFormat string
	debug     bool

	// codecLog is the slog side of the context logger, passed to matlab.WithLogger.
	codecLog *slog.Logger
)

func main() {
	app := &cli.Command{
		Name:  "matinspect",
		Usage: "Inspect and generate MATLAB level 5 MAT-files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Value:       "info",
				Destination: &logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "log format (text, json)",
				Value:       "text",
				Destination: &logFormat,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       "enable debug logging (shorthand for --log-level=debug)",
				Destination: &debug,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			applyLogConfig(cmd, LoadConfig(), &logLevel, &logFormat)
			if debug {
				logLevel = "debug"
			}
			log := newLogger(logFormat, logger.ParseLevel(logLevel))
			codecLog = logger.Slog(log)
			return logger.WithContext(ctx, log), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			inspectCmd(),
			demoCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(format string, level slog.Level) logger.Logger {
	if format == "json" {
		return logger.JSON(os.Stderr, level)
	}
	return logger.Text(os.Stderr, level)
}

func codecLogger() *slog.Logger {
	return codecLog
}
