// Command parques-bot fills a Parqués room with automated players.
//
// Each bot opens its own TCP connection, logs in, and either creates a room
// (the first bot) or joins it. Once everyone is ready the bots roll and pass
// on their turns until each has played --turns turns, then leave. Pass --sala
// to seat the bots in an existing room alongside human players.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/parques-server/client"
	"github.com/wricardo/parques-server/game/protocol"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "parques-bot: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "parques-bot",
		Usage: "Play automated Parqués matches against a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   "localhost:5000",
				Usage:   "Game server TCP address",
				Sources: cli.EnvVars("PARQUES_ADDR"),
			},
			&cli.StringSliceFlag{
				Name:  "bots",
				Value: []string{"ana", "beto", "caro", "dani"},
				Usage: "Bot names, one seat each",
			},
			&cli.StringFlag{
				Name:  "sala",
				Usage: "Join this room instead of creating one",
			},
			&cli.StringFlag{
				Name:  "modo",
				Value: protocol.DefaultMode,
				Usage: "Mode for a newly created room",
			},
			&cli.IntFlag{
				Name:  "turns",
				Value: 10,
				Usage: "Turns each bot plays before leaving",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 2 * time.Minute,
				Usage: "Give up after this long",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log every roll",
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	zc := zap.NewDevelopmentConfig()
	if !cmd.Bool("verbose") {
		zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	opts := client.MatchOptions{
		Addr:   cmd.String("addr"),
		Names:  cmd.StringSlice("bots"),
		RoomID: cmd.String("sala"),
		Mode:   cmd.String("modo"),
		Turns:  cmd.Int("turns"),
	}
	logger.Info("Starting match",
		zap.String("addr", opts.Addr),
		zap.Strings("bots", opts.Names),
		zap.Int("turns", opts.Turns),
	)

	bots, err := client.Match(ctx, opts, logger)
	if err != nil {
		return err
	}

	for _, b := range bots {
		logger.Info("Bot finished",
			zap.String("jugador", b.Name()),
			zap.String("color", string(b.Color())),
			zap.Int("turns", b.Turns()),
			zap.Stringer("posicion", b.Position()),
		)
	}
	return nil
}
