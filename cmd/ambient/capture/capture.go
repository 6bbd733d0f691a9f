// Package capturecmder provides the capture command for appending a
// conversation turn to the ledger.
package capturecmder

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/cmd/ambient/wiring"
	"github.com/papercomputeco/ambient/pkg/claims"
	"github.com/papercomputeco/ambient/pkg/config"
	"github.com/papercomputeco/ambient/pkg/ingest"
	"github.com/papercomputeco/ambient/pkg/ledger"
	"github.com/papercomputeco/ambient/pkg/logger"
)

type CaptureCommander struct {
	storageDriver string
	sqlitePath    string
	postgresDSN   string
	claimTTL      int
	channel       string
	author        string
	externalID    string
	isAgent       bool
	configDir     string
	debug         bool
	logger        *zap.Logger
}

const captureLongDesc string = `Append a conversation turn to the ledger.

When an external ID is given the turn is claimed first, so concurrent
agent instances sharing the store handle each inbound message exactly
once; a turn that loses the claim race exits without writing. Capture is
idempotent on (channel, external ID): redelivery of an already-captured
turn is skipped.

The turn flows through the same worker pool the conversational surface
uses, including the turn-captured event publish when an event stream is
configured.

Examples:
  ambient capture -c discord -a sam "hello there"
  ambient capture -c discord -a bot --agent "hi, sam"
  ambient capture -c slack -a sam -e msg-123 "the deploy finished"`

const captureShortDesc string = "Append a conversation turn to the ledger"

func NewCaptureCmd() *cobra.Command {
	cmder := &CaptureCommander{}

	cmd := &cobra.Command{
		Use:   "capture <content>",
		Short: captureShortDesc,
		Long:  captureLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, []string{
				config.FlagStorageDriver,
				config.FlagSQLite,
				config.FlagPostgresDSN,
				config.FlagClaimTTL,
			})

			return cmder.run(v, args[0])
		},
	}

	fs := config.DefaultFlags
	config.AddStringFlag(cmd, fs, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddIntFlag(cmd, fs, config.FlagClaimTTL, &cmder.claimTTL)

	cmd.Flags().StringVarP(&cmder.channel, "channel", "c", "", "Channel the turn belongs to")
	cmd.Flags().StringVarP(&cmder.author, "author", "a", "", "Author of the turn")
	cmd.Flags().StringVarP(&cmder.externalID, "external-id", "e", "", "Upstream message ID for claiming and dedup")
	cmd.Flags().BoolVar(&cmder.isAgent, "agent", false, "Mark the turn as agent-authored")

	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("author")

	return cmd
}

func (c *CaptureCommander) run(v *viper.Viper, content string) error {
	c.logger = logger.New(logger.WithDebug(c.debug))
	defer c.logger.Sync()

	ctx := context.Background()

	store, err := wiring.NewStore(ctx, v, c.configDir, c.logger)
	if err != nil {
		return fmt.Errorf("creating ledger store: %w", err)
	}
	defer store.Close()

	coordinator := claims.NewCoordinator(store, c.logger,
		claims.WithTTL(time.Duration(v.GetInt("claims.ttl_seconds"))*time.Second),
	)

	if c.externalID != "" {
		won, err := coordinator.TryClaim(ctx, c.channel, c.externalID)
		if err != nil {
			return fmt.Errorf("claiming turn: %w", err)
		}
		if !won {
			fmt.Printf("Turn %s/%s already claimed by another instance.\n", c.channel, c.externalID)
			return nil
		}
	}

	publisher, err := wiring.NewPublisher(v, c.logger)
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer publisher.Close()

	pool, err := ingest.NewPool(&ingest.Config{
		Driver:    store,
		Publisher: publisher,
		HolderID:  coordinator.HolderID(),
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating capture pool: %w", err)
	}

	queued := pool.Enqueue(ingest.Job{Turn: &ledger.Turn{
		Channel:    c.channel,
		ExternalID: c.externalID,
		Author:     c.author,
		Content:    content,
		IsAgent:    c.isAgent,
		CreatedAt:  time.Now().UTC(),
	}})
	pool.Close()

	if !queued {
		return fmt.Errorf("capture queue full, turn dropped")
	}

	fmt.Printf("Captured turn on %s from %s (%d chars)\n", c.channel, c.author, len(content))
	return nil
}
