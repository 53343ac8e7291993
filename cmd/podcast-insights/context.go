package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/michaeldiestelberg/podcast-insights/internal/config"
	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
	"github.com/michaeldiestelberg/podcast-insights/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

// resolveFeed maps a --feed value onto a ledger feed. The value is either a
// 1-based index into the configured feed list or a feed URL.
func resolveFeed(cmd *cobra.Command, cfg *config.Config, store *ledger.Store, value string) (*ledger.Feed, error) {
	value = strings.TrimSpace(value)

	var url string
	switch {
	case value == "" && len(cfg.Feeds) == 1:
		url = cfg.Feeds[0].URL
	case value == "":
		return nil, fmt.Errorf("multiple feeds configured; pick one with --feed <index|url>")
	default:
		if index, err := strconv.Atoi(value); err == nil {
			if index < 1 || index > len(cfg.Feeds) {
				return nil, fmt.Errorf("feed index %d out of range 1-%d", index, len(cfg.Feeds))
			}
			url = cfg.Feeds[index-1].URL
		} else {
			url = value
		}
	}

	feedRow, err := store.FeedByURL(cmd.Context(), url)
	if err != nil {
		return nil, err
	}
	if feedRow == nil {
		return nil, fmt.Errorf("feed %s is not in the ledger yet; run `podcast-insights poll` first", url)
	}
	return feedRow, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
