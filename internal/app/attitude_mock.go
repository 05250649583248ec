// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log"
	"time"

	"github.com/relabs-tech/sailing_computer/internal/bus"
	"github.com/relabs-tech/sailing_computer/internal/config"
	"github.com/relabs-tech/sailing_computer/internal/orientation"
)

// RunAttitudeMock publishes synthetic attitude estimates for bench runs
// without an estimator.
func RunAttitudeMock(ctx context.Context) error {
	cfg := config.Get()

	client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDMock)
	if err != nil {
		return err
	}
	defer client.Close()

	src := orientation.NewMockSource(cfg.MockHeading, cfg.MockHeel)
	ticker := time.NewTicker(cfg.MockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		pose, err := src.Next()
		if err != nil {
			log.Printf("error from mock source: %v", err)
			continue
		}
		if err := client.Publish(cfg.TopicAttitude, pose); err != nil {
			log.Printf("mock publish error: %v", err)
		}
	}
}
