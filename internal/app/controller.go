// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/relabs-tech/sailing_computer/internal/bus"
	"github.com/relabs-tech/sailing_computer/internal/config"
	"github.com/relabs-tech/sailing_computer/internal/control"
	"github.com/relabs-tech/sailing_computer/internal/controldata"
	"github.com/relabs-tech/sailing_computer/internal/course"
	"github.com/relabs-tech/sailing_computer/internal/guidance"
	"github.com/relabs-tech/sailing_computer/internal/metrics"
	"github.com/relabs-tech/sailing_computer/internal/navigation"
)

// RunController subscribes to the sensor topics and runs the control loop
// until ctx is done.
func RunController(ctx context.Context) error {
	cfg := config.Get()

	crs, err := loadCourse(cfg.CourseFile)
	if err != nil {
		return err
	}

	guid, err := guidance.New(cfg.GuidanceConfig())
	if err != nil {
		return fmt.Errorf("guidance config: %w", err)
	}
	store, err := controldata.New(cfg.Windows())
	if err != nil {
		return err
	}
	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return err
	}
	serveMetrics(cfg.MetricsListen, collector)

	client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDController)
	if err != nil {
		return err
	}
	defer client.Close()

	poller := control.NewChanPoller(client.Connected)
	if err := subscribeInputs(client, cfg, poller); err != nil {
		return err
	}

	driver, err := control.New(control.Config{
		Publisher: client,
		Poller:    poller,
		Guidance:  guid,
		Store:     store,
		Transform: navigation.NewTransform(cfg.NavPrecision),
		Metrics:   collector,
		Course:    crs,
		Topics: control.Topics{
			Actuators:     cfg.TopicActuators,
			ActuatorArmed: cfg.TopicActuatorArmed,
			Guidance:      cfg.TopicGuidance,
			RacePosition:  cfg.TopicRacePosition,
			TackCompleted: cfg.TopicTackCompleted,
			Notice:        cfg.TopicNotice,
		},
		PollTimeout: cfg.PollTimeout,
		Reference:   guidance.ReferenceAction{AlphaStar: cfg.AlphaStarInit * math.Pi / 180},
	})
	if err != nil {
		return err
	}
	return driver.Run(ctx)
}

// loadCourse reads the course file. A missing file leaves navigation off.
func loadCourse(path string) (course.Course, error) {
	if path == "" {
		return course.Course{}, nil
	}
	crs, err := course.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("course file %s not found, race position disabled", path)
		return course.Course{}, nil
	}
	return crs, err
}

func subscribeInputs(client *bus.Client, cfg *config.Config, p *control.ChanPoller) error {
	subs := []struct {
		topic string
		fn    func([]byte)
	}{
		{cfg.TopicGPSRaw, bus.Decode(cfg.TopicGPSRaw, p.PostGPSRaw)},
		{cfg.TopicGPSFiltered, bus.Decode(cfg.TopicGPSFiltered, p.PostGPSFiltered)},
		{cfg.TopicWind, bus.Decode(cfg.TopicWind, p.PostWind)},
		{cfg.TopicAttitude, bus.Decode(cfg.TopicAttitude, p.PostAttitude)},
		{cfg.TopicWXAttitude, bus.Decode(cfg.TopicWXAttitude, p.PostWXAttitude)},
		{cfg.TopicReference, bus.Decode(cfg.TopicReference, p.PostReference)},
		{cfg.TopicParams, bus.Decode(cfg.TopicParams, p.PostParams)},
	}
	for _, s := range subs {
		if s.topic == "" {
			continue
		}
		if err := client.Subscribe(s.topic, s.fn); err != nil {
			return err
		}
	}
	return nil
}
