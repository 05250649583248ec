// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bus wraps the MQTT client every process uses. Payloads are JSON
// published at QoS 0. State is retained so late subscribers see the last
// value; events are not.
package bus

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client is a connected MQTT client.
type Client struct {
	mc     mqtt.Client
	broker string
}

// Connect dials the broker and blocks until the connection is up.
func Connect(broker, clientID string) (*Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("mqtt: connection to %s lost: %v", broker, err)
		})

	mc := mqtt.NewClient(opts)
	if token := mc.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Printf("connected to MQTT broker at %s as %s", broker, clientID)
	return &Client{mc: mc, broker: broker}, nil
}

// Publish marshals v to JSON and publishes it retained on topic.
func (c *Client) Publish(topic string, v any) error {
	return c.publish(topic, true, v)
}

// PublishEvent publishes v without the retain flag, so a subscriber that
// connects later does not receive it.
func (c *Client) PublishEvent(topic string, v any) error {
	return c.publish(topic, false, v)
}

func (c *Client) publish(topic string, retained bool, v any) error {
	payload, err := Encode(topic, v)
	if err != nil {
		return err
	}
	token := c.mc.Publish(topic, 0, retained, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

// Subscribe registers fn for every payload received on topic.
func (c *Client) Subscribe(topic string, fn func(payload []byte)) error {
	token := c.mc.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		fn(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	log.Printf("subscribed to %s", topic)
	return nil
}

// Connected reports whether the client currently holds a broker connection.
func (c *Client) Connected() bool {
	return c.mc.IsConnectionOpen()
}

// Close disconnects, giving in-flight work 250 ms to finish.
func (c *Client) Close() {
	c.mc.Disconnect(250)
	log.Printf("disconnected from MQTT broker at %s", c.broker)
}

// Encode marshals a payload for topic.
func Encode(topic string, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return payload, nil
}

// Decode returns a subscription callback that unmarshals each payload into
// a T and hands it to fn. Malformed payloads are logged and dropped.
func Decode[T any](topic string, fn func(T)) func([]byte) {
	return func(payload []byte) {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			log.Printf("mqtt: %s unmarshal error: %v", topic, err)
			return
		}
		fn(v)
	}
}
