// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package natsbus wraps the nats.go client for Clarion's sync transport
// and internal backend stage fan-out: connection plus subscription
// tracking with reconnect/error handler wiring, constructed explicitly per
// caller rather than held behind a package-level singleton, since the edge
// agent and the backend pipeline need independently configured,
// independently closeable connections in the same process tree during
// tests.
package natsbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/sgerhart/clarion-sub001/pkg/clog"
)

// Config configures a connection to a NATS server.
type Config struct {
	Address       string `json:"address"`
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`
	CredsFilePath string `json:"creds_file_path,omitempty"`
}

// Client wraps a NATS connection with subscription management.
type Client struct {
	conn          *nats.Conn
	subscriptions []*nats.Subscription
	mu            sync.Mutex
	log           clog.Logger
}

// MessageHandler processes a single received message.
type MessageHandler func(subject string, data []byte)

// Connect dials the NATS server described by cfg.
func Connect(cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("natsbus: address is required")
	}

	logger := clog.WithFields(clog.Fields{"component": "natsbus", "address": cfg.Address})

	var opts []nats.Option
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.CredsFilePath != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFilePath))
	}
	opts = append(opts,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Errorf("error: %v", err)
		}),
	)

	nc, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("natsbus: connect failed: %w", err)
	}
	logger.Infof("connected")

	return &Client{conn: nc, log: logger}, nil
}

// Subscribe registers handler for subject.
func (c *Client) Subscribe(subject string, handler MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("natsbus: subscribe to %q failed: %w", subject, err)
	}
	c.subscriptions = append(c.subscriptions, sub)
	return nil
}

// SubscribeQueue registers handler for subject within a load-balanced queue group.
func (c *Client) SubscribeQueue(subject, queue string, handler MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("natsbus: queue subscribe to %q (queue %q) failed: %w", subject, queue, err)
	}
	c.subscriptions = append(c.subscriptions, sub)
	return nil
}

// Publish sends data on subject.
func (c *Client) Publish(subject string, data []byte) error {
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("natsbus: publish to %q failed: %w", subject, err)
	}
	return nil
}

// Request sends data on subject and waits for a reply, honoring ctx.
func (c *Client) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	msg, err := c.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("natsbus: request to %q failed: %w", subject, err)
	}
	return msg.Data, nil
}

// Flush blocks until all published messages reach the server.
func (c *Client) Flush() error {
	return c.conn.Flush()
}

// IsConnected reports whether the underlying connection is active.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close unsubscribes everything and closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sub := range c.subscriptions {
		_ = sub.Unsubscribe()
	}
	c.subscriptions = nil

	if c.conn != nil {
		c.conn.Close()
		c.log.Infof("connection closed")
	}
}
