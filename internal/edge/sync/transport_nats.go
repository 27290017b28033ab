// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sync

import (
	"context"
	"fmt"

	"github.com/sgerhart/clarion-sub001/pkg/clarion"
	"github.com/sgerhart/clarion-sub001/pkg/clarionerr"
	"github.com/sgerhart/clarion-sub001/pkg/natsbus"
)

// NATSTransport delivers envelopes as the binary form over a NATS subject,
// giving switches a persistent pub/sub transport option alongside HTTP.
type NATSTransport struct {
	Client  *natsbus.Client
	Subject string
}

// NewNATSTransport builds a transport publishing to subject over client.
func NewNATSTransport(client *natsbus.Client, subject string) *NATSTransport {
	return &NATSTransport{Client: client, Subject: subject}
}

// SendBatch implements Transport.
func (t *NATSTransport) SendBatch(_ context.Context, env clarion.SyncEnvelope) error {
	if !t.Client.IsConnected() {
		return fmt.Errorf("%w: nats client not connected", clarionerr.ErrTransportUnavailable)
	}
	if err := t.Client.Publish(t.Subject, env.EncodeBinary()); err != nil {
		return fmt.Errorf("%w: %v", clarionerr.ErrTransportUnavailable, err)
	}
	return nil
}
