// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sync

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sgerhart/clarion-sub001/pkg/clarion"
	"github.com/sgerhart/clarion-sub001/pkg/clarionerr"
)

// HTTPTransport delivers envelopes over plain HTTP, as either the
// structured JSON form or the length-prefixed binary form with
// X-Switch-ID and X-Sketch-Count headers and optional gzip encoding.
type HTTPTransport struct {
	Client *http.Client
	URL    string
	Binary bool
	GZIP   bool
}

// NewHTTPTransport builds a transport posting to url. binary selects the
// framed binary body; otherwise the structured JSON envelope is sent.
func NewHTTPTransport(url string, binary, gzipBody bool) *HTTPTransport {
	return &HTTPTransport{Client: &http.Client{}, URL: url, Binary: binary, GZIP: gzipBody}
}

// SendBatch implements Transport.
func (t *HTTPTransport) SendBatch(ctx context.Context, env clarion.SyncEnvelope) error {
	var body []byte
	var contentType string

	if t.Binary {
		body = env.EncodeBinary()
		contentType = "application/octet-stream"
	} else {
		var err error
		body, err = json.Marshal(env)
		if err != nil {
			return fmt.Errorf("%w: encoding sync envelope: %v", clarionerr.ErrInvalidFormat, err)
		}
		contentType = "application/json"
	}

	encoding := ""
	if t.GZIP {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(body); err != nil {
			return fmt.Errorf("gzip sync payload: %w", err)
		}
		if err := gw.Close(); err != nil {
			return fmt.Errorf("gzip sync payload: %w", err)
		}
		body = buf.Bytes()
		encoding = "gzip"
	}

	// Every call carries its own 30s deadline on top of ctx.
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: building sync request: %v", clarionerr.ErrTransportUnavailable, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Switch-ID", env.SwitchID)
	req.Header.Set("X-Sketch-Count", strconv.Itoa(env.SketchCount))
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", clarionerr.ErrTransportTimeout, err)
		}
		return fmt.Errorf("%w: %v", clarionerr.ErrTransportUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: backend returned status %d", clarionerr.ErrTransportUnavailable, resp.StatusCode)
	}
	return nil
}
