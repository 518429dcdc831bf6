// Copyright 2024 Probelab
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package measurement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CreateRequest is the complete payload for one measurement creation call.
type CreateRequest struct {
	Definitions []*Definition `json:"definitions"`
	Probes      []Source      `json:"probes"`
	IsOneoff    bool          `json:"is_oneoff"`
}

// APIError is the error detail the platform returned for a rejected
// creation request.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("the measurement platform rejected the request: %s", e.Detail)
}

// Client submits measurement creation requests. The streaming core never
// touches it; it consumes only the measurement ids the Client returns.
type Client struct {
	endpoint string
	key      string
	http     *http.Client
}

func NewClient(endpoint, key string) *Client {
	return &Client{
		endpoint: endpoint,
		key:      key,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type createResponse struct {
	Measurements []int `json:"measurements"`
	Error        *struct {
		Detail string `json:"detail"`
	} `json:"error"`
	Detail string `json:"detail"`
}

// Create POSTs the request and returns the ids of the created measurements.
func (c *Client) Create(ctx context.Context, req CreateRequest) ([]int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := c.endpoint + "/api/v2/measurements/"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+c.key)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("unable to reach the measurement platform: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading creation response: %w", err)
	}

	var parsed createResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &APIError{StatusCode: resp.StatusCode, Detail: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("unexpected creation response: %w", err)
	}

	if resp.StatusCode >= 300 || len(parsed.Measurements) == 0 {
		detail := parsed.Detail
		if parsed.Error != nil && parsed.Error.Detail != "" {
			detail = parsed.Error.Detail
		}
		if detail == "" {
			detail = string(data)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: detail}
	}

	return parsed.Measurements, nil
}
