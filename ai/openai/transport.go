package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// maxErrorBody bounds how much of a failed response body is buffered.
const maxErrorBody = 64 << 10

// observation records the outcome of the HTTP exchanges made for one adapter call.
type observation struct {
	mu           sync.Mutex
	status       int
	code         string
	errType      string
	transportErr error
}

type observationKey struct{}

// observe attaches a fresh observation to ctx.
func observe(ctx context.Context) (context.Context, *observation) {
	obs := &observation{}
	return context.WithValue(ctx, observationKey{}, obs), obs
}

func observationFrom(ctx context.Context) *observation {
	obs, _ := ctx.Value(observationKey{}).(*observation)
	return obs
}

func (o *observation) recordTransport(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transportErr = err
}

func (o *observation) recordStatus(status int, body []byte) {
	var payload struct {
		Error struct {
			Type string `json:"type"`
			Code any    `json:"code"`
		} `json:"error"`
	}
	// Bodies that are not JSON still carry a usable status.
	_ = json.Unmarshal(body, &payload)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = status
	o.errType = payload.Error.Type
	if payload.Error.Code != nil {
		o.code = fmt.Sprint(payload.Error.Code)
	}
}

func (o *observation) snapshot() (status int, code, errType string, transportErr error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status, o.code, o.errType, o.transportErr
}

// recordingClient is the HTTP client given to langchaingo. It passes requests
// through unchanged and notes failures on the request's observation.
type recordingClient struct {
	client *http.Client
}

func newRecordingClient(client *http.Client) *recordingClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &recordingClient{client: client}
}

// Do implements langchaingo's openaiclient.Doer.
func (c *recordingClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	obs := observationFrom(req.Context())
	if obs == nil {
		return resp, err
	}
	if err != nil {
		obs.recordTransport(err)
		return resp, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		if readErr != nil {
			body = nil
		}
		obs.recordStatus(resp.StatusCode, body)
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}
	return resp, nil
}
