package metrics

import (
	"context"
	"time"

	"codeforge/internal/config"
	"codeforge/internal/llm"
)

// instrumentedClient wraps an llm.Client so every completion call is
// recorded on the shared Recorder without the adapters themselves knowing
// metrics exist.
type instrumentedClient struct {
	inner llm.Client
	rec   *Recorder
}

// Instrument wraps client so its calls are recorded on rec.
func Instrument(client llm.Client, rec *Recorder) llm.Client {
	return &instrumentedClient{inner: client, rec: rec}
}

func (c *instrumentedClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	start := time.Now()
	resp, err := c.inner.Complete(ctx, req)
	duration := time.Since(start)

	modelName := c.inner.GetDefaultConfig().Name
	c.rec.ObserveLLMRequest(c.inner.Name(), modelName, resp.InputTokens, resp.OutputTokens, err == nil, duration)
	return resp, err
}

func (c *instrumentedClient) GetDefaultConfig() config.Model { return c.inner.GetDefaultConfig() }
func (c *instrumentedClient) Name() string                   { return c.inner.Name() }
