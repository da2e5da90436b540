package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultCompletionTimeout bounds every outbound completion call. Earlier
// revisions of this service left the call unbounded; treat that as a defect.
const DefaultCompletionTimeout = 30 * time.Second

// Reply is the result of one completion call: the extracted assistant text
// plus the verbatim response envelope for audit storage.
type Reply struct {
	Text string
	Raw  json.RawMessage
}

// CompletionClient issues single-shot text completions against the OpenAI
// Responses API with a fixed model. It is safe for concurrent use.
type CompletionClient struct {
	client *openai.Client
	model  string
}

// NewCompletionClient builds a client with the given bearer credential and
// model. baseURL overrides the API host (tests point it at a local server);
// timeout <= 0 falls back to DefaultCompletionTimeout. Retries are disabled:
// the relay makes exactly one attempt and propagates the outcome.
func NewCompletionClient(apiKey, baseURL, model string, timeout time.Duration) *CompletionClient {
	if timeout <= 0 {
		timeout = DefaultCompletionTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	c := openai.NewClient(opts...)
	return &CompletionClient{client: &c, model: model}
}

// Complete sends one prompt and returns the assistant text together with the
// raw response envelope.
//
// Failure modes:
//   - non-success HTTP status upstream → *UpstreamError with status and body
//   - 2xx with a malformed envelope (no output[0].content[0].text) →
//     ErrBadEnvelope
//   - transport errors (timeout, DNS, …) → the underlying error
func (c *CompletionClient) Complete(ctx context.Context, prompt string) (Reply, error) {
	tr := otel.Tracer("gateway/CompletionClient")
	ctx, span := tr.Start(ctx, "Complete",
		trace.WithAttributes(attribute.String("llm.model", c.model)),
	)
	defer span.End()

	resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return Reply{}, &UpstreamError{Status: apierr.StatusCode, Body: apierr.Error()}
		}
		return Reply{}, err
	}

	// The contract shape is output[0].content[0].text. Anything else is an
	// integration break we want to see, not hide.
	if len(resp.Output) == 0 || len(resp.Output[0].Content) == 0 {
		return Reply{}, ErrBadEnvelope
	}
	text := resp.Output[0].Content[0].Text
	if text == "" {
		return Reply{}, ErrBadEnvelope
	}

	return Reply{Text: text, Raw: json.RawMessage(resp.RawJSON())}, nil
}

// Model reports the fixed model identifier this client targets.
func (c *CompletionClient) Model() string { return c.model }
