// Package chat relays conversations to an OpenAI-compatible chat
// completions gateway and streams the reply back.
package chat

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	// ErrNotConfigured is returned when no gateway key is set.
	ErrNotConfigured = errors.New("chat gateway is not configured")
	// ErrRateLimited maps gateway status 429.
	ErrRateLimited = errors.New("chat gateway rate limit exceeded")
	// ErrQuotaExceeded maps gateway status 402.
	ErrQuotaExceeded = errors.New("chat gateway credits exhausted")
	// ErrEmptyTranscript is returned for a request without messages.
	ErrEmptyTranscript = errors.New("transcript is empty")
)

// GatewayError is any other non-success gateway response.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return "chat gateway returned " + http.StatusText(e.StatusCode) + ": " + e.Body
}

// Role is the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	roleSystem    Role = "system"
)

// Message is one transcript entry.
type Message struct {
	Role    Role
	Content string
}

// MaxMessages bounds the transcript forwarded to the gateway; older
// messages are dropped.
const MaxMessages = 40

// Config configures a Client.
type Config struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	APIKey  string        `json:"api_key" yaml:"api_key"`
	Model   string        `json:"model" yaml:"model"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Client streams chat completions.
type Client struct {
	cfg    Config
	http   *http.Client
	tracer trace.Tracer
	prompt string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTracerProvider enables tracing of gateway calls.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer("github.com/xenking/dream-snack/internal/chat") }
}

// NewClient returns a Client. Calls fail with ErrNotConfigured while
// cfg.APIKey is empty.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		http:   http.DefaultClient,
		tracer: noop.NewTracerProvider().Tracer(""),
		prompt: SystemPrompt(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether a gateway key is set.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Validate checks a transcript received from a client.
func Validate(transcript []Message) error {
	if len(transcript) == 0 {
		return ErrEmptyTranscript
	}
	for i, m := range transcript {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return errors.Errorf("message %d: unsupported role %q", i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return errors.Errorf("message %d: empty content", i)
		}
	}
	return nil
}

func (c *Client) encodeRequest(transcript []Message) []byte {
	if len(transcript) > MaxMessages {
		transcript = transcript[len(transcript)-MaxMessages:]
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("model")
	e.Str(c.cfg.Model)
	e.FieldStart("messages")
	e.ArrStart()
	writeMessage(&e, roleSystem, c.prompt)
	for _, m := range transcript {
		writeMessage(&e, m.Role, m.Content)
	}
	e.ArrEnd()
	e.FieldStart("stream")
	e.Bool(true)
	e.ObjEnd()
	return e.Bytes()
}

func writeMessage(e *jx.Encoder, role Role, content string) {
	e.ObjStart()
	e.FieldStart("role")
	e.Str(string(role))
	e.FieldStart("content")
	e.Str(content)
	e.ObjEnd()
}

// Stream sends transcript, prefixed with the store's system prompt, and
// calls fn with each content delta as it arrives. Gateway failures are
// reported before fn is first called. No retries are made.
func (c *Client) Stream(ctx context.Context, transcript []Message, fn func(delta string) error) (rerr error) {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if err := Validate(transcript); err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, "chat.Stream",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("chat.model", c.cfg.Model),
			attribute.Int("chat.messages", len(transcript)),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(c.encodeRequest(transcript)))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusPaymentRequired:
		return ErrQuotaExceeded
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &GatewayError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var chunks int
	err = readEvents(resp.Body, func(data []byte) error {
		delta, err := parseDelta(data)
		if err != nil {
			// Skip malformed chunks.
			return nil
		}
		if delta == "" {
			return nil
		}
		chunks++
		return fn(delta)
	})
	span.SetAttributes(attribute.Int("chat.chunks", chunks))
	return err
}

// readEvents calls fn with the payload of every "data:" line until the
// [DONE] marker or the end of the stream.
func readEvents(r io.Reader, fn func(data []byte) error) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			line = bytes.TrimSpace(line)
			switch {
			case len(line) == 0, line[0] == ':':
			case bytes.Equal(line, []byte("data: [DONE]")):
				return nil
			case bytes.HasPrefix(line, []byte("data:")):
				data := bytes.TrimSpace(line[len("data:"):])
				if cbErr := fn(data); cbErr != nil {
					return cbErr
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "read stream")
		}
	}
}

// parseDelta extracts choices[].delta.content from a completion chunk.
func parseDelta(data []byte) (string, error) {
	var b strings.Builder
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "choices" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "delta" {
					return d.Skip()
				}
				return d.Obj(func(d *jx.Decoder, key string) error {
					if key != "content" || d.Next() != jx.String {
						return d.Skip()
					}
					s, err := d.Str()
					if err != nil {
						return err
					}
					b.WriteString(s)
					return nil
				})
			})
		})
	})
	if err != nil {
		return "", errors.Wrap(err, "decode chunk")
	}
	return b.String(), nil
}
