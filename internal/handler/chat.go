package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/dream-snack/internal/chat"
)

func decodeTranscript(r *http.Request) ([]chat.Message, error) {
	var out []chat.Message
	err := decodeBody(r, map[string]func(*jx.Decoder) error{
		"messages": func(d *jx.Decoder) error {
			return d.Arr(func(d *jx.Decoder) error {
				var role, content string
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "role":
						return str(&role)(d)
					case "content":
						return str(&content)(d)
					}
					return d.Skip()
				}); err != nil {
					return err
				}
				out = append(out, chat.Message{Role: chat.Role(role), Content: content})
				return nil
			})
		},
	})
	if err != nil {
		return nil, err
	}
	if err := chat.Validate(out); err != nil {
		return nil, newBadRequest(err.Error())
	}
	return out, nil
}

// sseWriter writes server-sent events, sending headers with the first one.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseWriter) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
}

func (s *sseWriter) data(payload []byte) error {
	s.start()
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(payload); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *sseWriter) field(name, value string) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart(name)
	e.Str(value)
	e.ObjEnd()
	return s.data(e.Bytes())
}

// streamChat relays the assistant reply as server-sent events. Gateway
// failures before the first delta are reported as JSON errors; later ones
// end the stream with an error event.
func (h *Handler) streamChat(w http.ResponseWriter, r *http.Request) {
	transcript, err := decodeTranscript(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	flusher, _ := w.(http.Flusher)
	out := &sseWriter{w: w, flusher: flusher}
	err = h.chat.Stream(r.Context(), transcript, func(delta string) error {
		return out.field("content", delta)
	})
	if err != nil {
		if !out.started {
			h.fail(w, r, err)
			return
		}
		if !errors.Is(err, r.Context().Err()) {
			zctx.From(r.Context()).Warn("Chat stream interrupted", zap.Error(err))
			_ = out.field("error", "The assistant stopped responding. Please try again.")
		}
		return
	}
	_ = out.data([]byte("[DONE]"))
}
