package stream

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

var (
	// ErrStreamClosed - после терминального события поток закрыт.
	ErrStreamClosed = errors.New("status stream closed")
	// ErrNotFlushable - ResponseWriter не умеет отдавать данные частями.
	ErrNotFlushable = errors.New("response writer does not support flushing")
)

// Emitter доставляет события одному подписчику в порядке вызовов.
type Emitter interface {
	Emit(ev types.StatusEvent) error
}

// NDJSONEmitter пишет по одной JSON-строке на событие и сразу сбрасывает буфер.
type NDJSONEmitter struct {
	enc     *json.Encoder
	flusher http.Flusher
}

func NewNDJSONEmitter(w http.ResponseWriter) (*NDJSONEmitter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNotFlushable
	}
	return &NDJSONEmitter{enc: json.NewEncoder(w), flusher: flusher}, nil
}

func (e *NDJSONEmitter) Emit(ev types.StatusEvent) error {
	// Encode дописывает '\n'
	if err := e.enc.Encode(ev); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

// sealedEmitter закрывается на первом терминальном событии, так что
// терминальное событие всегда последнее и единственное.
type sealedEmitter struct {
	mu     sync.Mutex
	next   Emitter
	closed bool
	count  int
}

func seal(next Emitter) *sealedEmitter {
	return &sealedEmitter{next: next}
}

func (s *sealedEmitter) Emit(ev types.StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if ev.Status.IsTerminal() {
		s.closed = true
	}
	s.count++
	return s.next.Emit(ev)
}

func (s *sealedEmitter) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
