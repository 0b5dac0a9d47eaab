// internal/stream/handler.go
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

const (
	maxRequestBody = 1 << 20

	wsWriteWait      = 10 * time.Second
	wsReadLimit      = maxRequestBody
	wsRequestTimeout = 30 * time.Second

	TransportNDJSON    = "ndjson"
	TransportWebSocket = "websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler отдаёт сессии по HTTP (NDJSON) и WebSocket.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.Named("stream-handler")}
}

// ServeNDJSON: POST с телом Request, ответ - поток NDJSON до терминального
// события. Закрытие соединения клиентом отменяет r.Context() и сессию.
func (h *Handler) ServeNDJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	em, err := NewNDJSONEmitter(w)
	if err != nil {
		h.logger.Error("streaming unsupported", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		// тело не разобрать - один failed и конец потока
		h.finish(TransportNDJSON, h.svc.Reject(TransportNDJSON, fmt.Errorf("invalid request body: %w", err), em))
		return
	}

	h.finish(TransportNDJSON, h.svc.Run(r.Context(), TransportNDJSON, req, em))
}

// ServeWebSocket: первое сообщение клиента - Request, далее сервер шлёт
// по одному JSON-событию на сообщение и закрывает соединение.
func (h *Handler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	em := &wsEmitter{conn: conn}

	_ = conn.SetReadDeadline(time.Now().Add(wsRequestTimeout))
	var req Request
	if err := conn.ReadJSON(&req); err != nil {
		h.finish(TransportWebSocket, h.svc.Reject(TransportWebSocket, fmt.Errorf("invalid request message: %w", err), em))
		em.close(websocket.CloseUnsupportedData, "invalid request")
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// клиент больше ничего не шлёт; ошибка чтения означает разрыв
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	runErr := h.svc.Run(ctx, TransportWebSocket, req, em)
	h.finish(TransportWebSocket, runErr)
	if ctx.Err() == nil {
		em.close(websocket.CloseNormalClosure, "")
	}
}

func (h *Handler) finish(transport string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, ErrBadRequest):
		h.logger.Debug("session ended early", zap.String("transport", transport), zap.Error(err))
	default:
		h.logger.Info("session ended with error", zap.String("transport", transport), zap.Error(err))
	}
}

// wsEmitter - gorilla/websocket допускает только одного писателя.
type wsEmitter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (e *wsEmitter) Emit(ev types.StatusEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return e.conn.WriteJSON(ev)
}

func (e *wsEmitter) close(code int, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	msg := websocket.FormatCloseMessage(code, text)
	_ = e.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}
