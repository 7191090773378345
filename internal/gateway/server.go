package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/gungi-arena/internal/boardimage"
	"github.com/park285/gungi-arena/internal/msgcat"
	"github.com/park285/gungi-arena/internal/service/arena"
	"github.com/park285/gungi-arena/internal/session"
	"github.com/park285/gungi-arena/pkg/gungidto"
)

const (
	DefaultPingInterval = 30 * time.Second
	DefaultReadLimit    = 1 << 20
	writeTimeout        = 5 * time.Second
)

type Config struct {
	PingInterval   time.Duration
	ReadLimit      int64
	OriginPatterns []string
}

// Server exposes the arena service over a JSON websocket at /ws.
type Server struct {
	svc      *arena.Service
	msgs     *msgcat.Catalog
	cfg      Config
	logger   *zap.Logger
	handlers map[string]handler
	conns    atomic.Int64
}

type reply struct {
	payload any
	err     *gungidto.DomainError
	data    map[string]any
}

type handler func(ctx context.Context, raw json.RawMessage) reply

// NewServer builds the gateway. msgs may be nil, in which case error frames
// carry the service's own messages.
func NewServer(svc *arena.Service, msgs *msgcat.Catalog, cfg Config, logger *zap.Logger) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("arena service is required")
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = DefaultReadLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, msgs: msgs, cfg: cfg, logger: logger}
	s.handlers = map[string]handler{
		TypeCreateMatch:    s.createMatch,
		TypeMakeMove:       s.makeMove,
		TypeGameState:      s.gameState,
		TypeExportGame:     s.exportGame,
		TypeImportGame:     s.importGame,
		TypeCancelMatch:    s.cancelMatch,
		TypeValidMoves:     s.validMoves,
		TypeSuggestMove:    s.suggestMove,
		TypeCreateSession:  s.createSession,
		TypeJoinSession:    s.joinSession,
		TypeSubmitMove:     s.submitMove,
		TypeSessionState:   s.sessionState,
		TypeSessionMetrics: s.sessionMetrics,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.serveHealth)
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/board.png", s.serveBoard)
	return mux
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Health{
		Status:   "ok",
		Matches:  len(s.svc.Matches()),
		Sessions: s.svc.Sessions().Store().Len(),
		Conns:    s.conns.Load(),
	})
}

// serveBoard renders ?match_id= as a PNG with the last move highlighted.
func (s *Server) serveBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("match_id")
	st, err := s.svc.GameState(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	opts := boardimage.Options{Title: st.ID + " " + string(st.Status)}
	if n := len(st.Moves); n > 0 {
		opts.Highlight = &st.Moves[n-1]
	}
	data, err := boardimage.RenderPNG(r.Context(), st.Board, opts)
	if err != nil {
		s.logger.Warn("board_render_failed", zap.String("match_id", id), zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		OriginPatterns:  s.cfg.OriginPatterns,
	})
	if err != nil {
		s.logger.Warn("ws_accept_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	conn.SetReadLimit(s.cfg.ReadLimit)
	s.conns.Add(1)
	defer s.conns.Add(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	s.logger.Debug("ws_connected", zap.String("remote", r.RemoteAddr))

	go s.pingLoop(ctx, conn, cancel)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			s.logClosed(r.RemoteAddr, err)
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		if typ != websocket.MessageText {
			_ = conn.Close(websocket.StatusUnsupportedData, "text frames only")
			return
		}
		resp := s.handle(ctx, data)
		wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
		err = wsjson.Write(wctx, conn, resp)
		wcancel()
		if err != nil {
			s.logger.Warn("ws_write_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}
	}
}

// pingLoop drops the connection after two consecutive failed pings.
func (s *Server) pingLoop(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	t := time.NewTicker(s.cfg.PingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, pcancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			pcancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				s.logger.Debug("ws_ping_failed", zap.Error(err))
				cancel()
				return
			}
		}
	}
}

func (s *Server) logClosed(remote string, err error) {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		s.logger.Debug("ws_closed", zap.String("remote", remote))
	default:
		if errors.Is(err, context.Canceled) {
			s.logger.Debug("ws_closed", zap.String("remote", remote))
			return
		}
		s.logger.Info("ws_read_failed", zap.String("remote", remote), zap.Error(err))
	}
}

func (s *Server) handle(ctx context.Context, data []byte) Envelope {
	var req Envelope
	if err := json.Unmarshal(data, &req); err != nil {
		return Envelope{Type: "error", Error: s.render(&gungidto.DomainError{
			Code:    gungidto.CodeInvalidArgs,
			Message: "malformed frame",
		}, map[string]any{"Type": "?"}, "gateway.bad_request")}
	}
	out := Envelope{Type: req.Type, RequestID: req.RequestID}
	h, ok := s.handlers[req.Type]
	if !ok {
		out.Error = s.render(&gungidto.DomainError{
			Code:    gungidto.CodeInvalidArgs,
			Message: "unknown request type " + req.Type,
		}, map[string]any{"Type": req.Type}, "gateway.unknown_type")
		return out
	}

	r := h(ctx, req.Payload)
	if r.payload != nil {
		raw, err := json.Marshal(r.payload)
		if err != nil {
			s.logger.Error("ws_encode_failed", zap.String("type", req.Type), zap.Error(err))
			out.Error = &gungidto.DomainError{Code: gungidto.CodeInternal, Message: "internal error"}
			return out
		}
		out.Payload = raw
	}
	if r.err != nil {
		out.Error = s.render(r.err, r.data, "reject."+r.err.Code)
	}
	return out
}

// render replaces the error message with the catalog text for key.
func (s *Server) render(e *gungidto.DomainError, data map[string]any, key string) *gungidto.DomainError {
	if s.msgs == nil {
		return e
	}
	vars := map[string]any{"ID": "", "From": "", "To": "", "Type": ""}
	for k, v := range data {
		vars[k] = v
	}
	if msg, err := s.msgs.Render(key, vars); err == nil {
		out := *e
		out.Message = msg
		return &out
	}
	return e
}

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", session.ErrInvalidArgs)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", session.ErrInvalidArgs, err)
	}
	return nil
}

func fail(err error, data map[string]any) reply {
	return reply{err: arena.ToDomainError(err), data: data}
}
