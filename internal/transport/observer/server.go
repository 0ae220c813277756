package observer

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/observerproto"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/catalogs"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/config"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/dashboard"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/locale"
)

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

func WithCityName(name string) Option {
	return func(s *Server) { s.cityName = name }
}

// WithRemoteClients accepts connections from non-loopback addresses.
func WithRemoteClients() Option {
	return func(s *Server) { s.allowRemote = true }
}

// Server streams dashboard views to websocket observers and applies their
// configuration edits. It implements dashboard.Sink.
type Server struct {
	catalog  *catalogs.Catalog
	store    *config.Store
	labels   *locale.Table
	cityName string
	log      *zap.Logger

	allowRemote bool
	upgrader    websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
	latest   *dashboard.View
}

type session struct {
	id         string
	skipHidden bool
	out        chan []byte
}

var _ dashboard.Sink = (*Server)(nil)

func NewServer(catalog *catalogs.Catalog, store *config.Store, labels *locale.Table, opts ...Option) *Server {
	s := &Server{
		catalog:  catalog,
		store:    store,
		labels:   labels,
		log:      zap.NewNop(),
		sessions: map[string]*session{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router mounts the observer endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	v1 := r.PathPrefix("/v1/observer").Subrouter()
	v1.Use(s.loopbackOnly)
	v1.HandleFunc("/bootstrap", s.BootstrapHandler()).Methods(http.MethodGet)
	v1.HandleFunc("/config", s.ConfigHandler()).Methods(http.MethodGet)
	v1.HandleFunc("/ws", s.WSHandler())
	return r
}

func (s *Server) loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowRemote && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(rw, r)
	})
}

// Sessions returns the number of connected observers.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Publish fans v out to every session. It never blocks: a slow observer
// only ever holds the newest view.
func (s *Server) Publish(v dashboard.View) {
	full, err := json.Marshal(viewMsg(v, false))
	if err != nil {
		s.log.Error("encode view", zap.Error(err))
		return
	}
	var visible []byte

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &v
	for _, sess := range s.sessions {
		if !sess.skipHidden {
			sendLatest(sess.out, full)
			continue
		}
		if visible == nil {
			visible, err = json.Marshal(viewMsg(v, true))
			if err != nil {
				s.log.Error("encode view", zap.Error(err))
				return
			}
		}
		sendLatest(sess.out, visible)
	}
}

func (s *Server) bootstrap(sessionID string) observerproto.BootstrapResponse {
	cfg := s.store.Current()
	resp := observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		SessionID:       sessionID,
		CityName:        s.cityName,
		CatalogDigest:   s.catalog.Digest,
		Language:        s.labels.Language(),
		Categories:      make([]observerproto.CategoryInfo, 0, s.catalog.Len()),
		Panel: observerproto.PanelParams{
			Columns:            cfg.Panel.Columns,
			ItemWidth:          cfg.Panel.ItemWidth,
			ItemHeight:         cfg.Panel.ItemHeight,
			ItemPadding:        cfg.Panel.ItemPadding,
			UpdateEverySeconds: cfg.Panel.UpdateEverySeconds,
			AutoHide:           cfg.Panel.AutoHide,
		},
	}
	for _, c := range s.catalog.Categories() {
		cc := cfg.Category(c.ID)
		resp.Categories = append(resp.Categories, observerproto.CategoryInfo{
			ID:        string(c.ID),
			Group:     string(c.Group),
			Unit:      c.Unit.String(),
			Label:     s.labels.Label(c.LabelKey),
			Enabled:   cc.Enabled,
			Threshold: cc.Threshold,
		})
	}
	return resp
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.bootstrap(""))
	}
}

// ConfigHandler serves the active configuration as JSON.
func (s *Server) ConfigHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.store.Current())
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			closeWith(conn, websocket.ClosePolicyViolation, "bad subscribe")
			return
		}
		if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
			closeWith(conn, websocket.ClosePolicyViolation, "expected SUBSCRIBE")
			return
		}

		sess := &session{id: uuid.NewString(), skipHidden: sub.SkipHidden, out: make(chan []byte, 8)}
		hello, err := json.Marshal(s.bootstrap(sess.id))
		if err != nil {
			s.log.Error("encode bootstrap", zap.Error(err))
			closeWith(conn, websocket.CloseInternalServerErr, "bootstrap")
			return
		}
		// The hello goes out before the session can receive views.
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
			return
		}
		s.join(sess)
		defer s.leave(sess.id)
		s.log.Info("observer joined", zap.String("session_id", sess.id), zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: configuration edits.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			reply := s.handleClientMsg(msg)
			if b, err := json.Marshal(reply); err == nil {
				sendLatest(sess.out, b)
			}
		}

		cancel()
		closeWith(conn, websocket.CloseNormalClosure, "bye")

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		s.log.Info("observer left", zap.String("session_id", sess.id))
	}
}

func (s *Server) join(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.id] = sess
	if s.latest != nil {
		if b, err := json.Marshal(viewMsg(*s.latest, sess.skipHidden)); err == nil {
			sendLatest(sess.out, b)
		}
	}
}

func (s *Server) leave(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Server) handleClientMsg(msg []byte) observerproto.ReplyMsg {
	fail := func(text string) observerproto.ReplyMsg {
		return observerproto.ReplyMsg{Type: observerproto.TypeError, ProtocolVersion: observerproto.Version, Message: text}
	}
	var head struct {
		Type            string `json:"type"`
		ProtocolVersion string `json:"protocol_version"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		return fail("bad message")
	}
	if head.ProtocolVersion != observerproto.Version {
		return fail("unsupported protocol version")
	}
	switch head.Type {
	case observerproto.TypeSubscribe:
		return observerproto.ReplyMsg{Type: observerproto.TypeAck, ProtocolVersion: observerproto.Version}
	case observerproto.TypeConfig:
		var m observerproto.ConfigMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return fail("bad config message")
		}
		if err := s.applyConfig(m); err != nil {
			return fail(err.Error())
		}
		return observerproto.ReplyMsg{Type: observerproto.TypeAck, ProtocolVersion: observerproto.Version}
	default:
		return fail("unknown message type " + head.Type)
	}
}

func (s *Server) applyConfig(m observerproto.ConfigMsg) error {
	if m.Language != "" {
		s.labels.SetLanguage(m.Language)
	}
	return s.store.Update(func(c *config.Config) {
		if m.Category != "" {
			id := catalogs.ID(m.Category)
			// Unknown ids are left in place for Validate to reject.
			cat := c.Categories[id]
			if m.Enabled != nil {
				cat.Enabled = *m.Enabled
			}
			if m.Threshold != nil {
				cat.Threshold = *m.Threshold
			}
			c.Categories[id] = cat
		}
		if m.Columns != nil {
			c.Panel.Columns = *m.Columns
		}
		if m.Position != nil {
			c.Panel.PositionX, c.Panel.PositionY = m.Position[0], m.Position[1]
		}
	})
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
