// Package ingest is the collector the nodes report to. It keeps the latest
// reading, integrates daily energy, serves a status document and fans each
// reading out to websocket clients through the bus.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"powernode-go/bus"
	"powernode-go/services/config"
)

// TopicLatest carries the latest reading as a retained message.
var TopicLatest = bus.T("energy", "latest")

const maxBody = 4 << 10

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

type Server struct {
	cfg  config.Ingest
	log  *zap.Logger
	bus  *bus.Bus
	conn *bus.Connection
	now  func() time.Time

	mu     sync.Mutex
	latest Reading
	meter  *Meter

	http *http.Server
}

// New constructs a Server without starting it.
func New(cfg config.Ingest, log *zap.Logger) *Server {
	cfg.Normalize()
	b := bus.NewBus(16)
	s := &Server{
		cfg:   cfg,
		log:   log,
		bus:   b,
		conn:  b.NewConnection("ingest"),
		now:   time.Now,
		meter: NewMeter(time.Duration(cfg.MaxGapMs) * time.Millisecond),
	}
	s.http = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed, logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/energy", s.energy)
	mux.HandleFunc("GET /status", s.status)
	mux.HandleFunc("POST /control", s.control)
	mux.HandleFunc("GET /ws", s.stream)
	return withLogging(s.log, mux)
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("ingest: listen %s: %w", s.cfg.Listen, err)
	}
	s.log.Info("ingest listening", zap.String("addr", ln.Addr().String()))

	srvErr := make(chan error, 1)
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down ingest")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutCtx)
	case err := <-srvErr:
		return err
	}
}

// Latest returns the last accepted reading.
func (s *Server) Latest() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Server) energy(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, ack{Status: "ERROR", Message: "body too large"})
		return
	}
	rd, err := decodeReading(body)
	if err != nil {
		s.log.Warn("rejected reading", zap.Error(err), zap.ByteString("body", body))
		writeJSON(w, http.StatusBadRequest, ack{Status: "ERROR", Message: "invalid reading"})
		return
	}
	rd.ReceivedAt = s.now()

	s.mu.Lock()
	s.latest = rd
	s.meter.Add(rd.ReceivedAt, rd.PA+rd.PB)
	s.mu.Unlock()

	s.conn.Publish(&bus.Message{Topic: TopicLatest, Payload: rd, Retained: true})
	s.log.Info("received",
		zap.Uint32("t", rd.T),
		zap.Uint32("pA", rd.PA),
		zap.Uint32("pB", rd.PB),
		zap.Bool("fan", rd.Fan),
	)
	writeJSON(w, http.StatusOK, ack{Status: "OK", Message: "Data received"})
}

type ack struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type load struct {
	Power uint32 `json:"power"`
	State string `json:"state"`
}

type statusDoc struct {
	Totals struct {
		TotalPower     uint32  `json:"total_power"`
		EnergyTodayKWh float64 `json:"energy_today_kWh"`
	} `json:"totals"`
	Loads struct {
		FanA load `json:"fanA"`
		FanB load `json:"fanB"`
	} `json:"loads"`
	Fan struct {
		State string `json:"state"`
	} `json:"fan"`
	AutoControlEnabled bool `json:"auto_control_enabled"`
	Thresholds         struct {
		FanPowerLimit   uint32 `json:"fan_power_limit"`
		TotalPowerLimit uint32 `json:"total_power_limit"`
	} `json:"thresholds"`
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	rd := s.latest
	kwh := s.meter.TodayKWh()
	s.mu.Unlock()

	limit := uint32(s.cfg.ThresholdMw)
	var doc statusDoc
	doc.Totals.TotalPower = rd.PA + rd.PB
	doc.Totals.EnergyTodayKWh = kwh
	doc.Loads.FanA = load{Power: rd.PA, State: onOff(rd.PA > limit)}
	doc.Loads.FanB = load{Power: rd.PB, State: onOff(rd.PB > limit)}
	doc.Fan.State = onOff(rd.Fan)
	doc.Thresholds.FanPowerLimit = limit
	doc.Thresholds.TotalPowerLimit = s.cfg.TotalLimitMw
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) control(w http.ResponseWriter, r *http.Request) {
	var cmd map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, ack{Status: "ERROR", Message: "invalid command"})
		return
	}
	s.log.Info("control command received", zap.Any("command", cmd))
	writeJSON(w, http.StatusOK, ack{Status: "OK", Message: "Command received"})
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	ws, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade", zap.Error(err))
		return
	}
	defer ws.Close()

	conn := s.bus.NewConnection(r.RemoteAddr)
	defer conn.Disconnect()
	sub := conn.Subscribe(TopicLatest)

	// The reader only exists to notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(time.Duration(s.cfg.PingIntervalSec) * time.Second)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			if err := ws.WriteJSON(msg.Payload); err != nil {
				s.log.Debug("ws write", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func withLogging(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rw, r)
		log.Debug("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.code),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	code int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.code = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade through the logging wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("ingest: response writer cannot hijack")
	}
	return h.Hijack()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
