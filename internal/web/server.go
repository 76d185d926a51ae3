package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guidoenr/retrobars/internal/params"
	"github.com/guidoenr/retrobars/internal/render"
	"github.com/guidoenr/retrobars/internal/scheduler"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

const (
	statusInterval = 500 * time.Millisecond
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
	maxPreviewSize = 4096
)

// Controller is the view of the running animation the server exposes.
type Controller interface {
	Signal() *scheduler.Signal
	Visual() params.VisualConfig
	Stats() scheduler.Stats
	State() scheduler.State
	Size() (int, int)
	FPS() float64
	Snapshot() image.Image
	Restart()
}

type Server struct {
	mu        sync.RWMutex
	ctrl      Controller
	log       *zap.Logger
	clients   map[*websocketClient]bool
	broadcast chan []byte
	upgrader  websocket.Upgrader
}

type websocketClient struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

type StatusResponse struct {
	State   string          `json:"state"`
	Excited bool            `json:"excited"`
	Palette render.Palette  `json:"palette"`
	FPS     float64         `json:"fps"`
	Width   int             `json:"width"`
	Height  int             `json:"height"`
	Stats   scheduler.Stats `json:"stats"`
}

// ExcitedRequest is accepted by POST /api/excited and over the websocket.
type ExcitedRequest struct {
	Excited *bool `json:"excited"`
}

func NewServer(ctrl Controller, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		ctrl:      ctrl,
		log:       log,
		clients:   make(map[*websocketClient]bool),
		broadcast: make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns the routes without starting the background loops.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/palettes", s.handlePalettes)
	mux.HandleFunc("/api/excited", s.handleExcited)
	mux.HandleFunc("/api/restart", s.handleRestart)
	mux.HandleFunc("/api/frame.png", s.handleFrame)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.log.Info("web server listening", zap.String("addr", ln.Addr().String()))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.broadcastLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.statusUpdateLoop(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	err := srv.Shutdown(shutdownCtx)
	s.closeClients()
	<-errCh
	wg.Wait()
	return err
}

func (s *Server) status() StatusResponse {
	excited := s.ctrl.Signal().Excited()
	w, h := s.ctrl.Size()
	return StatusResponse{
		State:   s.ctrl.State().String(),
		Excited: excited,
		Palette: render.Select(excited),
		FPS:     s.ctrl.FPS(),
		Width:   w,
		Height:  h,
		Stats:   s.ctrl.Stats(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Visual())
}

func (s *Server) handlePalettes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, render.Palettes())
}

func (s *Server) handleExcited(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req ExcitedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Excited == nil {
		http.Error(w, "missing field \"excited\"", http.StatusBadRequest)
		return
	}
	s.ctrl.Signal().Set(*req.Excited)
	s.log.Debug("excited set over http", zap.Bool("excited", *req.Excited))
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.ctrl.Restart()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "restarting"})
}

// handleFrame encodes the latest snapshot, optionally scaled down to ?w=.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	img := s.ctrl.Snapshot()
	if img == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	if raw := r.URL.Query().Get("w"); raw != "" {
		width, err := strconv.Atoi(raw)
		if err != nil || width <= 0 || width > maxPreviewSize {
			http.Error(w, "invalid width", http.StatusBadRequest)
			return
		}
		img = scaleToWidth(img, width)
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, img); err != nil {
		s.log.Warn("encode frame", zap.Error(err))
	}
}

func scaleToWidth(src image.Image, width int) image.Image {
	b := src.Bounds()
	if b.Dx() <= width {
		return src
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", zap.Error(err))
		return
	}

	client := &websocketClient{
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()

	go client.writePump()
	go client.readPump()
}

func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-s.broadcast:
			s.mu.Lock()
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(s.clients, client)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *Server) statusUpdateLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		data, err := json.Marshal(s.status())
		if err != nil {
			continue
		}
		select {
		case s.broadcast <- data:
		default:
			// drop if channel full
		}
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		close(client.send)
		delete(s.clients, client)
	}
}

func (s *Server) removeClient(c *websocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[c] {
		close(c.send)
		delete(s.clients, c)
	}
}

func (c *websocketClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var req ExcitedRequest
		if err := json.Unmarshal(message, &req); err != nil || req.Excited == nil {
			c.server.log.Debug("ignoring websocket message", zap.ByteString("message", message))
			continue
		}
		c.server.ctrl.Signal().Set(*req.Excited)
	}
}

func (c *websocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
