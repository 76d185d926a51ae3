package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guidoenr/retrobars/internal/params"
	"github.com/guidoenr/retrobars/internal/render"
	"github.com/guidoenr/retrobars/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	signal   scheduler.Signal
	frame    atomic.Pointer[image.RGBA]
	restarts atomic.Int32
}

func (f *fakeController) Signal() *scheduler.Signal { return &f.signal }
func (f *fakeController) Visual() params.VisualConfig { return params.Defaults() }
func (f *fakeController) Stats() scheduler.Stats { return scheduler.Stats{Frames: 7} }
func (f *fakeController) State() scheduler.State { return scheduler.Running }
func (f *fakeController) Size() (int, int) { return 320, 200 }
func (f *fakeController) FPS() float64 { return 60 }
func (f *fakeController) Restart() { f.restarts.Add(1) }

func (f *fakeController) Snapshot() image.Image {
	if img := f.frame.Load(); img != nil {
		return img
	}
	return nil
}

func newTestServer(t *testing.T, ctrl *fakeController) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewServer(ctrl, nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestStatusReportsPalette(t *testing.T) {
	ctrl := &fakeController{}
	ts := newTestServer(t, ctrl)

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "running", status.State)
	assert.False(t, status.Excited)
	assert.Equal(t, render.Calm, status.Palette)
	assert.Equal(t, 320, status.Width)
	assert.Equal(t, uint64(7), status.Stats.Frames)
}

func TestConfigEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeController{})

	resp, err := http.Get(ts.URL + "/api/config")
	require.NoError(t, err)
	defer resp.Body.Close()

	var cfg params.VisualConfig
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	assert.Equal(t, params.Defaults(), cfg)
}

func TestExcitedEndpoint(t *testing.T) {
	ctrl := &fakeController{}
	ts := newTestServer(t, ctrl)

	resp, err := http.Post(ts.URL+"/api/excited", "application/json", strings.NewReader(`{"excited":true}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, ctrl.signal.Excited())

	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, render.Excited, status.Palette)
}

func TestExcitedEndpointRejectsBadRequests(t *testing.T) {
	ctrl := &fakeController{}
	ts := newTestServer(t, ctrl)

	resp, err := http.Get(ts.URL + "/api/excited")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	for _, body := range []string{`{}`, `not json`} {
		resp, err := http.Post(ts.URL+"/api/excited", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	assert.False(t, ctrl.signal.Excited())
}

func TestPalettesEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeController{})

	resp, err := http.Get(ts.URL + "/api/palettes")
	require.NoError(t, err)
	defer resp.Body.Close()

	var palettes []render.Palette
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&palettes))
	assert.Equal(t, []render.Palette{render.Calm, render.Excited}, palettes)
}

func TestRestartEndpoint(t *testing.T) {
	ctrl := &fakeController{}
	ts := newTestServer(t, ctrl)

	resp, err := http.Post(ts.URL+"/api/restart", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, int32(1), ctrl.restarts.Load())
}

func TestFrameEndpoint(t *testing.T) {
	ctrl := &fakeController{}
	ts := newTestServer(t, ctrl)

	resp, err := http.Get(ts.URL + "/api/frame.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	ctrl.frame.Store(img)

	resp, err = http.Get(ts.URL + "/api/frame.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	decoded, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	resp, err = http.Get(ts.URL + "/api/frame.png?w=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	scaled, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 5), scaled.Bounds())

	resp, err = http.Get(ts.URL + "/api/frame.png?w=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebSocketSetsExcited(t *testing.T) {
	ctrl := &fakeController{}
	ts := newTestServer(t, ctrl)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"excited":true}`)))
	require.Eventually(t, ctrl.signal.Excited, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`garbage`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"excited":false}`)))
	require.Eventually(t, func() bool { return !ctrl.signal.Excited() }, time.Second, 5*time.Millisecond)
}

func TestServeBroadcastsStatusAndStops(t *testing.T) {
	ctrl := &fakeController{}
	srv := NewServer(ctrl, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "ws://" + ln.Addr().String() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(message, &status))
	assert.Equal(t, "running", status.State)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
