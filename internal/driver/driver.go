// Package driver controls a browser over the Chrome DevTools Protocol.
package driver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"clicker/internal/fault"
)

// ErrClosed is returned for calls on a closed or dropped connection
var ErrClosed = errors.New("devtools connection closed")

const remediation = "Start the browser with --remote-debugging-port=9222 (or set CLICKER_CDP_ENDPOINT) and retry"

// Version is the /json/version handshake payload
type Version struct {
	Browser              string `json:"Browser"`
	ProtocolVersion      string `json:"Protocol-Version"`
	UserAgent            string `json:"User-Agent"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// FetchVersion performs the HTTP handshake against a DevTools endpoint
func FetchVersion(ctx context.Context, endpoint string) (Version, error) {
	url := strings.TrimRight(endpoint, "/") + "/json/version"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Version{}, fmt.Errorf("failed to build handshake request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Version{}, fault.Environment("driver handshake", "automation driver unreachable at "+endpoint, remediation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Version{}, fault.Environment("driver handshake", fmt.Sprintf("unexpected status %s from %s", resp.Status, url), remediation, nil)
	}

	var v Version
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return Version{}, fault.Environment("driver handshake", "invalid /json/version payload", remediation, err)
	}
	if v.WebSocketDebuggerURL == "" {
		return Version{}, fault.Environment("driver handshake", "endpoint did not report a debugger URL", remediation, nil)
	}
	return v, nil
}

type request struct {
	ID        int64  `json:"id"`
	Method    string `json:"method"`
	Params    any    `json:"params,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type response struct {
	ID     int64           `json:"id"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Driver is a connection to a browser's DevTools websocket
type Driver struct {
	conn    *websocket.Conn
	version Version

	writeMu sync.Mutex
	nextID  atomic.Int64

	mu        sync.Mutex
	pending   map[int64]chan response
	sessionID string
	width     int
	height    int
	closed    bool

	done chan struct{}
}

// Connect performs the handshake and opens the browser websocket
func Connect(ctx context.Context, endpoint string) (*Driver, error) {
	v, err := FetchVersion(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, v.WebSocketDebuggerURL, nil)
	if err != nil {
		return nil, fault.Environment("driver connect", "cannot open DevTools websocket", remediation, err)
	}
	log.Printf("Driver: Connected to %s (protocol %s)", v.Browser, v.ProtocolVersion)

	d := &Driver{
		conn:    conn,
		version: v,
		pending: make(map[int64]chan response),
		done:    make(chan struct{}),
	}
	go d.readPump()
	return d, nil
}

// Version returns the handshake payload
func (d *Driver) Version() Version {
	return d.version
}

func (d *Driver) readPump() {
	defer close(d.done)
	for {
		_, data, err := d.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Driver: Read error: %v", err)
			}
			break
		}

		var msg response
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Driver: Invalid message: %v", err)
			continue
		}
		if msg.ID == 0 {
			// Protocol events are not consumed
			continue
		}

		d.mu.Lock()
		ch, ok := d.pending[msg.ID]
		delete(d.pending, msg.ID)
		d.mu.Unlock()
		if ok {
			ch <- msg
		}
	}

	d.mu.Lock()
	d.closed = true
	for id, ch := range d.pending {
		close(ch)
		delete(d.pending, id)
	}
	d.mu.Unlock()
}

// call sends one command and decodes its result into out (may be nil)
func (d *Driver) call(ctx context.Context, method string, params any, out any) error {
	id := d.nextID.Add(1)
	ch := make(chan response, 1)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.pending[id] = ch
	session := d.sessionID
	d.mu.Unlock()

	if strings.HasPrefix(method, "Target.") {
		session = ""
	}
	data, err := json.Marshal(request{ID: id, Method: method, Params: params, SessionID: session})
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", method, err)
	}

	d.writeMu.Lock()
	d.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	err = d.conn.WriteMessage(websocket.TextMessage, data)
	d.writeMu.Unlock()
	if err != nil {
		d.forget(id)
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if resp.Error != nil {
			return fmt.Errorf("%s failed: %s (%d)", method, resp.Error.Message, resp.Error.Code)
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("failed to decode %s result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		d.forget(id)
		return ctx.Err()
	}
}

func (d *Driver) forget(id int64) {
	d.mu.Lock()
	delete(d.pending, id)
	d.mu.Unlock()
}

// OpenPage creates a page target, sizes its viewport and navigates to url
func (d *Driver) OpenPage(ctx context.Context, url string, width, height int) error {
	var target struct {
		TargetID string `json:"targetId"`
	}
	if err := d.call(ctx, "Target.createTarget", map[string]any{"url": "about:blank"}, &target); err != nil {
		return err
	}

	var attached struct {
		SessionID string `json:"sessionId"`
	}
	if err := d.call(ctx, "Target.attachToTarget", map[string]any{"targetId": target.TargetID, "flatten": true}, &attached); err != nil {
		return err
	}

	d.mu.Lock()
	d.sessionID = attached.SessionID
	d.width, d.height = width, height
	d.mu.Unlock()

	if err := d.call(ctx, "Emulation.setDeviceMetricsOverride", map[string]any{
		"width":             width,
		"height":            height,
		"deviceScaleFactor": 1,
		"mobile":            false,
	}, nil); err != nil {
		return err
	}
	if err := d.call(ctx, "Page.enable", nil, nil); err != nil {
		return err
	}

	var nav struct {
		ErrorText string `json:"errorText"`
	}
	if err := d.call(ctx, "Page.navigate", map[string]any{"url": url}, &nav); err != nil {
		return err
	}
	if nav.ErrorText != "" {
		return fmt.Errorf("navigation to %s failed: %s", url, nav.ErrorText)
	}
	log.Printf("Driver: Opened %s at %dx%d", url, width, height)
	return nil
}

// Viewport returns the emulated viewport size set by OpenPage
func (d *Driver) Viewport() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

// Click dispatches a left click at viewport coordinates
func (d *Driver) Click(ctx context.Context, x, y float64) error {
	base := map[string]any{"x": x, "y": y}
	if err := d.call(ctx, "Input.dispatchMouseEvent", with(base, "type", "mouseMoved"), nil); err != nil {
		return err
	}
	press := with(base, "type", "mousePressed")
	press["button"] = "left"
	press["clickCount"] = 1
	if err := d.call(ctx, "Input.dispatchMouseEvent", press, nil); err != nil {
		return err
	}
	release := with(press, "type", "mouseReleased")
	return d.call(ctx, "Input.dispatchMouseEvent", release, nil)
}

func with(m map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out
}

// Screenshot captures the page as PNG
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	var shot struct {
		Data string `json:"data"`
	}
	if err := d.call(ctx, "Page.captureScreenshot", map[string]any{"format": "png"}, &shot); err != nil {
		return nil, err
	}
	png, err := base64.StdEncoding.DecodeString(shot.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return png, nil
}

// Evaluate runs expr in the page and decodes its value into out
func (d *Driver) Evaluate(ctx context.Context, expr string, out any) error {
	var res struct {
		Result struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	err := d.call(ctx, "Runtime.evaluate", map[string]any{
		"expression":    expr,
		"returnByValue": true,
		"awaitPromise":  true,
	}, &res)
	if err != nil {
		return err
	}
	if res.ExceptionDetails != nil {
		return fmt.Errorf("script exception: %s", res.ExceptionDetails.Text)
	}
	if out == nil || len(res.Result.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Result.Value, out); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

// Close closes the websocket
func (d *Driver) Close() error {
	d.writeMu.Lock()
	d.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	d.writeMu.Unlock()
	err := d.conn.Close()
	<-d.done
	return err
}
