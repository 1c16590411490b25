package client

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errConnectionClosed = errors.New("websocket closed")

// Callback interface for handling incoming WebSocket messages
type WebSocketCallback interface {
	OnMessage(message string)
}

type WebSocketConnection struct {
	WebSocketURL   string
	Conn           *websocket.Conn
	ConnectionDone chan bool
	MaxRetry       int
	RetryCount     int
	mu             sync.Mutex // guards Conn and closed
	closed         bool
	Callback       WebSocketCallback

	// Exponential backoff configuration
	BaseDelay time.Duration // The initial delay, e.g., 1 second
	MaxDelay  time.Duration // The maximum delay, e.g., 1 minute
	Dialer    websocket.Dialer
}

// ConnectWithManager connects to the WebSocket using a connection manager
// timeoutSeconds is the maximum time to wait for a successful connection (0 to return at once,
// negative to wait forever)
func (w *WebSocketConnection) ConnectWithManager(timeoutSeconds int) error {
	// Channel to signal the outcome of the connection attempts
	result := make(chan error, 1)
	// Channel for connection attempts (ensures connect() is not called concurrently)
	attemptConnect := make(chan bool, 1)
	attemptConnect <- true // Trigger the first connection attempt immediately

	go func() {
		retries := 0
		for range attemptConnect {
			err := w.connect()
			if err == nil {
				result <- nil
				w.handleMessages()
				return
			}
			if errors.Is(err, errConnectionClosed) {
				result <- err
				w.signalDone()
				return
			}
			slog.Error("Connection attempt failed", "url", w.WebSocketURL, "error", err)

			retries++
			if retries > w.MaxRetry || w.isClosed() {
				result <- fmt.Errorf("maximum number of retries reached (%d): %w", w.MaxRetry, err)
				w.signalDone()
				return
			}

			// Wait a bit before retrying to connect
			time.AfterFunc(w.getReconnectDelay(), func() {
				attemptConnect <- true
			})
		}
	}()

	switch {
	case timeoutSeconds > 0:
		timeout := time.Duration(timeoutSeconds) * time.Second
		select {
		case err := <-result:
			return err
		case <-time.After(timeout):
			return fmt.Errorf("connection timeout after %v", timeout)
		}
	case timeoutSeconds < 0:
		// wait indefinitely
		return <-result
	}
	return nil
}

func (w *WebSocketConnection) connect() error {
	conn, _, err := w.Dialer.Dial(w.WebSocketURL, nil)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	// Close may have run while dialing, e.g. after ConnectWithManager timed out
	if w.closed {
		conn.Close()
		return errConnectionClosed
	}
	w.Conn = conn
	w.RetryCount = 0
	return nil
}

func (w *WebSocketConnection) Ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Conn == nil {
		return fmt.Errorf("not connected")
	}
	return w.Conn.WriteMessage(websocket.PingMessage, nil)
}

// Close ends the read loop. It is safe to call more than once.
func (w *WebSocketConnection) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.Conn == nil {
		return nil
	}
	return w.Conn.Close()
}

func (w *WebSocketConnection) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *WebSocketConnection) signalDone() {
	select {
	case w.ConnectionDone <- true:
	default:
	}
}

// Handle incoming WebSocket messages
func (w *WebSocketConnection) handleMessages() {
	defer func() {
		w.Close()
		w.signalDone()
	}()
	for {
		_, message, err := w.Conn.ReadMessage()
		if err != nil {
			if !w.isClosed() {
				slog.Warn("Websocket read error", "error", err)
			}
			return
		}
		if w.Callback != nil {
			w.Callback.OnMessage(string(message))
		}
	}
}

// exponential backoff calculation
func (w *WebSocketConnection) getReconnectDelay() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	// Calculate the delay as BaseDelay * 2^(RetryCount), capped at MaxDelay
	delay := w.BaseDelay * time.Duration(math.Pow(2, float64(w.RetryCount)))
	if delay > w.MaxDelay {
		delay = w.MaxDelay
	}
	w.RetryCount++ // Increment the retry counter for the next attempt
	return delay
}
