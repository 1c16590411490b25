package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ExecutionStoppedReason string

const (
	ExecutionStoppedFinished    ExecutionStoppedReason = "finished"
	ExecutionStoppedInterrupted ExecutionStoppedReason = "interrupted"
	ExecutionStoppedError       ExecutionStoppedReason = "error"
)

// ComfyClientCallbacks are invoked from the websocket read loop. Any of them may be nil.
type ComfyClientCallbacks struct {
	QueueCountChanged func(*ComfyClient, int)
	ExecutionStarted  func(*ComfyClient, string)
	OutputsAvailable  func(*ComfyClient, *ExecutedOutput)
	ExecutionStopped  func(*ComfyClient, string, ExecutionStoppedReason)
}

// ComfyClient observes a ComfyUI server: it listens on the websocket for finished nodes and
// fetches their outputs over HTTP. It never queues prompts of its own.
type ComfyClient struct {
	baseURL    *url.URL
	clientid   string
	callbacks  *ComfyClientCallbacks
	httpclient *http.Client

	mu            sync.Mutex
	webSocket     *WebSocketConnection
	queuecount    int
	currentPrompt string
}

// NewComfyClient creates a client for the server at protocol://address:port.
func NewComfyClient(protocol string, address string, port int, callbacks *ComfyClientCallbacks) *ComfyClient {
	if protocol == "" {
		protocol = "http"
	}
	return &ComfyClient{
		baseURL:    &url.URL{Scheme: protocol, Host: address + ":" + strconv.Itoa(port)},
		clientid:   uuid.New().String(),
		callbacks:  callbacks,
		httpclient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ClientID returns the unique client ID sent to the ComfyUI backend
func (c *ComfyClient) ClientID() string {
	return c.clientid
}

// return the underlying http client
func (c *ComfyClient) HttpClient() *http.Client {
	return c.httpclient
}

// set the underlying http client
func (c *ComfyClient) SetHttpClient(client *http.Client) {
	c.httpclient = client
}

// BaseURL is the HTTP root of the server.
func (c *ComfyClient) BaseURL() string {
	return c.baseURL.String()
}

// QueueCount is the last queue length the server reported.
func (c *ComfyClient) QueueCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queuecount
}

func (c *ComfyClient) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *ComfyClient) websocketURL() string {
	u := *c.baseURL
	u.Scheme = "ws"
	if c.baseURL.Scheme == "https" {
		u.Scheme = "wss"
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"clientId": {c.clientid}}.Encode()
	return u.String()
}

// Connect opens the websocket. maxRetry bounds the reconnection attempts and
// timeoutSeconds the wait for the first successful connection (0 to not wait, negative to
// wait forever).
func (c *ComfyClient) Connect(timeoutSeconds int, maxRetry int) error {
	c.mu.Lock()
	if c.webSocket != nil {
		c.mu.Unlock()
		return nil
	}
	ws := &WebSocketConnection{
		WebSocketURL:   c.websocketURL(),
		ConnectionDone: make(chan bool, 1),
		MaxRetry:       maxRetry,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		Callback:       c,
	}
	c.webSocket = ws
	c.mu.Unlock()

	return ws.ConnectWithManager(timeoutSeconds)
}

// Done receives a single value once the websocket read loop has ended or the connection
// attempts were given up.
func (c *ComfyClient) Done() <-chan bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.webSocket == nil {
		return nil
	}
	return c.webSocket.ConnectionDone
}

// Close shuts the websocket down.
func (c *ComfyClient) Close() error {
	c.mu.Lock()
	ws := c.webSocket
	c.webSocket = nil
	c.mu.Unlock()
	if ws == nil {
		return nil
	}
	return ws.Close()
}

// OnMessage implements WebSocketCallback.
func (c *ComfyClient) OnMessage(msg string) {
	c.OnWindowSocketMessage(msg)
}

// OnWindowSocketMessage processes one message received from the websocket connection to
// ComfyUI and dispatches it to the callbacks.
func (c *ComfyClient) OnWindowSocketMessage(msg string) {
	message := &WSStatusMessage{}
	if err := json.Unmarshal([]byte(msg), message); err != nil {
		slog.Error("Deserializing Status Message:", "error", err)
		return
	}
	cb := c.callbacks
	if cb == nil {
		cb = &ComfyClientCallbacks{}
	}

	switch message.Type {
	case "status":
		s := message.Data.(*WSMessageDataStatus)
		c.mu.Lock()
		c.queuecount = s.Status.ExecInfo.QueueRemaining
		c.mu.Unlock()
		if cb.QueueCountChanged != nil {
			cb.QueueCountChanged(c, s.Status.ExecInfo.QueueRemaining)
		}
	case "execution_start":
		s := message.Data.(*WSMessageDataExecutionStart)
		c.mu.Lock()
		c.currentPrompt = s.PromptID
		c.mu.Unlock()
		if cb.ExecutionStarted != nil {
			cb.ExecutionStarted(c, s.PromptID)
		}
	case "executing":
		s := message.Data.(*WSMessageDataExecuting)
		if s.Node == nil && cb.ExecutionStopped != nil {
			// a nil node means the final node was processed
			cb.ExecutionStopped(c, c.promptOr(s.PromptID), ExecutionStoppedFinished)
		}
	case "executed":
		s := message.Data.(*WSMessageDataExecuted)
		out := &ExecutedOutput{
			PromptID: c.promptOr(s.PromptID),
			NodeID:   s.Node,
			Outputs:  s.Output,
		}
		if cb.OutputsAvailable != nil {
			cb.OutputsAvailable(c, out)
		}
	case "execution_interrupted":
		s := message.Data.(*WSMessageExecutionInterrupted)
		if cb.ExecutionStopped != nil {
			cb.ExecutionStopped(c, c.promptOr(s.PromptID), ExecutionStoppedInterrupted)
		}
	case "execution_error":
		s := message.Data.(*WSMessageExecutionError)
		slog.Warn("Execution error", "node_id", s.Node, "node_type", s.NodeType, "error", s.ExceptionMessage)
		if cb.ExecutionStopped != nil {
			cb.ExecutionStopped(c, c.promptOr(s.PromptID), ExecutionStoppedError)
		}
	case "execution_cached", "progress", "progress_state", "execution_success", "crystools.monitor":
	default:
		slog.Debug("Unhandled message type", "type", message.Type)
	}
}

func (c *ComfyClient) promptOr(id string) string {
	if id != "" {
		return id
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPrompt
}

func (c *ComfyClient) get(path string, query url.Values) (*http.Response, error) {
	resp, err := c.httpclient.Get(c.endpoint(path, query))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return resp, nil
}
