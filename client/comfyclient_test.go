package client

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const executedMessage = `{"type": "executed", "data": {"node": "57:8", "output": {"images": [{"filename": "ComfyUI_00046_.png", "subfolder": "", "type": "output"}, {"filename": "ComfyUI_temp_0001_.png", "subfolder": "previews", "type": "temp"}], "text": ["hello", 3]}, "prompt_id": "p-1"}}`

func clientFor(t *testing.T, srv *httptest.Server, callbacks *ComfyClientCallbacks) *ComfyClient {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return NewComfyClient("http", u.Hostname(), port, callbacks)
}

func TestDecodeExecuted(t *testing.T) {
	msg := &WSStatusMessage{}
	require.NoError(t, msg.UnmarshalJSON([]byte(executedMessage)))
	require.Equal(t, "executed", msg.Type)

	data := msg.Data.(*WSMessageDataExecuted)
	assert.Equal(t, "57:8", data.Node)
	assert.Equal(t, "p-1", data.PromptID)
	require.Len(t, data.Output["images"], 2)
	assert.True(t, data.Output["images"][1].IsTemp())
	assert.Equal(t, []DataOutput{{Type: "text", Text: "hello"}}, data.Output["text"])

	files := (&ExecutedOutput{Outputs: data.Output}).Files()
	require.Len(t, files, 2)
	assert.Equal(t, "ComfyUI_00046_.png", files[0].Filename)
}

func TestOnWindowSocketMessageDispatch(t *testing.T) {
	var (
		queue   int
		started string
		outputs []*ExecutedOutput
		stopped []ExecutionStoppedReason
	)
	c := NewComfyClient("http", "localhost", 8188, &ComfyClientCallbacks{
		QueueCountChanged: func(_ *ComfyClient, n int) { queue = n },
		ExecutionStarted:  func(_ *ComfyClient, id string) { started = id },
		OutputsAvailable:  func(_ *ComfyClient, o *ExecutedOutput) { outputs = append(outputs, o) },
		ExecutionStopped: func(_ *ComfyClient, _ string, r ExecutionStoppedReason) {
			stopped = append(stopped, r)
		},
	})

	c.OnWindowSocketMessage(`{"type": "status", "data": {"status": {"exec_info": {"queue_remaining": 2}}}}`)
	c.OnWindowSocketMessage(`{"type": "execution_start", "data": {"prompt_id": "p-1"}}`)
	c.OnWindowSocketMessage(`{"type": "executing", "data": {"node": "57:8", "prompt_id": "p-1"}}`)
	c.OnWindowSocketMessage(executedMessage)
	c.OnWindowSocketMessage(`{"type": "executing", "data": {"node": null, "prompt_id": "p-1"}}`)
	c.OnWindowSocketMessage(`{"type": "execution_error", "data": {"prompt_id": "p-2", "node_id": "3", "exception_message": "boom"}}`)
	c.OnWindowSocketMessage(`{"type": "mystery"}`)
	c.OnWindowSocketMessage(`not json`)

	assert.Equal(t, 2, queue)
	assert.Equal(t, 2, c.QueueCount())
	assert.Equal(t, "p-1", started)
	require.Len(t, outputs, 1)
	assert.Equal(t, "57:8", outputs[0].NodeID)
	assert.Equal(t, []ExecutionStoppedReason{ExecutionStoppedFinished, ExecutionStoppedError}, stopped)
}

func TestGetImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/view" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		fmt.Fprintf(w, "%s|%s|%s", q.Get("filename"), q.Get("subfolder"), q.Get("type"))
	}))
	defer srv.Close()

	c := clientFor(t, srv, nil)
	data, err := c.GetImage(DataOutput{Filename: "a b.png", Subfolder: "x", Type: "output"})
	require.NoError(t, err)
	assert.Equal(t, "a b.png|x|output", string(data))

	_, err = c.GetSystemStats()
	assert.Error(t, err, "404 must surface as an error")
}

func TestGetSystemStatsAndHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/system_stats":
			fmt.Fprint(w, `{"system": {"os": "posix", "python_version": "3.11"}, "devices": [{"name": "cuda:0", "vram_total": 100}]}`)
		case "/history/p-1":
			fmt.Fprint(w, `{"p-1": {"prompt": [1, "p-1", {}, {}, ["9"]], "outputs": {"9": {"images": [{"filename": "out.png", "subfolder": "", "type": "output"}]}}}}`)
		case "/prompt":
			fmt.Fprint(w, `{"exec_info": {"queue_remaining": 4}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := clientFor(t, srv, nil)
	stats, err := c.GetSystemStats()
	require.NoError(t, err)
	assert.Equal(t, "posix", stats.System.OS)
	require.Len(t, stats.Devices, 1)
	assert.Equal(t, int64(100), stats.Devices[0].VRAM_Total)

	outputs, err := c.GetPromptOutputs("p-1")
	require.NoError(t, err)
	assert.Equal(t, "out.png", outputs["9"]["images"][0].Filename)

	_, err = c.GetPromptOutputs("p-2")
	assert.Error(t, err)

	info, err := c.GetQueueExecutionInfo()
	require.NoError(t, err)
	assert.Equal(t, 4, info.ExecInfo.QueueRemaining)
}

func TestWebSocketFollow(t *testing.T) {
	upgrader := websocket.Upgrader{}
	clientIDs := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		clientIDs <- r.URL.Query().Get("clientId")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(executedMessage))
		// keep the socket open until the client hangs up
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	received := make(chan *ExecutedOutput, 1)
	c := clientFor(t, srv, &ComfyClientCallbacks{
		OutputsAvailable: func(_ *ComfyClient, o *ExecutedOutput) {
			received <- o
		},
	})

	require.NoError(t, c.Connect(5, 0))
	defer c.Close()

	select {
	case o := <-received:
		assert.Equal(t, "p-1", o.PromptID)
		assert.Len(t, o.Files(), 2)
	case <-time.After(5 * time.Second):
		t.Fatal("no executed message received")
	}
	assert.Equal(t, c.ClientID(), <-clientIDs)
}

func TestDialAfterCloseIsDropped(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	received := false
	ws := &WebSocketConnection{
		WebSocketURL:   "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		ConnectionDone: make(chan bool, 1),
		Callback:       callbackFunc(func(string) { received = true }),
	}
	require.NoError(t, ws.Close())

	err := ws.ConnectWithManager(5)
	assert.ErrorIs(t, err, errConnectionClosed)
	select {
	case <-ws.ConnectionDone:
	case <-time.After(5 * time.Second):
		t.Fatal("done was not signalled")
	}
	assert.Nil(t, ws.Conn, "a late connection must not be kept")
	assert.False(t, received)
}

type callbackFunc func(string)

func (f callbackFunc) OnMessage(msg string) { f(msg) }

func TestConnectFailsAfterRetries(t *testing.T) {
	c := NewComfyClient("http", "127.0.0.1", 1, nil)
	err := c.Connect(5, 0)
	assert.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	c := NewComfyClient("https", "gpu-box", 443, nil)
	assert.Equal(t, "https://gpu-box:443", c.BaseURL())
	assert.Equal(t, "wss://gpu-box:443/ws?clientId="+c.ClientID(), c.websocketURL())
}
