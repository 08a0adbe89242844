package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.NotifyAddr == "" {
		s.T().Skip("NOTIFY_ADDR not set, skipping end-to-end suite")
	}
}

// Client is a WebSocket test client that decodes every frame as a JSON object.
type Client struct {
	t     *testing.T
	conn  *websocket.Conn
	debug bool
}

// Dial opens a client for the given user, printing a colorized header for the step.
func (s *BaseWsSuite) Dial(name, userID, role string) *Client {
	t := s.T()
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	u := url.URL{Scheme: "ws", Host: s.Config.NotifyAddr, Path: "/ws/" + userID}
	if role != "" {
		u.RawQuery = url.Values{"role": {role}}.Encode()
	}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	s.Require().NoError(err, "Failed to connect to "+u.String())
	t.Cleanup(func() { _ = conn.Close() })
	return &Client{t: t, conn: conn, debug: s.Config.DebugJSON}
}

// Next reads one frame within the timeout. Text frames that are not JSON are returned under "raw".
func (c *Client) Next(timeout time.Duration) (map[string]any, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if c.debug {
		c.t.Logf("FRAME: %s", data)
	}
	var frame map[string]any
	if err = json.Unmarshal(data, &frame); err != nil {
		return map[string]any{"raw": string(data)}, nil
	}
	return frame, nil
}

// NextOfType skips frames such as heartbeats until one of the given type arrives.
func (c *Client) NextOfType(kind string, timeout time.Duration) (map[string]any, error) {
	deadline := time.Now().Add(timeout)
	for {
		frame, err := c.Next(time.Until(deadline))
		if err != nil {
			return nil, err
		}
		if frame["type"] == kind {
			return frame, nil
		}
	}
}

func (c *Client) SendText(text string) error {
	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Notify posts a message through the HTTP ingress of the server.
func (s *BaseWsSuite) Notify(ctx context.Context, target, message map[string]any) int {
	body, err := json.Marshal(map[string]any{"target": target, "message": message})
	s.Require().NoError(err)

	endpoint := url.URL{Scheme: "http", Host: s.Config.NotifyAddr, Path: "/notify"}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	return resp.StatusCode
}
