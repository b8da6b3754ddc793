package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/examshield/proctor-api/models"
)

// Classifier is the external frame classifier: frame in, scored result out.
// It is a black box; its failures are transport errors, never fatal to a
// session.
type Classifier interface {
	Analyze(ctx context.Context, frame []byte) (*models.AnalysisResult, error)
	Close() error
}

// analyzeTimeout bounds one classifier round trip when the caller's context
// carries no deadline.
const analyzeTimeout = 5 * time.Second

type wsClassifier struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSClassifier returns a Classifier speaking the model service's analyze
// WebSocket protocol: send {"frame": ...}, read the per-frame result. The
// connection is lazy and re-dialed after any error.
func NewWSClassifier(url string) Classifier {
	return &wsClassifier{url: url}
}

func (c *wsClassifier) Analyze(ctx context.Context, frame []byte) (*models.AnalysisResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(analyzeTimeout)
	}

	if c.conn == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			return nil, fmt.Errorf("dial classifier: %w", err)
		}
		c.conn = conn
	}

	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(map[string]string{"frame": string(frame)}); err != nil {
		c.reset()
		return nil, fmt.Errorf("send frame: %w", err)
	}

	_ = c.conn.SetReadDeadline(deadline)
	var result models.AnalysisResult
	if err := c.conn.ReadJSON(&result); err != nil {
		c.reset()
		return nil, fmt.Errorf("read analysis: %w", err)
	}
	return &result, nil
}

func (c *wsClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// reset drops the broken connection; the next Analyze re-dials.
func (c *wsClassifier) reset() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
