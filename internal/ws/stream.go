package ws

import (
	"log"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Stream message types.
const (
	TypeStreamToken = "token"
	TypeStreamDone  = "done"
)

var sampleResponses = []string{
	"The Fibonacci sequence is a series where each number is the sum of the two preceding ones. Using memoization, we can optimize the recursive approach by storing previously computed values. This reduces time complexity from exponential O(2^n) to linear O(n) with O(n) space. The memoized function checks if a value exists in the cache before computing, significantly improving performance for large inputs.",
	"Time complexity analysis: The naive recursive solution has O(2^n) time complexity due to repeated calculations. With memoization, each Fibonacci number is computed once, resulting in O(n) time. Space complexity is O(n) for the cache and call stack. For iterative solutions, we can achieve O(n) time and O(1) space.",
}

const (
	defaultLength  = 150
	maxLength      = 4096
	defaultLatency = 300 * time.Millisecond
	maxLatency     = 5 * time.Second
	// Output tokens per requested length unit.
	tokensPerUnit = 0.75
)

// StreamToken is one streamed word.
type StreamToken struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// StreamStats closes a stream.
type StreamStats struct {
	Tokens       int     `json:"tokens"`
	Words        int     `json:"words"`
	TTFTMillis   int64   `json:"ttft_ms"`
	TotalMillis  int64   `json:"total_ms"`
	TokensPerSec float64 `json:"tokens_per_sec"`
}

// Streamer plays back a canned response word by word over a WebSocket
// to demonstrate time-to-first-token and throughput.
type Streamer struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	pick     func(n int) int
}

// NewStreamer creates a Streamer with 30–50ms between words.
func NewStreamer() *Streamer {
	return &Streamer{MinDelay: 30 * time.Millisecond, MaxDelay: 50 * time.Millisecond, pick: rand.IntN}
}

// ServeStream handles GET /ws/stream?length=&latency=.
func (s *Streamer) ServeStream(w http.ResponseWriter, r *http.Request) {
	length := queryInt(r, "length", defaultLength, 1, maxLength)
	latency := time.Duration(queryInt(r, "latency", int(defaultLatency.Milliseconds()), 0, int(maxLatency.Milliseconds()))) * time.Millisecond

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws.ServeStream: upgrade: %v", err)
		return
	}
	defer conn.Close()

	stats, err := s.play(conn, length, latency)
	if err != nil {
		log.Printf("ws.ServeStream: %v", err)
		return
	}
	_ = conn.WriteJSON(WSMessage{Type: TypeStreamDone, Data: stats, Timestamp: time.Now().UTC()})
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Streamer) play(conn *websocket.Conn, length int, latency time.Duration) (StreamStats, error) {
	words := strings.Fields(sampleResponses[s.pick(len(sampleResponses))])
	tokens := int(float64(length) * tokensPerUnit)

	start := time.Now()
	time.Sleep(latency)

	var ttft time.Duration
	for i, word := range words {
		if i == 0 {
			ttft = time.Since(start)
		}
		msg := WSMessage{Type: TypeStreamToken, Data: StreamToken{Index: i, Text: word}, Timestamp: time.Now().UTC()}
		if err := conn.WriteJSON(msg); err != nil {
			return StreamStats{}, err
		}
		time.Sleep(s.delay())
	}

	total := time.Since(start)
	stats := StreamStats{
		Tokens:      tokens,
		Words:       len(words),
		TTFTMillis:  ttft.Milliseconds(),
		TotalMillis: total.Milliseconds(),
	}
	if total > 0 {
		stats.TokensPerSec = float64(tokens) / total.Seconds()
	}
	return stats, nil
}

func (s *Streamer) delay() time.Duration {
	spread := s.MaxDelay - s.MinDelay
	if spread <= 0 {
		return s.MinDelay
	}
	return s.MinDelay + time.Duration(rand.Int64N(int64(spread)))
}

func queryInt(r *http.Request, key string, def, lo, hi int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return min(hi, max(lo, v))
}
