package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/louisbranch/duel/internal/platform/errors"
	"github.com/louisbranch/duel/internal/platform/requestctx"
	"github.com/louisbranch/duel/internal/services/duel/domain/game"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3
	maxQueuedMoves         = 4
)

// lobbyService is the part of the lobby the transport needs.
type lobbyService interface {
	Join(ctx context.Context, identity string) (*game.Client, error)
	Waiting() int
	ActiveGames() int
}

// errSessionEnded stops a connection's goroutines once play is over.
var errSessionEnded = errors.New("session ended")

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

type wsError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

type movePayload struct {
	UCI string `json:"uci"`
}

type gameStartedPayload struct {
	GameID       string `json:"game_id"`
	StartTime    string `json:"start_time"`
	AmIWhite     bool   `json:"am_i_white"`
	OpponentName string `json:"opponent_name"`
}

type gameOverPayload struct {
	Result   string `json:"result"`
	Method   string `json:"method,omitempty"`
	Winner   string `json:"winner,omitempty"`
	LastMove string `json:"last_move,omitempty"`
}

type gameAbortedPayload struct {
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

type lobbyStatus struct {
	Waiting     int `json:"waiting"`
	ActiveGames int `json:"active_games"`
}

type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

func newHandler(lobby lobbyService, heartbeat time.Duration) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/lobby", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(lobbyStatus{
			Waiting:     lobby.Waiting(),
			ActiveGames: lobby.ActiveGames(),
		})
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, lobby, heartbeat)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := strings.TrimSpace(r.URL.Query().Get("name"))
		if name == "" {
			log.Printf("duel: websocket rejected: missing name for remote=%s", r.RemoteAddr)
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		ctx := requestctx.WithParticipant(r.Context(), name)
		wsHandler.ServeHTTP(w, r.WithContext(ctx))
	})

	return mux
}

// handleWSConn runs one participant connection: a frame reader, a heartbeat,
// a closer that unblocks the reader, and the play loop. The first of them to
// fail or finish tears the others down.
func handleWSConn(conn *websocket.Conn, lobby lobbyService, heartbeat time.Duration) {
	parent := context.Background()
	name := "participant"
	if request := conn.Request(); request != nil {
		parent = request.Context()
		if resolved := requestctx.ParticipantFromContext(parent); resolved != "" {
			name = resolved
		}
	}

	player := newWSPlayer(name, newWSPeer(json.NewEncoder(conn)))
	group, ctx := errgroup.WithContext(parent)
	group.Go(func() error {
		return player.readLoop(conn)
	})
	group.Go(func() error {
		return player.heartbeat(ctx, heartbeat)
	})
	group.Go(func() error {
		<-ctx.Done()
		return conn.Close()
	})
	group.Go(func() error {
		client, err := lobby.Join(ctx, name)
		if err != nil {
			log.Printf("duel: join %s: %v", name, err)
			_ = writeWSError(player.peer, "", err)
			return errSessionEnded
		}
		if err := playSession(ctx, client, player); err != nil {
			log.Printf("duel: session %s for %s: %v", client.GameID(), name, err)
		}
		return errSessionEnded
	})

	if err := group.Wait(); err != nil && !errors.Is(err, errSessionEnded) && !errors.Is(err, errPlayerDisconnected) {
		log.Printf("duel: connection %s closed: %v", name, err)
	}
}

func writeWSError(peer *wsPeer, requestID string, err error) error {
	return writeWSErrorCode(peer, requestID, apperrors.CodeOf(err), err.Error(), nil)
}

func writeWSErrorCode(peer *wsPeer, requestID string, code apperrors.Code, message string, details map[string]any) error {
	return peer.writeFrame(wsFrame{
		Type:      "error",
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{
			Error: wsError{
				Code:      string(code),
				Message:   message,
				Retryable: code.Retryable(),
				Details:   details,
			},
		}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
