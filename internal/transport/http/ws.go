package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"chapter-quiz-service/internal/app"
	"chapter-quiz-service/internal/domain"
)

// LeaderboardStream pushes global leaderboard snapshots over a websocket
// whenever a submission lands. The stream is outbound-only.
type LeaderboardStream struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewLeaderboardStream(service *app.QuizService) *LeaderboardStream {
	return &LeaderboardStream{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type leaderboardFrame struct {
	Type    string                    `json:"type"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

func (s *LeaderboardStream) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := s.service.Subscribe()
	defer cancel()

	initial, err := s.service.GlobalLeaderboard(r.Context(), 0)
	if err != nil {
		log.Printf("ws initial snapshot failed: %v", err)
		return
	}
	if err := conn.WriteJSON(leaderboardFrame{Type: "leaderboard", Entries: initial}); err != nil {
		return
	}

	// the read loop only exists to notice the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case entries, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(leaderboardFrame{Type: "leaderboard", Entries: entries}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}
