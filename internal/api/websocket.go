package api

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"leverage-core/internal/calc"
	"leverage-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsUserID extracts the authenticated user from a websocket request. The
// token may arrive as a `token` query parameter (the browser WebSocket API
// cannot set headers) or a standard Authorization header. Missing or invalid
// tokens yield the empty string.
func (s *Server) wsUserID(c *gin.Context) string {
	token := c.Query("token")
	if token == "" {
		header := c.GetHeader("Authorization")
		if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		return ""
	}
	userID, err := parseToken(token, s.JWTSecret)
	if err != nil {
		return ""
	}
	return userID
}

// websocket serves the live calculator: every inputs payload the client
// pushes is answered with a fresh result. Saved-history events are streamed
// only on authenticated connections, scoped to the connection's own user;
// anonymous connections get the calculator alone.
func (s *Server) websocket(c *gin.Context) {
	userID := s.wsUserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	if s.Bus != nil && userID != "" {
		stream, unsub := s.Bus.Subscribe(events.EventCalculationSaved, 100, events.OwnedBy(userID))
		defer unsub()
		go func() {
			for msg := range stream {
				if err := writeJSON(gin.H{"type": "calculation_saved", "record": msg}); err != nil {
					return
				}
			}
		}()
	}

	for {
		var in calc.Inputs
		if err := conn.ReadJSON(&in); err != nil {
			return
		}

		res := calc.CalculateMetrics(in)
		if s.Metrics != nil {
			s.Metrics.IncrementCalculations()
		}
		if err := writeJSON(gin.H{
			"type":             "result",
			"result":           res,
			"warning_messages": warningMessages(res.Warnings),
		}); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}
