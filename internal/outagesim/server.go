package outagesim

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// TokenParam is the query parameter from which the server reads each client's
// token.
const TokenParam = "token"

// Server is a WebSockets echo server whose availability can be switched off
// and on, to simulate an outage of the real service. While down it refuses
// new connections and drops existing ones.
type Server struct {
	upgrader websocket.Upgrader
	echo     bool

	mtx      sync.Mutex
	down     bool
	conns    map[*websocket.Conn]struct{}
	connects map[string]int // Successful upgrades, by token.
	received int
}

// NewServer creates a server that is up. If echo is true, every frame
// received is written straight back to its sender.
func NewServer(echo bool) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		echo:     echo,
		conns:    make(map[*websocket.Conn]struct{}),
		connects: make(map[string]int),
	}
}

// ServeHTTP upgrades the request to a WebSockets connection, unless the
// server is down.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.IsUp() {
		respond(w, http.StatusServiceUnavailable, "Service is down")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection from %s: %v", r.RemoteAddr, err)
		return
	}
	token := r.URL.Query().Get(TokenParam)
	if !s.track(conn, token) {
		conn.Close()
		return
	}
	defer s.untrack(conn)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.mtx.Lock()
		s.received++
		s.mtx.Unlock()
		if s.echo {
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}
}

func (s *Server) track(conn *websocket.Conn, token string) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	// we may have gone down while upgrading
	if s.down {
		return false
	}
	s.conns[conn] = struct{}{}
	s.connects[token]++
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mtx.Lock()
	delete(s.conns, conn)
	s.mtx.Unlock()
	conn.Close()
}

// IsUp reports whether the server is currently accepting connections.
func (s *Server) IsUp() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return !s.down
}

// SetUp brings the server up or down. Going down closes every live
// connection.
func (s *Server) SetUp(up bool) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.down = !up
	if up {
		return nil
	}
	for conn := range s.conns {
		conn.Close()
		delete(s.conns, conn)
	}
	return nil
}

// Connects returns the number of connections accepted for the given token.
func (s *Server) Connects(token string) int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.connects[token]
}

// TotalConnects returns the number of connections accepted across all tokens.
func (s *Server) TotalConnects() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	total := 0
	for _, n := range s.connects {
		total += n
	}
	return total
}

// Received returns the number of data frames received across all
// connections.
func (s *Server) Received() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.received
}
