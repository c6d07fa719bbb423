package server

import (
	"fmt"
	"net"
	"sync"

	"github.com/teampathfinders/vex/pkg/logger"
	"github.com/teampathfinders/vex/pkg/raknet"
)

// Deliverer receives a fully decoded game packet from some session.
type Deliverer func(session *raknet.Session, packetID uint32, body []byte)

// Server owns the shared UDP socket, the offline handshake and the
// session table, adapted from the teacher's source/server/server.go
// listen/update-loop/cleanup-loop shape.
type Server struct {
	cfg       Config
	conn      *net.UDPConn
	handshake *handshake
	deliver   Deliverer

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	running  bool
}

type sessionEntry struct {
	session *raknet.Session
	inbound chan []byte
}

// New creates a Server bound to cfg; call Start to actually listen.
func New(cfg Config, deliver Deliverer) *Server {
	if cfg.MaxSessions == 0 {
		cfg = DefaultConfig()
	}
	if deliver == nil {
		deliver = func(*raknet.Session, uint32, []byte) {}
	}
	return &Server{
		cfg:       cfg,
		handshake: newHandshake(cfg.GUID),
		deliver:   deliver,
		sessions:  make(map[string]*sessionEntry),
	}
}

// Start binds the UDP socket and blocks in the receive loop until Stop
// is called. It returns an error only when binding fails; read errors
// while running are logged and the loop carries on.
func (s *Server) Start() error {
	addr := &net.UDPAddr{IP: net.ParseIP(s.cfg.Host), Port: s.cfg.Port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("bind udp socket: %w", err)
	}
	s.conn = conn

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	logger.Info("listening on %s:%d", s.cfg.Host, s.cfg.Port)
	return s.listen()
}

// Stop closes the socket and every active session's inbound channel.
func (s *Server) Stop() {
	s.mu.Lock()
	s.running = false
	for _, entry := range s.sessions {
		close(entry.inbound)
	}
	s.sessions = make(map[string]*sessionEntry)
	s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *Server) isRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Server) listen() error {
	buf := make([]byte, raknet.MaxMTUSize)
	for s.isRunning() {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if s.isRunning() {
				logger.Warn("udp read failed: %v", err)
			}
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		go s.route(addr, data)
	}
	return nil
}

func (s *Server) route(addr *net.UDPAddr, data []byte) {
	if len(data) == 0 {
		return
	}

	if entry, ok := s.lookup(addr); ok {
		entry.inbound <- data
		return
	}

	if !IsOffline(data[0]) {
		return
	}
	mtu, err := s.handshake.handleOffline(s.conn, addr, data)
	if err != nil {
		logger.Warn("handshake with %s failed: %v", addr, err)
		return
	}
	if mtu > 0 {
		s.createSession(addr, mtu)
	}
}

func (s *Server) lookup(addr *net.UDPAddr) (*sessionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[addr.String()]
	return entry, ok
}

func (s *Server) createSession(addr *net.UDPAddr, mtu uint16) {
	s.mu.Lock()
	if len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		logger.Warn("rejecting %s: session table full", addr)
		return
	}
	if _, exists := s.sessions[addr.String()]; exists {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	key := addr.String()
	deliver := s.deliver
	inbound := make(chan []byte, 64)

	var session *raknet.Session
	session = raknet.NewSession(s.conn, addr, raknet.SessionConfig{
		MTU:         mtu,
		Compression: s.cfg.Compression,
		Encryptor:   s.cfg.Encryptor,
		Metrics:     s.cfg.Metrics,
		Events: raknet.EventSinkFunc(func(sess *raknet.Session, event raknet.EventType) {
			if event == raknet.SessionClosed || event == raknet.SessionTimedOut {
				s.removeSession(key)
			}
		}),
		Deliver: func(body []byte) {
			id, payload, err := raknet.DecodePacket(body, s.cfg.Compression, s.cfg.Encryptor)
			if err != nil {
				if rerr, ok := err.(*raknet.Error); ok && rerr.Kind.Cancels() {
					logger.Warn("closing session for %s: %v", addr, err)
					session.Disconnect()
					return
				}
				logger.Warn("dropping malformed game packet from %s: %v", addr, err)
				return
			}
			deliver(session, id, payload)
		},
	})

	s.mu.Lock()
	s.sessions[key] = &sessionEntry{session: session, inbound: inbound}
	s.mu.Unlock()

	session.StartTickJob()
	session.StartPacketJob(inbound)
	logger.InfoCyan("session opened for %s (mtu %d)", addr, mtu)
}

func (s *Server) removeSession(key string) {
	s.mu.Lock()
	entry, ok := s.sessions[key]
	if ok {
		delete(s.sessions, key)
	}
	s.mu.Unlock()
	if ok {
		close(entry.inbound)
		logger.InfoCyan("session closed for %s", key)
	}
}

// SessionCount reports the number of active sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
