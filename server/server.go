package server

import (
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chatd/db"
	"chatd/protocol"
)

type Server struct {
	db       *db.DB
	config   *ServerConfig
	registry *SessionRegistry
	metrics  *Metrics
	listener net.Listener
}

type ServerConfig struct {
	Port         int
	MaxClients   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MetricsPort  int // 0 - без метрик
}

func New(database *db.DB, config *ServerConfig) *Server {
	if config.MaxClients == 0 {
		config.MaxClients = 100
	}

	return &Server{
		db:       database,
		config:   config,
		registry: NewSessionRegistry(config.MaxClients),
		metrics:  NewMetrics(),
	}
}

// Listen открывает слушающий сокет. Выделен из Start, чтобы тесты
// могли узнать фактический порт до запуска цикла приема.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(s.config.Port))
	if err != nil {
		return err
	}
	s.listener = listener
	return nil
}

// Addr возвращает фактический адрес слушающего сокета
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve принимает соединения до закрытия слушающего сокета.
// Ошибка accept логируется и не останавливает цикл.
func (s *Server) Serve() error {
	log.Printf("chatd server started on %s", s.Addr())

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if strings.Contains(err.Error(), "use of closed network connection") {
				return nil
			}
			log.Printf("Error accepting connection: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	if s.config.MetricsPort > 0 {
		go s.serveMetrics()
	}

	return s.Serve()
}

// serveMetrics поднимает внутренний HTTP-порт с /metrics и /health.
// Наружу этот порт выставлять нельзя.
func (s *Server) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := ":" + strconv.Itoa(s.config.MetricsPort)
	log.Printf("Metrics server listening on %s (/metrics, /health)", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("Metrics server error: %v", err)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	sess, err := s.registry.Add(conn)
	if err != nil {
		// Лимит сессий: соединение принято транспортом и сразу
		// закрывается, сессия не создается
		log.Printf("Rejecting connection from %s: %v", remoteAddr, err)
		conn.Close()
		return
	}

	s.metrics.RecordConnection()
	s.metrics.RecordActiveSessions(s.registry.Count())
	log.Printf("New client connected from %s", remoteAddr)

	defer s.teardown(conn, remoteAddr)

	var reasm protocol.Reassembler
	buf := make([]byte, 4096)

	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		n, err := conn.Read(buf)

		if n > 0 {
			frames, ferr := reasm.Feed(buf[:n])
			// Все собранные кадры обрабатываются до возврата
			// управления, строго в порядке прихода
			for _, f := range frames {
				if !s.dispatch(sess, f) {
					return
				}
			}
			if ferr != nil {
				log.Printf("Malformed frame from %s: %v", remoteAddr, ferr)
				return
			}
		}

		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				// Простой - продолжаем ждать данные
				continue
			}
			if err != io.EOF && !strings.Contains(err.Error(), "use of closed network connection") {
				log.Printf("Error reading from %s: %v", remoteAddr, err)
			}
			// EOF или фатальная ошибка - закрываем только эту сессию
			return
		}
	}
}

// teardown снимает сессию с учета, закрывает соединение и рассылает
// обновление присутствия. Удаление из реестра и рассылка видны
// остальным как единое событие: после Remove поиск по имени сессию
// уже не находит.
func (s *Server) teardown(conn net.Conn, remoteAddr string) {
	sess := s.registry.Remove(conn)
	conn.Close()
	s.metrics.RecordActiveSessions(s.registry.Count())

	if sess == nil {
		return
	}

	if sess.Username != "" {
		s.broadcastOnlineList()
		s.notifyFriendsStatus(sess.Username, false)
		log.Printf("Client %s disconnected from %s", sess.Username, remoteAddr)
	} else {
		log.Printf("Client disconnected from %s", remoteAddr)
	}
}

// sendFrame пишет один кадр в сокет сессии под ее мьютексом записи
func (s *Server) sendFrame(sess *Session, f *protocol.Frame) {
	data, err := f.Encode()
	if err != nil {
		log.Printf("Error encoding frame type %d: %v", f.Type, err)
		return
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()

	sess.Conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if _, err := sess.Conn.Write(data); err != nil {
		log.Printf("Error writing to connection: %v", err)
	}
}

// sendError отправляет общий кадр ошибки; для соединения он не фатален
func (s *Server) sendError(sess *Session, description string) {
	s.metrics.RecordError()
	s.sendFrame(sess, &protocol.Frame{
		Type:   protocol.TypeError,
		Source: "Server",
		Body:   description,
	})
}

// Shutdown закрывает слушающий сокет и все сессии
func (s *Server) Shutdown() {
	if s.listener != nil {
		s.listener.Close()
	}

	for _, sess := range s.registry.All() {
		sess.Conn.Close()
	}
}

// GetStats returns server statistics as a formatted string
func (s *Server) GetStats() string {
	users := s.registry.Usernames()
	return "connections=" + strconv.Itoa(s.registry.Count()) + ",users=" + strings.Join(users, ";")
}
