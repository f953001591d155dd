package server

import (
	"errors"
	"net"
	"sort"
	"sync"
)

var ErrServerFull = errors.New("maximum concurrent session cap reached")

// Session - состояние одного живого соединения. Username пуст до
// успешного логина и назначается только через SessionRegistry.Bind.
type Session struct {
	Conn     net.Conn
	Username string

	// Защищает запись в сокет: в одно соединение пишут и обработчик
	// самой сессии, и маршрутизация чужих сообщений
	writeMu sync.Mutex
}

// SessionRegistry отображает живые соединения на их сессии и ведет
// обратный индекс по имени пользователя. Все изменения происходят под
// одним мьютексом, поэтому поиск по имени никогда не вернет сессию,
// чье соединение уже снято с учета.
type SessionRegistry struct {
	mu         sync.RWMutex
	maxClients int
	byConn     map[net.Conn]*Session
	byUser     map[string]*Session
}

func NewSessionRegistry(maxClients int) *SessionRegistry {
	return &SessionRegistry{
		maxClients: maxClients,
		byConn:     make(map[net.Conn]*Session),
		byUser:     make(map[string]*Session),
	}
}

// Add создает неавторизованную сессию. При достижении лимита
// возвращает ErrServerFull - вызывающий закрывает сырое соединение.
func (r *SessionRegistry) Add(conn net.Conn) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.byConn) >= r.maxClients {
		return nil, ErrServerFull
	}

	sess := &Session{Conn: conn}
	r.byConn[conn] = sess
	return sess, nil
}

// Remove снимает сессию с учета и возвращает ее для зачистки
// присутствия. Повторный вызов безопасен и возвращает nil.
func (r *SessionRegistry) Remove(conn net.Conn) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.byConn[conn]
	if !ok {
		return nil
	}
	delete(r.byConn, conn)
	if sess.Username != "" {
		delete(r.byUser, sess.Username)
	}
	return sess
}

func (r *SessionRegistry) Get(conn net.Conn) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.byConn[conn]
	return sess, ok
}

func (r *SessionRegistry) ByUsername(username string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.byUser[username]
	return sess, ok
}

// Bind атомарно закрепляет имя за сессией. Возвращает false, если имя
// уже занято живой сессией - вторая попытка логина отклоняется, не
// выселяя первую.
func (r *SessionRegistry) Bind(sess *Session, username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUser[username]; taken {
		return false
	}
	sess.Username = username
	r.byUser[username] = sess
	return true
}

// Usernames возвращает отсортированный снимок авторизованных имен
func (r *SessionRegistry) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byUser))
	for name := range r.byUser {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Authenticated возвращает все авторизованные сессии
func (r *SessionRegistry) Authenticated() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.byUser))
	for _, sess := range r.byUser {
		sessions = append(sessions, sess)
	}
	return sessions
}

// All возвращает все сессии, включая неавторизованные
func (r *SessionRegistry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.byConn))
	for _, sess := range r.byConn {
		sessions = append(sessions, sess)
	}
	return sessions
}

func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
