package server

import (
	"log"

	"chatd/db"
	"chatd/protocol"
)

func (s *Server) handleRegister(sess *Session, f *protocol.Frame) {
	username := f.Source
	password := f.Body

	if username == "" || password == "" {
		s.sendFrame(sess, &protocol.Frame{
			Type: protocol.TypeRegisterFail,
			Body: "Register failed: username and password required.",
		})
		return
	}

	err := s.db.CreateUser(username, password)
	if err == db.ErrDuplicate {
		s.sendFrame(sess, &protocol.Frame{
			Type: protocol.TypeRegisterFail,
			Body: "Register failed (username may exist).",
		})
		return
	}
	if err != nil {
		log.Printf("Register error: %v", err)
		s.sendFrame(sess, &protocol.Frame{
			Type: protocol.TypeRegisterFail,
			Body: "Register failed: internal error.",
		})
		return
	}

	s.sendFrame(sess, &protocol.Frame{
		Type: protocol.TypeRegisterOK,
		Body: "Register successful. You can now login.",
	})
}

func (s *Server) handleLogin(sess *Session, f *protocol.Frame) {
	username := f.Source
	password := f.Body

	if username == "" || password == "" {
		s.sendLoginFail(sess, "Login failed. Check username/password.")
		return
	}

	// Ранняя проверка для внятного ответа; решающая - атомарный Bind ниже
	if _, online := s.registry.ByUsername(username); online {
		log.Printf("Login failed: User '%s' is already logged in.", username)
		s.sendLoginFail(sess, "Login failed: User is already logged in elsewhere.")
		return
	}

	exists, err := s.db.UserExists(username)
	if err != nil {
		log.Printf("Login error: %v", err)
		s.sendLoginFail(sess, "Login failed: internal error.")
		return
	}
	if !exists {
		log.Printf("Login failed: User '%s' not found.", username)
		s.sendLoginFail(sess, "Login failed: User not found.")
		return
	}

	valid, err := s.db.AuthenticateUser(username, password)
	if err != nil {
		log.Printf("Login error: %v", err)
		s.sendLoginFail(sess, "Login failed: internal error.")
		return
	}
	if !valid {
		log.Printf("Login failed for user '%s': Invalid credentials.", username)
		s.sendLoginFail(sess, "Login failed. Check username/password.")
		return
	}

	// Переход в авторизованное состояние только если имя свободно.
	// Проигравший гонку получает отказ, существующая сессия остается.
	if !s.registry.Bind(sess, username) {
		s.sendLoginFail(sess, "Login failed: User is already logged in elsewhere.")
		return
	}

	log.Printf("User '%s' logged in successfully.", username)
	s.sendFrame(sess, &protocol.Frame{
		Type:   protocol.TypeLoginOK,
		Source: username,
		Body:   "Login successful! Welcome " + username,
	})

	s.deliverOfflineMessages(sess)
	s.broadcastOnlineList()
	s.notifyFriendsStatus(username, true)
}

// deliverOfflineMessages отдает накопленную очередь в порядке записи.
// Чтение и очистка - одна транзакция, поэтому следующий логин очередь
// уже не увидит.
func (s *Server) deliverOfflineMessages(sess *Session) {
	messages, err := s.db.DrainOfflineMessages(sess.Username)
	if err != nil {
		log.Printf("Failed to drain offline messages for %s: %v", sess.Username, err)
		return
	}

	for _, m := range messages {
		s.sendFrame(sess, &protocol.Frame{
			Type:   protocol.TypeOfflineMsg,
			Source: m.Sender,
			Body:   m.Body,
		})
	}
}

func (s *Server) sendLoginFail(sess *Session, description string) {
	s.sendFrame(sess, &protocol.Frame{
		Type: protocol.TypeLoginFail,
		Body: description,
	})
}
