package server

import (
	"log"

	"chatd/protocol"
)

// dispatch - конечный автомат протокола. До логина сессия принимает
// только регистрацию и вход, после - все остальное. Возвращает false,
// когда соединение должно быть закрыто (logout).
func (s *Server) dispatch(sess *Session, f *protocol.Frame) bool {
	s.metrics.RecordFrame(uint16(f.Type))

	if sess.Username == "" {
		switch f.Type {
		case protocol.TypeRegister:
			s.handleRegister(sess, f)
		case protocol.TypeLogin:
			s.handleLogin(sess, f)
		default:
			// Не фатально: отвечаем ошибкой и ждем дальше
			s.sendError(sess, "Not authenticated.")
		}
		return true
	}

	// После логина полю source с клиента не доверяем
	f.Source = sess.Username

	switch f.Type {
	case protocol.TypeRegister, protocol.TypeLogin:
		s.sendError(sess, "Already logged in.")
	case protocol.TypeLogout:
		log.Printf("User '%s' logging out.", sess.Username)
		return false
	case protocol.TypePrivateMsg:
		s.handlePrivateMessage(sess, f)
	case protocol.TypeGroupMsg:
		s.handleGroupMessage(sess, f)
	case protocol.TypeFriendRequest:
		s.handleFriendRequest(sess, f)
	case protocol.TypeFriendAccept:
		s.handleFriendAccept(sess, f)
	case protocol.TypeFriendDecline:
		s.handleFriendDecline(sess, f)
	case protocol.TypeUnfriend:
		s.handleUnfriend(sess, f)
	case protocol.TypeFriendListRequest:
		s.sendFriendList(sess)
	case protocol.TypeGroupCreate:
		s.handleGroupCreate(sess, f)
	case protocol.TypeGroupJoin:
		s.handleGroupJoin(sess, f)
	case protocol.TypeGroupInvite:
		s.handleGroupInvite(sess, f)
	case protocol.TypeGroupRemove:
		s.handleGroupRemove(sess, f)
	case protocol.TypeGroupLeave:
		s.handleGroupLeave(sess, f)
	case protocol.TypeGroupListJoined:
		s.handleGroupListJoined(sess)
	case protocol.TypeGroupListAll:
		s.handleGroupListAll(sess)
	default:
		s.sendError(sess, "Unknown packet type")
	}
	return true
}
