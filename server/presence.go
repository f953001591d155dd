package server

import (
	"log"

	"chatd/protocol"
)

// broadcastOnlineList отправляет всем авторизованным сессиям свежий
// список тех, кто онлайн. Вызывается после каждого входа и выхода.
func (s *Server) broadcastOnlineList() {
	names := s.registry.Usernames()
	body := joinCapped(names, ",", protocol.MaxBody)

	frame := &protocol.Frame{
		Type:   protocol.TypeOnlineList,
		Source: "Server",
		Body:   body,
	}

	for _, sess := range s.registry.Authenticated() {
		s.sendFrame(sess, frame)
	}
}

// notifyFriendsStatus сообщает онлайн-друзьям пользователя о смене его
// присутствия. source кадра - сам пользователь, чтобы клиент знал, о
// ком речь.
func (s *Server) notifyFriendsStatus(username string, online bool) {
	friends, err := s.db.Friends(username)
	if err != nil {
		log.Printf("Presence notify error: %v", err)
		return
	}

	body := "is now offline."
	if online {
		body = "is now online."
	}

	for _, name := range friends {
		if sess, ok := s.registry.ByUsername(name); ok {
			s.sendFrame(sess, &protocol.Frame{
				Type:   protocol.TypeFriendUpdate,
				Source: username,
				Body:   body,
			})
		}
	}
}

// joinCapped склеивает элементы через sep, не превышая max байт.
// Не влезающие элементы отбрасываются целиком - усечения посреди
// имени на проводе не бывает.
func joinCapped(items []string, sep string, max int) string {
	var out string
	for _, item := range items {
		add := item
		if out != "" {
			add = sep + item
		}
		if len(out)+len(add) > max {
			break
		}
		out += add
	}
	return out
}
