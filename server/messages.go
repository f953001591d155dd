package server

import (
	"log"

	"chatd/protocol"
)

// handlePrivateMessage доставляет личное сообщение: онлайн-получателю
// пересылкой, офлайн-получателю в очередь. Успех молчалив - кадра
// подтверждения отправителю нет, локальное эхо делает клиент.
func (s *Server) handlePrivateMessage(sess *Session, f *protocol.Frame) {
	recipient := f.Target
	text := f.Body

	if recipient == "" {
		s.sendError(sess, "Recipient required.")
		return
	}
	if text == "" {
		s.sendError(sess, "Message text required.")
		return
	}

	exists, err := s.db.UserExists(recipient)
	if err != nil {
		log.Printf("Message error: %v", err)
		s.sendError(sess, "Internal error.")
		return
	}
	if !exists {
		s.sendError(sess, "Recipient not found.")
		return
	}

	if target, online := s.registry.ByUsername(recipient); online {
		s.sendFrame(target, &protocol.Frame{
			Type:   protocol.TypeReceivePrivate,
			Source: f.Source,
			Body:   text,
		})
		s.metrics.RecordRouted("online")
		return
	}

	if err := s.db.StoreOfflineMessage(f.Source, recipient, text); err != nil {
		log.Printf("Failed to store offline message for %s: %v", recipient, err)
		s.sendError(sess, "Internal error.")
		return
	}
	s.metrics.RecordRouted("offline")
	log.Printf("User '%s' is offline. Storing message.", recipient)
}

// handleGroupMessage рассылает сообщение всем участникам группы, кроме
// отправителя. Офлайн-участники получают его из очереди при следующем
// входе.
func (s *Server) handleGroupMessage(sess *Session, f *protocol.Frame) {
	group := f.Target
	sender := f.Source

	if group == "" {
		s.sendGroupResponse(sess, "Missing group name.")
		return
	}

	exists, err := s.db.GroupExists(group)
	if err != nil {
		log.Printf("Group message error: %v", err)
		s.sendGroupResponse(sess, "Internal error.")
		return
	}
	if !exists {
		s.sendGroupResponse(sess, "Group not found.")
		return
	}

	member, err := s.db.IsGroupMember(group, sender)
	if err != nil {
		log.Printf("Group message error: %v", err)
		s.sendGroupResponse(sess, "Internal error.")
		return
	}
	if !member {
		s.sendGroupResponse(sess, "You are not a member of this group.")
		return
	}

	members, err := s.db.GroupMembers(group)
	if err != nil {
		log.Printf("Group message error: %v", err)
		s.sendGroupResponse(sess, "Internal error.")
		return
	}

	for _, name := range members {
		if name == sender {
			continue
		}
		if target, online := s.registry.ByUsername(name); online {
			s.sendFrame(target, &protocol.Frame{
				Type:   protocol.TypeReceiveGroup,
				Source: sender,
				Target: group,
				Body:   f.Body,
			})
			s.metrics.RecordRouted("online")
		} else {
			if err := s.db.StoreOfflineMessage(sender, name, f.Body); err != nil {
				log.Printf("Failed to store offline group message for %s: %v", name, err)
				continue
			}
			s.metrics.RecordRouted("offline")
		}
	}
}

func (s *Server) sendGroupResponse(sess *Session, body string) {
	s.sendFrame(sess, &protocol.Frame{
		Type:   protocol.TypeGroupResponse,
		Source: "Server",
		Body:   body,
	})
}
