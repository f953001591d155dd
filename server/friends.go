package server

import (
	"log"

	"chatd/db"
	"chatd/protocol"
)

func (s *Server) handleFriendRequest(sess *Session, f *protocol.Frame) {
	sender := f.Source
	receiver := f.Target

	if sender == receiver {
		s.sendFriendUpdate(sess, "You cannot add yourself.")
		return
	}

	exists, err := s.db.UserExists(receiver)
	if err != nil {
		log.Printf("Friend request error: %v", err)
		s.sendFriendUpdate(sess, "Internal error.")
		return
	}
	if !exists {
		s.sendFriendUpdate(sess, "User not found.")
		return
	}

	err = s.db.FriendRequest(sender, receiver)
	if err == db.ErrDuplicate {
		s.sendFriendUpdate(sess, "Failed to send request (already sent or already friends?).")
		return
	}
	if err != nil {
		log.Printf("Friend request error: %v", err)
		s.sendFriendUpdate(sess, "Internal error.")
		return
	}

	s.sendFriendUpdate(sess, "Friend request sent.")

	if target, online := s.registry.ByUsername(receiver); online {
		// source - отправитель заявки, чтобы клиент знал, кого принимать
		s.sendFrame(target, &protocol.Frame{
			Type:   protocol.TypeFriendIncoming,
			Source: sender,
			Body:   "You have a new friend request.",
		})
	}
}

func (s *Server) handleFriendAccept(sess *Session, f *protocol.Frame) {
	accepter := f.Source
	requester := f.Target

	exists, err := s.db.UserExists(requester)
	if err != nil {
		log.Printf("Friend accept error: %v", err)
		s.sendFriendUpdate(sess, "Internal error.")
		return
	}
	if !exists {
		s.sendFriendUpdate(sess, "User not found.")
		return
	}

	// Принять можно только заявку, адресованную именно принимающему
	err = s.db.FriendAccept(accepter, requester)
	if err == db.ErrNoRows {
		s.sendFriendUpdate(sess, "Failed to accept request (request not found?).")
		return
	}
	if err != nil {
		log.Printf("Friend accept error: %v", err)
		s.sendFriendUpdate(sess, "Internal error.")
		return
	}

	s.sendFriendUpdate(sess, "You are now friends with "+requester+".")
	s.sendFriendList(sess)

	if target, online := s.registry.ByUsername(requester); online {
		s.sendFriendUpdate(target, accepter+" accepted your friend request.")
		s.sendFriendList(target)
	}
}

func (s *Server) handleFriendDecline(sess *Session, f *protocol.Frame) {
	decliner := f.Source
	requester := f.Target

	exists, err := s.db.UserExists(requester)
	if err != nil {
		log.Printf("Friend decline error: %v", err)
		s.sendFriendUpdate(sess, "Internal error.")
		return
	}
	if !exists {
		s.sendFriendUpdate(sess, "User not found.")
		return
	}

	err = s.db.FriendDecline(decliner, requester)
	if err == db.ErrNoRows {
		s.sendFriendUpdate(sess, "Failed to decline request (request not found?).")
		return
	}
	if err != nil {
		log.Printf("Friend decline error: %v", err)
		s.sendFriendUpdate(sess, "Internal error.")
		return
	}

	s.sendFriendUpdate(sess, "You declined the request from "+requester+".")
}

func (s *Server) handleUnfriend(sess *Session, f *protocol.Frame) {
	unfriender := f.Source
	target := f.Target

	exists, err := s.db.UserExists(target)
	if err != nil {
		log.Printf("Unfriend error: %v", err)
		s.sendFriendUpdate(sess, "Internal error.")
		return
	}
	if !exists {
		s.sendFriendUpdate(sess, "User not found.")
		return
	}

	err = s.db.Unfriend(unfriender, target)
	if err == db.ErrNoRows {
		s.sendFriendUpdate(sess, "Failed to unfriend (not friends or DB error).")
		return
	}
	if err != nil {
		log.Printf("Unfriend error: %v", err)
		s.sendFriendUpdate(sess, "Internal error.")
		return
	}

	s.sendFriendUpdate(sess, "You are no longer friends with "+target+".")
	s.sendFriendList(sess)

	if other, online := s.registry.ByUsername(target); online {
		s.sendFriendUpdate(other, unfriender+" has unfriended you.")
		s.sendFriendList(other)
	}
}

// sendFriendList отправляет список друзей с живым статусом
// присутствия: статус берется из реестра в момент запроса, в базе он
// не хранится.
func (s *Server) sendFriendList(sess *Session) {
	friends, err := s.db.Friends(sess.Username)
	if err != nil {
		log.Printf("Friend list error: %v", err)
		s.sendFriendUpdate(sess, "Internal error.")
		return
	}

	body := "You have no friends yet."
	if len(friends) > 0 {
		items := make([]string, 0, len(friends))
		for _, name := range friends {
			status := "(OFF)"
			if _, online := s.registry.ByUsername(name); online {
				status = "(ONL)"
			}
			items = append(items, name+" "+status)
		}
		body = "Your friends: " + joinCapped(items, ", ", protocol.MaxBody-len("Your friends: "))
	}

	s.sendFrame(sess, &protocol.Frame{
		Type:   protocol.TypeFriendList,
		Source: "Server",
		Body:   body,
	})
}

func (s *Server) sendFriendUpdate(sess *Session, body string) {
	s.sendFrame(sess, &protocol.Frame{
		Type:   protocol.TypeFriendUpdate,
		Source: "Server",
		Body:   body,
	})
}
