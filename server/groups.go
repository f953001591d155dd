package server

import (
	"log"

	"chatd/db"
	"chatd/protocol"
)

func (s *Server) handleGroupCreate(sess *Session, f *protocol.Frame) {
	owner := f.Source
	group := f.Target

	if group == "" {
		s.sendGroupResponse(sess, "Group name required.")
		return
	}

	err := s.db.CreateGroup(group, owner)
	if err == db.ErrDuplicate {
		s.sendGroupResponse(sess, "Group already exists.")
		return
	}
	if err != nil {
		log.Printf("Group create error: %v", err)
		s.sendGroupResponse(sess, "Failed to create group.")
		return
	}

	// Владелец уже добавлен первым участником внутри CreateGroup
	s.sendGroupResponse(sess, "Group created successfully.")
}

func (s *Server) handleGroupJoin(sess *Session, f *protocol.Frame) {
	user := f.Source
	group := f.Target

	if group == "" {
		s.sendGroupResponse(sess, "Group name required.")
		return
	}

	exists, err := s.db.GroupExists(group)
	if err != nil {
		log.Printf("Group join error: %v", err)
		s.sendGroupResponse(sess, "Internal error.")
		return
	}
	if !exists {
		s.sendGroupResponse(sess, "Group not found.")
		return
	}

	if err := s.db.AddGroupMember(group, user); err != nil {
		if err != db.ErrDuplicate {
			log.Printf("Group join error: %v", err)
		}
		s.sendGroupResponse(sess, "Failed to join group (maybe already a member).")
		return
	}

	s.notifyGroupMembers(group, user, user+" joined the group "+group+".")
	s.sendGroupResponse(sess, "Joined group.")
}

func (s *Server) handleGroupInvite(sess *Session, f *protocol.Frame) {
	inviter := f.Source
	invitee := f.Target
	group := f.Body

	if invitee == "" || group == "" {
		s.sendGroupResponse(sess, "Invite requires username and group name (body).")
		return
	}

	exists, err := s.db.GroupExists(group)
	if err != nil {
		log.Printf("Group invite error: %v", err)
		s.sendGroupResponse(sess, "Internal error.")
		return
	}
	if !exists {
		s.sendGroupResponse(sess, "Group not found.")
		return
	}

	owner, err := s.db.IsGroupOwner(group, inviter)
	if err != nil {
		log.Printf("Group invite error: %v", err)
		s.sendGroupResponse(sess, "Internal error.")
		return
	}
	if !owner {
		s.sendGroupResponse(sess, "Only owner can invite.")
		return
	}

	if err := s.db.AddGroupMember(group, invitee); err != nil {
		if err != db.ErrDuplicate {
			log.Printf("Group invite error: %v", err)
		}
		s.sendGroupResponse(sess, "Failed to add user to group (maybe already a member).")
		return
	}

	if target, online := s.registry.ByUsername(invitee); online {
		s.sendFrame(target, &protocol.Frame{
			Type:   protocol.TypeGroupResponse,
			Source: inviter,
			Target: group,
			Body:   "You were added to group " + group + " by " + inviter,
		})
	}
	s.sendGroupResponse(sess, "Invite processed (user added).")
}

func (s *Server) handleGroupRemove(sess *Session, f *protocol.Frame) {
	requester := f.Source
	target := f.Target
	group := f.Body

	if target == "" || group == "" {
		s.sendGroupResponse(sess, "Remove requires username and group name in body.")
		return
	}

	exists, err := s.db.GroupExists(group)
	if err != nil {
		log.Printf("Group remove error: %v", err)
		s.sendGroupResponse(sess, "Internal error.")
		return
	}
	if !exists {
		s.sendGroupResponse(sess, "Group not found.")
		return
	}

	owner, err := s.db.IsGroupOwner(group, requester)
	if err != nil {
		log.Printf("Group remove error: %v", err)
		s.sendGroupResponse(sess, "Internal error.")
		return
	}
	if !owner {
		s.sendGroupResponse(sess, "Only owner can remove members.")
		return
	}

	if err := s.db.RemoveGroupMember(group, target); err != nil {
		if err != db.ErrNoRows {
			log.Printf("Group remove error: %v", err)
		}
		s.sendGroupResponse(sess, "Failed to remove member (not a member?).")
		return
	}

	if removed, online := s.registry.ByUsername(target); online {
		s.sendFrame(removed, &protocol.Frame{
			Type:   protocol.TypeGroupResponse,
			Source: "Server",
			Target: group,
			Body:   "You were removed from group " + group + " by " + requester,
		})
	}
	s.notifyGroupMembers(group, "", target+" was removed from group "+group+".")
	s.sendGroupResponse(sess, "Member removed.")
}

func (s *Server) handleGroupLeave(sess *Session, f *protocol.Frame) {
	leaver := f.Source
	group := f.Target

	if group == "" {
		s.sendGroupResponse(sess, "Group name required.")
		return
	}

	// Уйти может любой участник, включая владельца. Владение при этом
	// не передается - группа остается за ушедшим (известная дыра в
	// исходной модели, решение зафиксировано в DESIGN.md).
	if err := s.db.RemoveGroupMember(group, leaver); err != nil {
		if err != db.ErrNoRows {
			log.Printf("Group leave error: %v", err)
		}
		s.sendGroupResponse(sess, "Failed to leave group (maybe not a member).")
		return
	}

	s.notifyGroupMembers(group, "", leaver+" left the group "+group+".")
	s.sendGroupResponse(sess, "You left the group.")
}

func (s *Server) handleGroupListJoined(sess *Session) {
	groups, err := s.db.GroupsForUser(sess.Username)
	if err != nil {
		log.Printf("Group list error: %v", err)
		s.sendGroupResponse(sess, "Internal error.")
		return
	}

	body := "You have not joined any groups."
	if len(groups) > 0 {
		body = "Joined groups: " + joinCapped(groups, ", ", protocol.MaxBody-len("Joined groups: "))
	}
	s.sendGroupList(sess, body)
}

func (s *Server) handleGroupListAll(sess *Session) {
	groups, err := s.db.AllGroups()
	if err != nil {
		log.Printf("Group list error: %v", err)
		s.sendGroupResponse(sess, "Internal error.")
		return
	}

	body := "No groups available."
	if len(groups) > 0 {
		body = "Available groups: " + joinCapped(groups, ", ", protocol.MaxBody-len("Available groups: "))
	}
	s.sendGroupList(sess, body)
}

func (s *Server) sendGroupList(sess *Session, body string) {
	s.sendFrame(sess, &protocol.Frame{
		Type:   protocol.TypeGroupList,
		Source: "Server",
		Body:   body,
	})
}

// notifyGroupMembers рассылает служебное событие группы всем текущим
// онлайн-участникам, кроме skip (пустая строка - без исключений)
func (s *Server) notifyGroupMembers(group, skip, body string) {
	members, err := s.db.GroupMembers(group)
	if err != nil {
		log.Printf("Group notify error: %v", err)
		return
	}

	for _, name := range members {
		if name == skip {
			continue
		}
		if target, online := s.registry.ByUsername(name); online {
			s.sendFrame(target, &protocol.Frame{
				Type:   protocol.TypeReceiveGroup,
				Source: "Server",
				Target: group,
				Body:   body,
			})
		}
	}
}
