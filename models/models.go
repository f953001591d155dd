package models

// Статусы записи о дружбе
const (
	FriendPending  = "pending"
	FriendAccepted = "accepted"
)

type User struct {
	ID       int64
	Username string
	Password string // bcrypt-хэш
}

// Friendship хранится направленно: Requester отправил заявку Target.
// После принятия направление сохраняется, но смысла уже не несет.
type Friendship struct {
	ID        int64
	Requester string
	Target    string
	Status    string // FriendPending или FriendAccepted
}

type Group struct {
	ID    int64
	Name  string
	Owner string
}

type GroupMember struct {
	ID       int64
	Group    string
	Username string
}

// OfflineMessage - сообщение, ожидающее следующего входа получателя.
// Порядок доставки определяется возрастанием ID.
type OfflineMessage struct {
	ID        int64
	Sender    string
	Recipient string
	Body      string
}
