package db_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatd/db"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return database
}

func TestCreateAndAuthenticateUser(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.CreateUser("alice", "secret123"))

	ok, err := database.AuthenticateUser("alice", "secret123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = database.AuthenticateUser("alice", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = database.AuthenticateUser("nobody", "secret123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateUserDuplicate(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.CreateUser("alice", "secret123"))
	assert.ErrorIs(t, database.CreateUser("alice", "other"), db.ErrDuplicate)
}

func TestUserExists(t *testing.T) {
	database := newTestDB(t)

	exists, err := database.UserExists("alice")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, database.CreateUser("alice", "secret123"))

	exists, err = database.UserExists("alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFriendRequestPairUniqueness(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.FriendRequest("alice", "bob"))

	// Повтор в ту же сторону и встречная заявка - одна и та же пара
	assert.ErrorIs(t, database.FriendRequest("alice", "bob"), db.ErrDuplicate)
	assert.ErrorIs(t, database.FriendRequest("bob", "alice"), db.ErrDuplicate)
}

func TestFriendAcceptDirection(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.FriendRequest("alice", "bob"))

	// Заявку alice->bob может принять только bob
	assert.ErrorIs(t, database.FriendAccept("alice", "bob"), db.ErrNoRows)

	require.NoError(t, database.FriendAccept("bob", "alice"))

	friends, err := database.Friends("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, friends)

	friends, err = database.Friends("bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, friends)

	// Повторное принятие: заявки в статусе pending больше нет
	assert.ErrorIs(t, database.FriendAccept("bob", "alice"), db.ErrNoRows)
}

func TestFriendDecline(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.FriendRequest("alice", "bob"))

	// Отклонить может только адресат заявки
	assert.ErrorIs(t, database.FriendDecline("alice", "bob"), db.ErrNoRows)
	require.NoError(t, database.FriendDecline("bob", "alice"))

	friends, err := database.Friends("bob")
	require.NoError(t, err)
	assert.Empty(t, friends)

	// После отклонения пара свободна для новой заявки
	require.NoError(t, database.FriendRequest("bob", "alice"))
}

func TestUnfriend(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.FriendRequest("alice", "bob"))
	require.NoError(t, database.FriendAccept("bob", "alice"))

	// Разорвать дружбу может любая из сторон
	require.NoError(t, database.Unfriend("bob", "alice"))

	friends, err := database.Friends("alice")
	require.NoError(t, err)
	assert.Empty(t, friends)

	assert.ErrorIs(t, database.Unfriend("alice", "bob"), db.ErrNoRows)
}

func TestUnfriendPendingNotAccepted(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.FriendRequest("alice", "bob"))

	// Ожидающая заявка - еще не дружба
	assert.ErrorIs(t, database.Unfriend("alice", "bob"), db.ErrNoRows)
}

func TestCreateGroupAddsOwnerAsMember(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.CreateGroup("gophers", "alice"))

	exists, err := database.GroupExists("gophers")
	require.NoError(t, err)
	assert.True(t, exists)

	isOwner, err := database.IsGroupOwner("gophers", "alice")
	require.NoError(t, err)
	assert.True(t, isOwner)

	isMember, err := database.IsGroupMember("gophers", "alice")
	require.NoError(t, err)
	assert.True(t, isMember)

	assert.ErrorIs(t, database.CreateGroup("gophers", "bob"), db.ErrDuplicate)
}

func TestGroupMembership(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.CreateGroup("gophers", "alice"))
	require.NoError(t, database.AddGroupMember("gophers", "bob"))
	assert.ErrorIs(t, database.AddGroupMember("gophers", "bob"), db.ErrDuplicate)

	members, err := database.GroupMembers("gophers")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, members)

	isOwner, err := database.IsGroupOwner("gophers", "bob")
	require.NoError(t, err)
	assert.False(t, isOwner)

	require.NoError(t, database.RemoveGroupMember("gophers", "bob"))
	assert.ErrorIs(t, database.RemoveGroupMember("gophers", "bob"), db.ErrNoRows)

	members, err = database.GroupMembers("gophers")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, members)
}

func TestGroupListings(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.CreateGroup("zoo", "alice"))
	require.NoError(t, database.CreateGroup("gophers", "bob"))
	require.NoError(t, database.AddGroupMember("gophers", "alice"))

	groups, err := database.GroupsForUser("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"gophers", "zoo"}, groups)

	groups, err = database.GroupsForUser("carol")
	require.NoError(t, err)
	assert.Empty(t, groups)

	all, err := database.AllGroups()
	require.NoError(t, err)
	assert.Equal(t, []string{"gophers", "zoo"}, all)
}

func TestOfflineMessageDrain(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.StoreOfflineMessage("alice", "bob", "first"))
	require.NoError(t, database.StoreOfflineMessage("carol", "bob", "second"))
	require.NoError(t, database.StoreOfflineMessage("alice", "carol", "other"))

	messages, err := database.DrainOfflineMessages("bob")
	require.NoError(t, err)
	require.Len(t, messages, 2)

	// Порядок отправки сохраняется
	assert.Equal(t, "alice", messages[0].Sender)
	assert.Equal(t, "first", messages[0].Body)
	assert.Equal(t, "carol", messages[1].Sender)
	assert.Equal(t, "second", messages[1].Body)

	// Слив опустошает очередь - повтор пуст
	messages, err = database.DrainOfflineMessages("bob")
	require.NoError(t, err)
	assert.Empty(t, messages)

	// Чужая очередь не задета
	messages, err = database.DrainOfflineMessages("carol")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "other", messages[0].Body)
}
