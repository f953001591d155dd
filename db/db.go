package db

import (
	"database/sql"
	"errors"

	"chatd/models"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNoRows    = errors.New("no rows found")
	ErrDuplicate = errors.New("row already exists")
)

type DB struct {
	conn *sql.DB
}

func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS friendships (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			requester TEXT NOT NULL,
			target TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending'
		)`,
		// Не больше одной записи на неупорядоченную пару
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_friendships_pair
			ON friendships(MIN(requester, target), MAX(requester, target))`,
		`CREATE TABLE IF NOT EXISTS groups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			owner TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS group_members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			group_name TEXT NOT NULL,
			username TEXT NOT NULL,
			UNIQUE(group_name, username)
		)`,
		`CREATE TABLE IF NOT EXISTS offline_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sender TEXT NOT NULL,
			recipient TEXT NOT NULL,
			body TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_offline_recipient ON offline_messages(recipient, id)`,
		`CREATE INDEX IF NOT EXISTS idx_members_group ON group_members(group_name)`,
		`CREATE INDEX IF NOT EXISTS idx_members_user ON group_members(username)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// isConstraint проверяет, что ошибка - нарушение уникальности
func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// --- Пользователи ---

func (db *DB) CreateUser(username, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(
		"INSERT INTO users (username, password) VALUES (?, ?)",
		username, string(hashed),
	)
	if err != nil && isConstraint(err) {
		return ErrDuplicate
	}
	return err
}

func (db *DB) AuthenticateUser(username, password string) (bool, error) {
	var hashedPassword string
	err := db.conn.QueryRow("SELECT password FROM users WHERE username = ?", username).Scan(&hashedPassword)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil, nil
}

func (db *DB) UserExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// --- Дружба ---

// FriendRequest сохраняет ожидающую заявку. Если между парой уже есть
// запись в любом направлении и любом статусе - ErrDuplicate.
func (db *DB) FriendRequest(requester, target string) error {
	_, err := db.conn.Exec(
		"INSERT INTO friendships (requester, target, status) VALUES (?, ?, ?)",
		requester, target, models.FriendPending,
	)
	if err != nil && isConstraint(err) {
		return ErrDuplicate
	}
	return err
}

// FriendAccept переводит заявку в принятую. Направление должно совпадать:
// принять можно только заявку, адресованную принимающему.
func (db *DB) FriendAccept(accepter, requester string) error {
	result, err := db.conn.Exec(
		"UPDATE friendships SET status = ? WHERE requester = ? AND target = ? AND status = ?",
		models.FriendAccepted, requester, accepter, models.FriendPending,
	)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (db *DB) FriendDecline(decliner, requester string) error {
	result, err := db.conn.Exec(
		"DELETE FROM friendships WHERE requester = ? AND target = ? AND status = ?",
		requester, decliner, models.FriendPending,
	)
	if err != nil {
		return err
	}
	return requireRows(result)
}

// Unfriend удаляет принятую запись независимо от направления
func (db *DB) Unfriend(user, other string) error {
	result, err := db.conn.Exec(
		`DELETE FROM friendships WHERE status = ?
			AND ((requester = ? AND target = ?) OR (requester = ? AND target = ?))`,
		models.FriendAccepted, user, other, other, user,
	)
	if err != nil {
		return err
	}
	return requireRows(result)
}

// Friends возвращает имена всех принятых друзей пользователя
func (db *DB) Friends(user string) ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT CASE WHEN requester = ? THEN target ELSE requester END
			FROM friendships
			WHERE status = ? AND (requester = ? OR target = ?)
			ORDER BY 1`,
		user, models.FriendAccepted, user, user,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStrings(rows)
}

// --- Группы ---

// CreateGroup создает группу и сразу добавляет владельца первым участником
func (db *DB) CreateGroup(name, owner string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT INTO groups (name, owner) VALUES (?, ?)", name, owner); err != nil {
		if isConstraint(err) {
			return ErrDuplicate
		}
		return err
	}
	if _, err := tx.Exec("INSERT INTO group_members (group_name, username) VALUES (?, ?)", name, owner); err != nil {
		return err
	}

	return tx.Commit()
}

func (db *DB) GroupExists(name string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM groups WHERE name = ?", name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (db *DB) IsGroupOwner(name, username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM groups WHERE name = ? AND owner = ?", name, username).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (db *DB) IsGroupMember(name, username string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM group_members WHERE group_name = ? AND username = ?",
		name, username,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (db *DB) AddGroupMember(name, username string) error {
	_, err := db.conn.Exec(
		"INSERT INTO group_members (group_name, username) VALUES (?, ?)",
		name, username,
	)
	if err != nil && isConstraint(err) {
		return ErrDuplicate
	}
	return err
}

func (db *DB) RemoveGroupMember(name, username string) error {
	result, err := db.conn.Exec(
		"DELETE FROM group_members WHERE group_name = ? AND username = ?",
		name, username,
	)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (db *DB) GroupMembers(name string) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT username FROM group_members WHERE group_name = ? ORDER BY username",
		name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStrings(rows)
}

func (db *DB) GroupsForUser(username string) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT group_name FROM group_members WHERE username = ? ORDER BY group_name",
		username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStrings(rows)
}

func (db *DB) AllGroups() ([]string, error) {
	rows, err := db.conn.Query("SELECT name FROM groups ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStrings(rows)
}

// --- Офлайн-сообщения ---

func (db *DB) StoreOfflineMessage(sender, recipient, body string) error {
	_, err := db.conn.Exec(
		"INSERT INTO offline_messages (sender, recipient, body) VALUES (?, ?, ?)",
		sender, recipient, body,
	)
	return err
}

// DrainOfflineMessages читает и удаляет очередь получателя одной
// транзакцией: повторный вызов после успешного возврата всегда пуст.
func (db *DB) DrainOfflineMessages(recipient string) ([]models.OfflineMessage, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		"SELECT id, sender, recipient, body FROM offline_messages WHERE recipient = ? ORDER BY id ASC",
		recipient,
	)
	if err != nil {
		return nil, err
	}

	var messages []models.OfflineMessage
	for rows.Next() {
		var m models.OfflineMessage
		if err := rows.Scan(&m.ID, &m.Sender, &m.Recipient, &m.Body); err != nil {
			rows.Close()
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := tx.Exec("DELETE FROM offline_messages WHERE recipient = ?", recipient); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return messages, nil
}

// --- Вспомогательные ---

func requireRows(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoRows
	}
	return nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var items []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
