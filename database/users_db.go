package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"lookupdesk/models"
)

// ErrUserExists is returned when a username is already taken.
var ErrUserExists = errors.New("user already exists")

// ErrUserNotFound is returned when no account has the given username.
var ErrUserNotFound = errors.New("user not found")

// CreateUser inserts a new account.
func CreateUser(username, passwordHash, role string) (models.User, error) {
	res, err := DB.Exec("INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)", username, passwordHash, role)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return models.User{}, fmt.Errorf("creating user '%s': %w", username, ErrUserExists)
		}
		return models.User{}, fmt.Errorf("creating user '%s': %w", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("reading id of user '%s': %w", username, err)
	}
	return GetUserByID(id)
}

func scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, ErrUserNotFound
		}
		return u, err
	}
	return u, nil
}

// GetUserByID fetches an account by primary key.
func GetUserByID(id int64) (models.User, error) {
	u, err := scanUser(DB.QueryRow("SELECT id, username, password_hash, role, created_at FROM users WHERE id = ?", id))
	if err != nil {
		return u, fmt.Errorf("querying user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername fetches an account by username.
func GetUserByUsername(username string) (models.User, error) {
	u, err := scanUser(DB.QueryRow("SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?", username))
	if err != nil {
		return u, fmt.Errorf("querying user '%s': %w", username, err)
	}
	return u, nil
}

// SetUserRole changes an account's role.
func SetUserRole(username, role string) error {
	res, err := DB.Exec("UPDATE users SET role = ? WHERE username = ?", role, username)
	if err != nil {
		return fmt.Errorf("updating role of '%s': %w", username, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating role of '%s': %w", username, err)
	}
	if n == 0 {
		return fmt.Errorf("updating role of '%s': %w", username, ErrUserNotFound)
	}
	return nil
}

// CountUsers returns the number of stored accounts.
func CountUsers() (int, error) {
	var n int
	if err := DB.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// ListUsers returns every account ordered by username.
func ListUsers() ([]models.User, error) {
	rows, err := DB.Query("SELECT id, username, password_hash, role, created_at FROM users ORDER BY username ASC")
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
