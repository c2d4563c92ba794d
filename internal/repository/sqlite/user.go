package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/auth-backend/internal/apperror"
	"github.com/sakif/auth-backend/internal/model"
	"github.com/sakif/auth-backend/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, fullname, email, password, username, profile_img, google_auth, created_at, updated_at`

// FindByEmail looks a user up by exact (case-sensitive) email.
func (db *DB) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("email", "Email not found")
		}
		return nil, fmt.Errorf("sqlite: finding user by email: %w", err)
	}
	return u, nil
}

func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprintf("user not found with id %s", id))
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

func (db *DB) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username %q: %w", username, err)
	}
	return exists, nil
}

// Save inserts a new user or rewrites the public fields of an existing one.
func (db *DB) Save(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		return db.insert(ctx, user)
	}
	return db.update(ctx, user)
}

func (db *DB) insert(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	id := xid.New().String()

	var password sql.NullString
	if user.HasPassword() {
		password = sql.NullString{String: user.PersonalInfo.Password, Valid: true}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		user.PersonalInfo.Fullname,
		user.PersonalInfo.Email,
		password,
		user.PersonalInfo.Username,
		user.PersonalInfo.ProfileImg,
		user.GoogleAuth,
		now,
		now,
	)
	if err != nil {
		if cerr := uniqueViolation(err, user); cerr != nil {
			return cerr
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// update never touches the password column: callers may hold a record with
// the password projected away.
func (db *DB) update(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		    SET fullname = ?, email = ?, username = ?, profile_img = ?, google_auth = ?, updated_at = ?
		  WHERE id = ?`,
		user.PersonalInfo.Fullname,
		user.PersonalInfo.Email,
		user.PersonalInfo.Username,
		user.PersonalInfo.ProfileImg,
		user.GoogleAuth,
		now,
		user.ID,
	)
	if err != nil {
		if cerr := uniqueViolation(err, user); cerr != nil {
			return cerr
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	if n == 0 {
		return apperror.NotFound("user", fmt.Sprintf("user not found with id %s", user.ID))
	}

	user.UpdatedAt = now
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	var (
		u        model.User
		password sql.NullString
	)
	err := row.Scan(
		&u.ID,
		&u.PersonalInfo.Fullname,
		&u.PersonalInfo.Email,
		&password,
		&u.PersonalInfo.Username,
		&u.PersonalInfo.ProfileImg,
		&u.GoogleAuth,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.PersonalInfo.Password = password.String
	return &u, nil
}

// uniqueViolation maps a UNIQUE constraint failure to apperror.Conflict, or
// returns nil if err is something else.
func uniqueViolation(err error, user *model.User) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return nil
	}
	msg := se.Error()
	if se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE && !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	switch {
	case strings.Contains(msg, "users.email"):
		return apperror.Conflict("email", user.PersonalInfo.Email)
	case strings.Contains(msg, "users.username"):
		return apperror.Conflict("username", user.PersonalInfo.Username)
	default:
		return apperror.Conflict("id", user.ID)
	}
}
