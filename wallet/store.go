package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// SQLStore reads encrypted wallet records from the users database. The
// encrypted blob lives in users.mpc_data.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens a store on the given driver ("mysql" or "sqlite").
func OpenSQLStore(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	return &SQLStore{db: db}, nil
}

// NewSQLStore wraps an existing connection pool.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// EncryptedWallet returns the stored blob for userID.
func (s *SQLStore) EncryptedWallet(ctx context.Context, userID string) (string, error) {
	var blob sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT mpc_data FROM users WHERE id = ?", userID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !blob.Valid) {
		return "", fmt.Errorf("%w for user %s", ErrWalletNotFound, userID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load wallet for user %s: %w", userID, err)
	}
	return blob.String, nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
