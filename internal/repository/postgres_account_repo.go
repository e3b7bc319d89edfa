package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/taskdeck/internal/model"
)

// pqUniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const pqUniqueViolation = "23505"

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	account := &model.Account{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, subject, email, name, given_name, family_name, picture, created_at, last_login_at
		 FROM accounts WHERE id = $1`,
		id,
	).Scan(
		&account.ID, &account.Subject, &account.Email, &account.Name,
		&account.GivenName, &account.FamilyName, &account.Picture,
		&account.CreatedAt, &account.LastLoginAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by ID: %w", err)
	}

	return account, nil
}

// FindBySubject は外部IdPのサブジェクトIDでアカウントを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindBySubject(ctx context.Context, subject string) (*model.Account, error) {
	account := &model.Account{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, subject, email, name, given_name, family_name, picture, created_at, last_login_at
		 FROM accounts WHERE subject = $1`,
		subject,
	).Scan(
		&account.ID, &account.Subject, &account.Email, &account.Name,
		&account.GivenName, &account.FamilyName, &account.Picture,
		&account.CreatedAt, &account.LastLoginAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by subject: %w", err)
	}

	return account, nil
}

// Create はアカウントを作成する。
// accounts_email_keyの一意制約違反の場合はErrDuplicateEmailを返す。
func (r *PostgresAccountRepo) Create(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, subject, email, name, given_name, family_name, picture, created_at, last_login_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.ID, account.Subject, account.Email, account.Name,
		account.GivenName, account.FamilyName, account.Picture,
		account.CreatedAt, account.LastLoginAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation && pqErr.Constraint == "accounts_email_key" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// UpdateLastLogin は最終ログイン日時を更新する。
func (r *PostgresAccountRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET last_login_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
