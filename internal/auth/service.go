// Package auth はOAuth認証フロー、アカウント照合、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/repository"
)

// Profile はOAuthプロバイダーから取得した検証済みプロファイルを表す。
type Profile struct {
	Subject    string // プロバイダーが発行する安定したサブジェクトID
	Email      string
	Name       string
	GivenName  string
	FamilyName string
	Picture    string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、検証済みプロファイルを取得する。
	ExchangeCode(ctx context.Context, code string) (*Profile, error)
}

// LoginRecorder はログイン・セッション関連メトリクスの記録インターフェース。
type LoginRecorder interface {
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
	RecordSessionIssued()
	RecordSessionRevoked()
}

// noopRecorder はメトリクス未設定時のLoginRecorder実装。
type noopRecorder struct{}

func (noopRecorder) RecordLoginSuccess()       {}
func (noopRecorder) RecordLoginFailure(string) {}
func (noopRecorder) RecordSessionIssued()      {}
func (noopRecorder) RecordSessionRevoked()     {}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// アカウント照合（reconcile）とセッションの発行・検証・破棄を担う。
type Service struct {
	oauth       OAuthProvider
	accountRepo repository.AccountRepository
	sessionRepo repository.SessionRepository
	metrics     LoginRecorder
	config      ServiceConfig
}

// NewService はServiceを生成する。metricsがnilの場合は記録しない。
func NewService(
	oauth OAuthProvider,
	accountRepo repository.AccountRepository,
	sessionRepo repository.SessionRepository,
	metrics LoginRecorder,
	config ServiceConfig,
) *Service {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &Service{
		oauth:       oauth,
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		metrics:     metrics,
		config:      config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 認可コードの交換に失敗した場合はPROVIDER_ERRORを返す。
// プロファイル照合と永続化の詳細はReconcileに委譲する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	profile, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		s.metrics.RecordLoginFailure("provider")
		slog.Error("oauth code exchange failed", slog.String("error", err.Error()))
		return nil, model.NewProviderError("認可コードの交換に失敗しました")
	}

	account, err := s.Reconcile(ctx, profile)
	if err != nil {
		return nil, err
	}

	session, err := s.IssueSession(ctx, account.ID)
	if err != nil {
		s.metrics.RecordLoginFailure("session")
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	s.metrics.RecordLoginSuccess()
	return session, nil
}

// Reconcile は検証済みプロファイルをローカルアカウントに突き合わせる。
// サブジェクトIDが既知なら最終ログイン日時のみを更新し、未知なら新規作成する。
// 1回の呼び出しにつき永続化の書き込みはUPDATEかINSERTのどちらか1回のみ。
// 別サブジェクトIDがメールアドレスを既に占有している場合はEMAIL_CONFLICTを返す。
func (s *Service) Reconcile(ctx context.Context, profile *Profile) (*model.Account, error) {
	account, err := s.accountRepo.FindBySubject(ctx, profile.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by subject: %w", err)
	}

	now := time.Now()

	if account != nil {
		if err := s.accountRepo.UpdateLastLogin(ctx, account.ID, now); err != nil {
			return nil, fmt.Errorf("failed to update last login: %w", err)
		}
		account.LastLoginAt = now
		slog.Info("existing account logged in",
			slog.String("account_id", account.ID),
		)
		return account, nil
	}

	account = &model.Account{
		ID:          uuid.New().String(),
		Subject:     profile.Subject,
		Email:       profile.Email,
		Name:        profile.Name,
		GivenName:   profile.GivenName,
		FamilyName:  profile.FamilyName,
		Picture:     profile.Picture,
		CreatedAt:   now,
		LastLoginAt: now,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.metrics.RecordLoginFailure("email_conflict")
			slog.Warn("email already bound to another subject",
				slog.String("email", profile.Email),
			)
			return nil, model.NewEmailConflictError(profile.Email)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("new account created",
		slog.String("account_id", account.ID),
		slog.String("email", account.Email),
	)
	return account, nil
}

// IssueSession はアカウントに対する新規セッションを発行し永続化する。
// ハンドルは暗号的に安全な乱数で生成し、有効期限は発行時刻から固定TTL。
func (s *Service) IssueSession(ctx context.Context, accountID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		AccountID: accountID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.metrics.RecordSessionIssued()
	return session, nil
}

// ValidateSession はセッションハンドルを検証し、紐付くアカウントを返す。
// ハンドル未登録・期限切れ・アカウント消失のいずれも(nil, nil)を返し、
// 呼び出し側は未認証として扱う。検証によって有効期限は延長されない。
func (s *Service) ValidateSession(ctx context.Context, sessionID string) (*model.Account, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}
	// ストレージ層も期限切れを除外するが、検証の成立を問い合わせの実装に依存させない
	if session.Expired(time.Now()) {
		return nil, nil
	}

	account, err := s.accountRepo.FindByID(ctx, session.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		// セッションが指すアカウントが存在しない場合は無効なセッションとして扱う
		slog.Warn("session bound to missing account",
			slog.String("session_id", session.ID),
			slog.String("account_id", session.AccountID),
		)
		return nil, nil
	}

	return account, nil
}

// RevokeSession はセッションを破棄する。
// 既に無効なハンドルを渡してもエラーにしない（冪等）。
func (s *Service) RevokeSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.metrics.RecordSessionRevoked()
	slog.Info("session revoked", slog.String("session_id", sessionID))
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
