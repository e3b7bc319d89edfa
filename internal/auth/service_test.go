package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/repository"
)

// --- モック定義 ---

type mockAccountRepo struct {
	findByIDFn        func(ctx context.Context, id string) (*model.Account, error)
	findBySubjectFn   func(ctx context.Context, subject string) (*model.Account, error)
	createFn          func(ctx context.Context, account *model.Account) error
	updateLastLoginFn func(ctx context.Context, id string, at time.Time) error
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockAccountRepo) FindBySubject(ctx context.Context, subject string) (*model.Account, error) {
	if m.findBySubjectFn != nil {
		return m.findBySubjectFn(ctx, subject)
	}
	return nil, nil
}

func (m *mockAccountRepo) Create(ctx context.Context, account *model.Account) error {
	if m.createFn != nil {
		return m.createFn(ctx, account)
	}
	return nil
}

func (m *mockAccountRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if m.updateLastLoginFn != nil {
		return m.updateLastLoginFn(ctx, id, at)
	}
	return nil
}

type mockSessionRepo struct {
	createFn        func(ctx context.Context, session *model.Session) error
	findByIDFn      func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn    func(ctx context.Context, id string) error
	deleteExpiredFn func(ctx context.Context) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*Profile, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*Profile, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

// --- compile-time interface checks ---
var _ repository.AccountRepository = (*mockAccountRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)

func testProfile() *Profile {
	return &Profile{
		Subject:    "google-sub-12345",
		Email:      "hanako@example.com",
		Name:       "山田花子",
		GivenName:  "花子",
		FamilyName: "山田",
		Picture:    "https://example.com/photo.jpg",
	}
}

// --- テスト ---

func TestGetLoginURL_DelegatesToProvider(t *testing.T) {
	provider := &mockOAuthProvider{
		getLoginURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	svc := NewService(provider, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	url := svc.GetLoginURL("test-state")
	if !strings.Contains(url, "state=test-state") {
		t.Errorf("expected state in URL, got %q", url)
	}
}

func TestHandleCallback_Success_IssuesSession(t *testing.T) {
	var created *model.Session

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, code string) (*Profile, error) {
			if code != "auth-code" {
				t.Errorf("code = %q, want %q", code, "auth-code")
			}
			return testProfile(), nil
		},
	}
	accountRepo := &mockAccountRepo{
		findBySubjectFn: func(_ context.Context, _ string) (*model.Account, error) {
			return &model.Account{ID: "account-1", Subject: "google-sub-12345"}, nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(_ context.Context, session *model.Session) error {
			created = session
			return nil
		},
	}
	svc := NewService(provider, accountRepo, sessionRepo, nil, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session == nil {
		t.Fatal("expected non-nil session")
	}
	if created == nil {
		t.Fatal("expected session to be persisted")
	}
	if session.AccountID != "account-1" {
		t.Errorf("AccountID = %q, want %q", session.AccountID, "account-1")
	}
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64 (32 bytes hex)", len(session.ID))
	}
}

func TestHandleCallback_ExchangeFailure_ReturnsProviderError(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, _ string) (*Profile, error) {
			return nil, errors.New("token endpoint returned 500")
		},
	}
	svc := NewService(provider, &mockAccountRepo{}, &mockSessionRepo{}, nil, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(context.Background(), "bad-code")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeProviderError {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeProviderError)
	}
}

func TestReconcile_ExistingAccount_UpdatesLastLoginOnly(t *testing.T) {
	updateCalls := 0
	createCalls := 0

	accountRepo := &mockAccountRepo{
		findBySubjectFn: func(_ context.Context, subject string) (*model.Account, error) {
			return &model.Account{
				ID:      "account-1",
				Subject: subject,
				Email:   "hanako@example.com",
			}, nil
		},
		updateLastLoginFn: func(_ context.Context, id string, _ time.Time) error {
			updateCalls++
			if id != "account-1" {
				t.Errorf("id = %q, want %q", id, "account-1")
			}
			return nil
		},
		createFn: func(_ context.Context, _ *model.Account) error {
			createCalls++
			return nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, accountRepo, &mockSessionRepo{}, nil, ServiceConfig{SessionMaxAge: 86400})

	account, err := svc.Reconcile(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID != "account-1" {
		t.Errorf("ID = %q, want %q", account.ID, "account-1")
	}

	// 既存アカウントの再ログインでは書き込みはUPDATEの1回のみ
	if updateCalls != 1 {
		t.Errorf("UpdateLastLogin calls = %d, want 1", updateCalls)
	}
	if createCalls != 0 {
		t.Errorf("Create calls = %d, want 0", createCalls)
	}
}

func TestReconcile_UnknownSubject_CreatesAccountOnce(t *testing.T) {
	updateCalls := 0
	createCalls := 0
	var createdAccount *model.Account

	accountRepo := &mockAccountRepo{
		findBySubjectFn: func(_ context.Context, _ string) (*model.Account, error) {
			return nil, nil
		},
		updateLastLoginFn: func(_ context.Context, _ string, _ time.Time) error {
			updateCalls++
			return nil
		},
		createFn: func(_ context.Context, account *model.Account) error {
			createCalls++
			createdAccount = account
			return nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, accountRepo, &mockSessionRepo{}, nil, ServiceConfig{SessionMaxAge: 86400})

	account, err := svc.Reconcile(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if createCalls != 1 {
		t.Errorf("Create calls = %d, want 1", createCalls)
	}
	if updateCalls != 0 {
		t.Errorf("UpdateLastLogin calls = %d, want 0", updateCalls)
	}
	if createdAccount.Subject != "google-sub-12345" {
		t.Errorf("Subject = %q, want %q", createdAccount.Subject, "google-sub-12345")
	}
	if createdAccount.Email != "hanako@example.com" {
		t.Errorf("Email = %q, want %q", createdAccount.Email, "hanako@example.com")
	}
	if account.ID == "" {
		t.Error("expected generated account ID")
	}
}

func TestReconcile_DuplicateEmail_ReturnsConflictError(t *testing.T) {
	accountRepo := &mockAccountRepo{
		findBySubjectFn: func(_ context.Context, _ string) (*model.Account, error) {
			return nil, nil
		},
		createFn: func(_ context.Context, _ *model.Account) error {
			return repository.ErrDuplicateEmail
		},
	}
	svc := NewService(&mockOAuthProvider{}, accountRepo, &mockSessionRepo{}, nil, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.Reconcile(context.Background(), testProfile())
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeEmailConflict {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeEmailConflict)
	}
}

func TestIssueSession_FixedTTLFromConfig(t *testing.T) {
	var created *model.Session
	sessionRepo := &mockSessionRepo{
		createFn: func(_ context.Context, session *model.Session) error {
			created = session
			return nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, &mockAccountRepo{}, sessionRepo, nil, ServiceConfig{SessionMaxAge: 3600})

	before := time.Now()
	session, err := svc.IssueSession(context.Background(), "account-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := time.Now()

	if created == nil {
		t.Fatal("expected session to be persisted")
	}

	wantMin := before.Add(time.Hour)
	wantMax := after.Add(time.Hour)
	if session.ExpiresAt.Before(wantMin) || session.ExpiresAt.After(wantMax) {
		t.Errorf("ExpiresAt = %v, want within [%v, %v]", session.ExpiresAt, wantMin, wantMax)
	}
}

func TestIssueSession_GeneratesUniqueIDs(t *testing.T) {
	svc := NewService(&mockOAuthProvider{}, &mockAccountRepo{}, &mockSessionRepo{}, nil, ServiceConfig{SessionMaxAge: 86400})

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		session, err := svc.IssueSession(context.Background(), "account-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[session.ID] {
			t.Fatalf("duplicate session ID generated: %q", session.ID)
		}
		seen[session.ID] = true
	}
}

func TestValidateSession_EmptyID_ReturnsNil(t *testing.T) {
	svc := NewService(&mockOAuthProvider{}, &mockAccountRepo{}, &mockSessionRepo{}, nil, ServiceConfig{SessionMaxAge: 86400})

	account, err := svc.ValidateSession(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account != nil {
		t.Errorf("expected nil account, got %+v", account)
	}
}

func TestValidateSession_UnknownSession_ReturnsNil(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Session, error) {
			return nil, nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, &mockAccountRepo{}, sessionRepo, nil, ServiceConfig{SessionMaxAge: 86400})

	account, err := svc.ValidateSession(context.Background(), "unknown-session")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account != nil {
		t.Errorf("expected nil account, got %+v", account)
	}
}

func TestValidateSession_ValidSession_ReturnsAccount(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        id,
				AccountID: "account-1",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	accountRepo := &mockAccountRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Account, error) {
			return &model.Account{ID: id, Email: "hanako@example.com"}, nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, accountRepo, sessionRepo, nil, ServiceConfig{SessionMaxAge: 86400})

	account, err := svc.ValidateSession(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account == nil {
		t.Fatal("expected non-nil account")
	}
	if account.ID != "account-1" {
		t.Errorf("ID = %q, want %q", account.ID, "account-1")
	}
}

func TestValidateSession_AccountGone_ReturnsNil(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        id,
				AccountID: "deleted-account",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	accountRepo := &mockAccountRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Account, error) {
			return nil, nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, accountRepo, sessionRepo, nil, ServiceConfig{SessionMaxAge: 86400})

	// セッションが指すアカウントが消えている場合は無効なセッション扱い
	account, err := svc.ValidateSession(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account != nil {
		t.Errorf("expected nil account, got %+v", account)
	}
}

func TestValidateSession_ExpiredSession_ReturnsNil(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        id,
				AccountID: "account-1",
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil
		},
	}
	accountLookups := 0
	accountRepo := &mockAccountRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Account, error) {
			accountLookups++
			return &model.Account{ID: id}, nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, accountRepo, sessionRepo, nil, ServiceConfig{SessionMaxAge: 86400})

	// ストレージが期限切れレコードを返してもサービス層で無効扱いにする
	account, err := svc.ValidateSession(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account != nil {
		t.Errorf("expected nil account for expired session, got %+v", account)
	}
	if accountLookups != 0 {
		t.Errorf("account lookups = %d, want 0", accountLookups)
	}
}

func TestRevokeSession_DeletesSession(t *testing.T) {
	deleted := ""
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, &mockAccountRepo{}, sessionRepo, nil, ServiceConfig{SessionMaxAge: 86400})

	if err := svc.RevokeSession(context.Background(), "session-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "session-1" {
		t.Errorf("deleted = %q, want %q", deleted, "session-1")
	}
}

func TestRevokeSession_Idempotent(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(_ context.Context, _ string) error {
			// リポジトリは不存在の削除もエラーにしない
			return nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, &mockAccountRepo{}, sessionRepo, nil, ServiceConfig{SessionMaxAge: 86400})

	if err := svc.RevokeSession(context.Background(), "already-gone"); err != nil {
		t.Errorf("unexpected error on repeated revoke: %v", err)
	}
	if err := svc.RevokeSession(context.Background(), "already-gone"); err != nil {
		t.Errorf("unexpected error on repeated revoke: %v", err)
	}
}

func TestRevokeSession_EmptyID_NoOp(t *testing.T) {
	called := false
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(_ context.Context, _ string) error {
			called = true
			return nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, &mockAccountRepo{}, sessionRepo, nil, ServiceConfig{SessionMaxAge: 86400})

	if err := svc.RevokeSession(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("expected no repository call for empty session ID")
	}
}

func TestValidateSession_AfterRevoke_ReturnsNil(t *testing.T) {
	store := map[string]*model.Session{
		"session-1": {ID: "session-1", AccountID: "account-1", ExpiresAt: time.Now().Add(time.Hour)},
	}
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Session, error) {
			return store[id], nil
		},
		deleteByIDFn: func(_ context.Context, id string) error {
			delete(store, id)
			return nil
		},
	}
	accountRepo := &mockAccountRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Account, error) {
			return &model.Account{ID: id}, nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, accountRepo, sessionRepo, nil, ServiceConfig{SessionMaxAge: 86400})

	if err := svc.RevokeSession(context.Background(), "session-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	account, err := svc.ValidateSession(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account != nil {
		t.Errorf("expected revoked session to be invalid, got account %+v", account)
	}
}
