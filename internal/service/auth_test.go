package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nahiyan/tasktrail/internal/apperror"
	"github.com/nahiyan/tasktrail/internal/auth"
	"github.com/nahiyan/tasktrail/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory account store. It mirrors the sqlite
// implementation's semantics: unique emails, and single-use token
// consumption via conditional updates that report ErrNotFound when the
// token is already gone.
type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int

	// set to simulate a store failure
	failWith error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("an account with this email already exists")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, apperror.NotFound("account not found")
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("account not found")
}

func (f *fakeUserRepo) GetByVerificationToken(_ context.Context, token string) (*model.User, error) {
	for _, u := range f.users {
		if u.EmailVerificationToken != nil && *u.EmailVerificationToken == token {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("verification token not found")
}

func (f *fakeUserRepo) GetByResetToken(_ context.Context, token string) (*model.User, error) {
	for _, u := range f.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("reset token not found")
}

func (f *fakeUserRepo) MarkEmailVerified(_ context.Context, token string) error {
	for _, u := range f.users {
		if u.EmailVerificationToken != nil && *u.EmailVerificationToken == token {
			u.EmailVerified = true
			u.EmailVerificationToken = nil
			u.EmailVerificationExpires = nil
			return nil
		}
	}
	return apperror.NotFound("verification token not found")
}

func (f *fakeUserRepo) RotateVerificationToken(_ context.Context, id, token string, expires time.Time) error {
	u, ok := f.users[id]
	if !ok || u.EmailVerified {
		return apperror.NotFound("account not found")
	}
	u.EmailVerificationToken = &token
	u.EmailVerificationExpires = &expires
	return nil
}

func (f *fakeUserRepo) SetResetToken(_ context.Context, id, token string, expires time.Time) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("account not found")
	}
	u.PasswordResetToken = &token
	u.PasswordResetExpires = &expires
	return nil
}

func (f *fakeUserRepo) ResetPassword(_ context.Context, token, passwordHash string) error {
	for _, u := range f.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token {
			u.PasswordHash = passwordHash
			u.PasswordResetToken = nil
			u.PasswordResetExpires = nil
			return nil
		}
	}
	return apperror.NotFound("reset token not found")
}

// expireVerification backdates the live verification token's expiry.
func (f *fakeUserRepo) expireVerification(email string) {
	for _, u := range f.users {
		if u.Email == email {
			past := time.Now().Add(-time.Minute)
			u.EmailVerificationExpires = &past
		}
	}
}

// expireReset backdates the live reset token's expiry.
func (f *fakeUserRepo) expireReset(email string) {
	for _, u := range f.users {
		if u.Email == email {
			past := time.Now().Add(-time.Minute)
			u.PasswordResetExpires = &past
		}
	}
}

// verificationToken returns the stored verification token for an email
// (test-only access to the store).
func (f *fakeUserRepo) verificationToken(email string) string {
	for _, u := range f.users {
		if u.Email == email && u.EmailVerificationToken != nil {
			return *u.EmailVerificationToken
		}
	}
	return ""
}

func (f *fakeUserRepo) resetToken(email string) string {
	for _, u := range f.users {
		if u.Email == email && u.PasswordResetToken != nil {
			return *u.PasswordResetToken
		}
	}
	return ""
}

// fakeNotifier records sends and optionally fails them all.
type fakeNotifier struct {
	verifications []string // recipient emails
	resets        []string
	welcomes      []string
	failWith      error
}

func (n *fakeNotifier) SendVerification(to, _ string, _ time.Duration) error {
	if n.failWith != nil {
		return n.failWith
	}
	n.verifications = append(n.verifications, to)
	return nil
}

func (n *fakeNotifier) SendPasswordReset(to, _ string, _ time.Duration) error {
	if n.failWith != nil {
		return n.failWith
	}
	n.resets = append(n.resets, to)
	return nil
}

func (n *fakeNotifier) SendWelcome(to, _ string) error {
	if n.failWith != nil {
		return n.failWith
	}
	n.welcomes = append(n.welcomes, to)
	return nil
}

func newTestAuthService(t *testing.T, repo *fakeUserRepo, notifier *fakeNotifier) *AuthService {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	return NewAuthService(repo, tokens, passwords, notifier, logger, AuthConfig{})
}

// registerTestAccount registers and optionally verifies an account.
func registerTestAccount(t *testing.T, svc *AuthService, repo *fakeUserRepo, email string, verified bool) {
	t.Helper()

	if _, err := svc.Register(context.Background(), email, "Passw0rd", "Test User"); err != nil {
		t.Fatalf("Register(%s) error = %v", email, err)
	}
	if verified {
		if err := svc.VerifyEmail(context.Background(), repo.verificationToken(email)); err != nil {
			t.Fatalf("VerifyEmail(%s) error = %v", email, err)
		}
	}
}

// =========================================================================
// REGISTER TESTS
// =========================================================================

func TestRegister_CreatesPendingAccount(t *testing.T) {
	repo := newFakeUserRepo()
	notifier := &fakeNotifier{}
	svc := newTestAuthService(t, repo, notifier)

	account, err := svc.Register(context.Background(), "a@x.com", "Passw0rd", "Alice")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if account.ID == "" {
		t.Error("account summary has no ID")
	}
	if account.Email != "a@x.com" {
		t.Errorf("Email = %q, want %q", account.Email, "a@x.com")
	}
	if account.EmailVerified {
		t.Error("new account must start unverified")
	}

	// The store holds a live verification token pair.
	stored, err := repo.GetByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if stored.EmailVerificationToken == nil || stored.EmailVerificationExpires == nil {
		t.Fatal("verification token pair not set on the stored account")
	}
	if stored.PasswordHash == "Passw0rd" {
		t.Fatal("password stored in plaintext")
	}

	if len(notifier.verifications) != 1 || notifier.verifications[0] != "a@x.com" {
		t.Errorf("verification emails = %v, want one to a@x.com", notifier.verifications)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeNotifier{})

	if _, err := svc.Register(context.Background(), "a@x.com", "Passw0rd", ""); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err := svc.Register(context.Background(), "a@x.com", "Passw0rd", "")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second Register() error = %v, want ErrConflict", err)
	}
}

func TestRegister_EmailIsNormalized(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeNotifier{})

	if _, err := svc.Register(context.Background(), "  A@X.Com ", "Passw0rd", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := repo.GetByEmail(context.Background(), "a@x.com"); err != nil {
		t.Errorf("lookup by lowercased email failed: %v", err)
	}

	// The mixed-case variant is the same account, so a second register
	// conflicts.
	_, err := svc.Register(context.Background(), "a@x.com", "Passw0rd", "")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Register() after case-variant error = %v, want ErrConflict", err)
	}
}

func TestRegister_NotifierFailureDoesNotFailRegistration(t *testing.T) {
	repo := newFakeUserRepo()
	notifier := &fakeNotifier{failWith: errors.New("smtp unreachable")}
	svc := newTestAuthService(t, repo, notifier)

	account, err := svc.Register(context.Background(), "a@x.com", "Passw0rd", "")
	if err != nil {
		t.Fatalf("Register() error = %v, want success despite notifier failure", err)
	}
	if account.ID == "" {
		t.Error("account was not created")
	}
}

// =========================================================================
// VERIFY EMAIL TESTS
// =========================================================================

func TestVerifyEmail_HappyPath(t *testing.T) {
	repo := newFakeUserRepo()
	notifier := &fakeNotifier{}
	svc := newTestAuthService(t, repo, notifier)
	registerTestAccount(t, svc, repo, "a@x.com", false)

	token := repo.verificationToken("a@x.com")
	if err := svc.VerifyEmail(context.Background(), token); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}

	stored, _ := repo.GetByEmail(context.Background(), "a@x.com")
	if !stored.EmailVerified {
		t.Error("account not marked verified")
	}
	if stored.EmailVerificationToken != nil || stored.EmailVerificationExpires != nil {
		t.Error("token pair not cleared after verification")
	}
	if len(notifier.welcomes) != 1 {
		t.Errorf("welcome emails = %d, want 1", len(notifier.welcomes))
	}
}

func TestVerifyEmail_SingleUse(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeNotifier{})
	registerTestAccount(t, svc, repo, "a@x.com", false)

	token := repo.verificationToken("a@x.com")
	if err := svc.VerifyEmail(context.Background(), token); err != nil {
		t.Fatalf("first VerifyEmail() error = %v", err)
	}

	err := svc.VerifyEmail(context.Background(), token)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second VerifyEmail() error = %v, want ErrNotFound", err)
	}
}

func TestVerifyEmail_WrongToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeNotifier{})
	registerTestAccount(t, svc, repo, "a@x.com", false)

	err := svc.VerifyEmail(context.Background(), "0000000000000000000000000000000000000000000000000000000000000000")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("VerifyEmail(wrong) error = %v, want ErrNotFound", err)
	}
}

func TestVerifyEmail_EmptyToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeNotifier{})

	err := svc.VerifyEmail(context.Background(), "")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("VerifyEmail(\"\") error = %v, want ErrNotFound", err)
	}
}

func TestVerifyEmail_ExpiredTokenIsKept(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeNotifier{})
	registerTestAccount(t, svc, repo, "a@x.com", false)

	repo.expireVerification("a@x.com")
	token := repo.verificationToken("a@x.com")

	err := svc.VerifyEmail(context.Background(), token)
	if !errors.Is(err, apperror.ErrTokenExpired) {
		t.Fatalf("VerifyEmail(expired) error = %v, want ErrTokenExpired", err)
	}

	// Expiry does not consume the token; only a resend cycle replaces it.
	if repo.verificationToken("a@x.com") != token {
		t.Error("expired token was cleared; expected it to remain until rotated")
	}

	stored, _ := repo.GetByEmail(context.Background(), "a@x.com")
	if stored.EmailVerified {
		t.Error("account verified despite expired token")
	}
}

// =========================================================================
// RESEND VERIFICATION TESTS
// =========================================================================

func TestResendVerification_RotatesToken(t *testing.T) {
	repo := newFakeUserRepo()
	notifier := &fakeNotifier{}
	svc := newTestAuthService(t, repo, notifier)
	registerTestAccount(t, svc, repo, "a@x.com", false)

	old := repo.verificationToken("a@x.com")

	if err := svc.ResendVerification(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("ResendVerification() error = %v", err)
	}

	fresh := repo.verificationToken("a@x.com")
	if fresh == "" || fresh == old {
		t.Error("verification token was not rotated")
	}

	// The old token no longer verifies.
	if err := svc.VerifyEmail(context.Background(), old); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("VerifyEmail(old) error = %v, want ErrNotFound", err)
	}
	// The fresh one does.
	if err := svc.VerifyEmail(context.Background(), fresh); err != nil {
		t.Errorf("VerifyEmail(fresh) error = %v", err)
	}
}

func TestResendVerification_UnknownAndVerifiedAreSilent(t *testing.T) {
	repo := newFakeUserRepo()
	notifier := &fakeNotifier{}
	svc := newTestAuthService(t, repo, notifier)
	registerTestAccount(t, svc, repo, "a@x.com", true)

	if err := svc.ResendVerification(context.Background(), "nobody@x.com"); err != nil {
		t.Errorf("ResendVerification(unknown) error = %v, want nil", err)
	}
	if err := svc.ResendVerification(context.Background(), "a@x.com"); err != nil {
		t.Errorf("ResendVerification(verified) error = %v, want nil", err)
	}
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestLogin_UnverifiedAccountCannotLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeNotifier{})
	registerTestAccount(t, svc, repo, "a@x.com", false)

	// Correct credentials, but the email was never verified.
	_, err := svc.Login(context.Background(), "a@x.com", "Passw0rd")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Login() error = %v, want ErrUnauthorized", err)
	}
}

func TestLogin_HappyPath(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeNotifier{})
	registerTestAccount(t, svc, repo, "a@x.com", true)

	result, err := svc.Login(context.Background(), "a@x.com", "Passw0rd")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" {
		t.Error("Login() returned empty session token")
	}
	if result.Account.Email != "a@x.com" {
		t.Errorf("Account.Email = %q, want %q", result.Account.Email, "a@x.com")
	}
}

func TestLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeNotifier{})
	registerTestAccount(t, svc, repo, "a@x.com", true)

	_, errUnknown := svc.Login(context.Background(), "nobody@x.com", "Passw0rd")
	_, errWrong := svc.Login(context.Background(), "a@x.com", "WrongPassw0rd")

	if !errors.Is(errUnknown, apperror.ErrUnauthorized) {
		t.Fatalf("Login(unknown email) error = %v, want ErrUnauthorized", errUnknown)
	}
	if !errors.Is(errWrong, apperror.ErrUnauthorized) {
		t.Fatalf("Login(wrong password) error = %v, want ErrUnauthorized", errWrong)
	}

	// Identical client-visible message in both cases.
	if errUnknown.Error() != errWrong.Error() {
		t.Errorf("messages differ: %q vs %q — enables account enumeration",
			errUnknown.Error(), errWrong.Error())
	}
}

func TestLogin_SessionTokenValidatesToAccountID(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeNotifier{})
	registerTestAccount(t, svc, repo, "a@x.com", true)

	result, err := svc.Login(context.Background(), "a@x.com", "Passw0rd")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	userID, err := svc.tokens.Validate(result.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if userID != result.Account.ID {
		t.Errorf("token subject = %q, want account id %q", userID, result.Account.ID)
	}
}

// =========================================================================
// FORGOT PASSWORD TESTS
// =========================================================================

func TestForgotPassword_KnownEmailStoresTokenAndNotifies(t *testing.T) {
	repo := newFakeUserRepo()
	notifier := &fakeNotifier{}
	svc := newTestAuthService(t, repo, notifier)
	registerTestAccount(t, svc, repo, "a@x.com", true)

	if err := svc.ForgotPassword(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}

	if repo.resetToken("a@x.com") == "" {
		t.Error("reset token not stored")
	}
	if len(notifier.resets) != 1 {
		t.Errorf("reset emails = %d, want 1", len(notifier.resets))
	}
}

func TestForgotPassword_UnknownEmailSucceedsSilently(t *testing.T) {
	repo := newFakeUserRepo()
	notifier := &fakeNotifier{}
	svc := newTestAuthService(t, repo, notifier)

	if err := svc.ForgotPassword(context.Background(), "nobody@x.com"); err != nil {
		t.Fatalf("ForgotPassword(unknown) error = %v, want nil", err)
	}
	if len(notifier.resets) != 0 {
		t.Errorf("reset emails = %d, want 0 for an unknown email", len(notifier.resets))
	}
}

// =========================================================================
// RESET PASSWORD TESTS
// =========================================================================

func TestResetPassword_HappyPath(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeNotifier{})
	registerTestAccount(t, svc, repo, "a@x.com", true)

	if err := svc.ForgotPassword(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}
	token := repo.resetToken("a@x.com")

	if err := svc.ResetPassword(context.Background(), token, "NewPassw0rd"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	// Old password is dead, new one works.
	if _, err := svc.Login(context.Background(), "a@x.com", "Passw0rd"); err == nil {
		t.Error("login with the old password should fail after reset")
	}
	if _, err := svc.Login(context.Background(), "a@x.com", "NewPassw0rd"); err != nil {
		t.Errorf("login with the new password failed: %v", err)
	}

	// Token pair cleared in the same update.
	stored, _ := repo.GetByEmail(context.Background(), "a@x.com")
	if stored.PasswordResetToken != nil || stored.PasswordResetExpires != nil {
		t.Error("reset token pair not cleared")
	}
}

func TestResetPassword_SingleUse(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeNotifier{})
	registerTestAccount(t, svc, repo, "a@x.com", true)

	svc.ForgotPassword(context.Background(), "a@x.com")
	token := repo.resetToken("a@x.com")

	if err := svc.ResetPassword(context.Background(), token, "NewPassw0rd"); err != nil {
		t.Fatalf("first ResetPassword() error = %v", err)
	}

	err := svc.ResetPassword(context.Background(), token, "AnotherPassw0rd1")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second ResetPassword() error = %v, want ErrNotFound", err)
	}
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeNotifier{})
	registerTestAccount(t, svc, repo, "a@x.com", true)

	svc.ForgotPassword(context.Background(), "a@x.com")
	repo.expireReset("a@x.com")
	token := repo.resetToken("a@x.com")

	err := svc.ResetPassword(context.Background(), token, "NewPassw0rd")
	if !errors.Is(err, apperror.ErrTokenExpired) {
		t.Errorf("ResetPassword(expired) error = %v, want ErrTokenExpired", err)
	}

	// Password unchanged.
	if _, err := svc.Login(context.Background(), "a@x.com", "Passw0rd"); err != nil {
		t.Errorf("login with the original password failed: %v", err)
	}
}

func TestResetPassword_UnknownToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeNotifier{})

	err := svc.ResetPassword(context.Background(), "bogus", "NewPassw0rd")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ResetPassword(bogus) error = %v, want ErrNotFound", err)
	}
}
