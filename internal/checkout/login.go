package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/notify"
)

// Authenticator checks guest credentials and returns an access token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type AuthenticatorFunc func(ctx context.Context, email, password string) (string, error)

func (f AuthenticatorFunc) Login(ctx context.Context, email, password string) (string, error) {
	return f(ctx, email, password)
}

type LoginState string

const (
	LoginIdle       LoginState = "idle"
	LoginSubmitting LoginState = "submitting"
	LoginFailed     LoginState = "failed"
	LoginSucceeded  LoginState = "succeeded"
)

// LoginResult tells the caller to re-enter checkout with Token. The current
// checkout session is never patched in place.
type LoginResult struct {
	Token          string `json:"token"`
	ReloadRequired bool   `json:"reload_required"`
}

var ErrLoginInProgress = errors.New("login already in progress")

const (
	msgWrongCredentials = "Wrong email or password."
	msgLoginFailed      = "We could not sign you in. Please try again."
)

// LoginForm is the guest sign-in form shown beside checkout. Its errors live
// here only; it holds no reference to a Session.
type LoginForm struct {
	mu      sync.Mutex
	state   LoginState
	email   string
	errors  domain.FieldErrors
	general string
	sink    notify.Sink
}

type LoginView struct {
	State   LoginState         `json:"state"`
	Email   string             `json:"email"`
	Errors  domain.FieldErrors `json:"errors"`
	Message string             `json:"message,omitempty"`
}

func NewLoginForm(sink notify.Sink) *LoginForm {
	if sink == nil {
		sink = notify.Discard
	}
	return &LoginForm{state: LoginIdle, errors: domain.FieldErrors{}, sink: sink}
}

func (f *LoginForm) Submit(ctx context.Context, auth Authenticator, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)

	f.mu.Lock()
	if f.state == LoginSubmitting {
		f.mu.Unlock()
		return LoginResult{}, ErrLoginInProgress
	}
	f.email = email
	f.general = ""
	errs := domain.FieldErrors{}
	if email == "" {
		errs.Add("email", msgRequired)
	}
	if password == "" {
		errs.Add("password", msgRequired)
	}
	f.errors = errs
	if !errs.Empty() {
		f.state = LoginFailed
		f.mu.Unlock()
		return LoginResult{}, &ValidationError{Fields: errs}
	}
	f.state = LoginSubmitting
	f.mu.Unlock()

	token, err := auth.Login(ctx, email, password)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = LoginFailed
		if errors.Is(err, domain.ErrInvalidCredentials) {
			f.general = msgWrongCredentials
		} else {
			f.general = msgLoginFailed
		}
		f.sink.Notify(notify.Error("login", f.general))
		return LoginResult{}, err
	}
	f.state = LoginSucceeded
	return LoginResult{Token: token, ReloadRequired: true}, nil
}

func (f *LoginForm) View() LoginView {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := LoginView{State: f.state, Email: f.email, Errors: make(domain.FieldErrors, len(f.errors)), Message: f.general}
	v.Errors.Merge(f.errors)
	return v
}

const msgRequired = "This field is required."
