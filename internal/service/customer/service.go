package customer

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"marketplace-checkout/internal/domain"
	custrepo "marketplace-checkout/internal/repository/customer"
	tokenrepo "marketplace-checkout/internal/repository/token"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = domain.ErrInvalidCredentials
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidSignup wraps email and password rule violations.
	ErrInvalidSignup = errors.New("invalid signup")
)

// Service handles customer signup/login flows.
type Service struct {
	repo        custrepo.Repository
	tokens      *tokenManager
	accessTTL   time.Duration
	refreshTTL  time.Duration
	passwordMin int
}

// New creates a Service with sane defaults.
func New(repo custrepo.Repository, tokens tokenrepo.Repository) *Service {
	return &Service{
		repo:        repo,
		tokens:      newTokenManager(tokens),
		accessTTL:   48 * time.Hour,
		refreshTTL:  30 * 24 * time.Hour,
		passwordMin: 8,
	}
}

// AddressInput is a saved address supplied at signup.
type AddressInput struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"address_line_1"`
	Line2      string `json:"address_line_2"`
	City       string `json:"city"`
	Region     string `json:"state"`
	PostalCode string `json:"postal_code"`
	CountryID  string `json:"country_id"`
	CityID     string `json:"city_id"`
}

// SignupInput captures fields expected by the signup endpoint.
type SignupInput struct {
	Email                  string         `json:"email"`
	Password               string         `json:"password"`
	FirstName              string         `json:"first_name"`
	LastName               string         `json:"last_name"`
	Phone                  string         `json:"phone"`
	Addresses              []AddressInput `json:"addresses"`
	DefaultShippingAddress *int           `json:"default_shipping_address"`
	DefaultBillingAddress  *int           `json:"default_billing_address"`
}

// Signup registers a new customer. Used for the create-account intent at checkout.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.Customer, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email required", ErrInvalidSignup)
	}
	password := strings.TrimSpace(in.Password)
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignup, err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	addresses := make([]domain.CustomerAddress, 0, len(in.Addresses))
	for _, a := range in.Addresses {
		addresses = append(addresses, domain.CustomerAddress{
			ID:         randomAddressID(),
			FirstName:  a.FirstName,
			LastName:   a.LastName,
			Phone:      a.Phone,
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			Region:     a.Region,
			PostalCode: a.PostalCode,
			CountryID:  a.CountryID,
			CityID:     a.CityID,
		})
	}

	shippingID := addressIDFromIndex(addresses, in.DefaultShippingAddress)
	if shippingID == "" && len(addresses) > 0 {
		shippingID = addresses[0].ID
	}
	billingID := addressIDFromIndex(addresses, in.DefaultBillingAddress)
	if billingID == "" && len(addresses) > 0 {
		billingID = addresses[0].ID
	}

	return s.repo.Create(ctx, domain.Customer{
		Email:                    email,
		PasswordHash:             string(hashed),
		FirstName:                in.FirstName,
		LastName:                 in.LastName,
		Phone:                    in.Phone,
		Addresses:                addresses,
		DefaultShippingAddressID: shippingID,
		DefaultBillingAddressID:  billingID,
	})
}

// Login validates credentials and returns issued tokens plus the customer.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Customer, string, string, error) {
	password = strings.TrimSpace(password)
	c, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", "", ErrInvalidCredentials
		}
		return nil, "", "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", ErrInvalidCredentials
	}
	access, err := s.tokens.Issue(ctx, c.ID, "access", s.accessTTL)
	if err != nil {
		return nil, "", "", err
	}
	refresh, err := s.tokens.Issue(ctx, c.ID, "refresh", s.refreshTTL)
	if err != nil {
		return nil, "", "", err
	}
	return c, access, refresh, nil
}

// Authenticate is Login reduced to the access token, for the guest login form.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	_, access, _, err := s.Login(ctx, email, password)
	return access, err
}

// LookupByToken returns the customer bound to a valid access token.
func (s *Service) LookupByToken(ctx context.Context, token string) (*domain.Customer, error) {
	meta, ok := s.tokens.Validate(ctx, token)
	if !ok {
		return nil, ErrInvalidToken
	}
	c, err := s.repo.GetByID(ctx, meta.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return c, nil
}

// Logout revokes an access token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.tokens.Revoke(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// PurgeExpiredTokens deletes tokens that expired before now.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.Purge(ctx)
}

// AccessTTLSeconds exposes the access token lifetime in seconds.
func (s *Service) AccessTTLSeconds() int {
	return int(s.accessTTL.Seconds())
}

func addressIDFromIndex(addresses []domain.CustomerAddress, idx *int) string {
	if idx == nil {
		return ""
	}
	if *idx < 0 || *idx >= len(addresses) {
		return ""
	}
	return addresses[*idx].ID
}

func randomAddressID() string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))
	}
	return base64.RawURLEncoding.EncodeToString(buf[:])
}

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return fmt.Errorf("password must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
