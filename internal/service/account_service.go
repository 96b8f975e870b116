package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"seller-center/internal/model"
)

const (
	emailVerificationPath = "/accounts/email-verification"
	verifyEmailPath       = "/accounts/email-verification/verify"
)

type AccountService struct {
	api apiClient
}

func NewAccountService(api apiClient) *AccountService {
	return &AccountService{api: api}
}

// SendVerificationEmail asks the backend to mail a verification link. The
// backend answers 202 with no body.
func (s *AccountService) SendVerificationEmail(ctx context.Context, callbackURL string, returnURL string) error {
	parsed, err := url.Parse(strings.TrimSpace(callbackURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%w: callbackUrl must be an absolute URL", model.ErrInvalidInput)
	}

	req := model.SendEmailVerificationRequest{CallbackURL: parsed.String()}
	if returnURL != "" {
		req.ReturnURL = &returnURL
	}
	return s.api.Post(ctx, emailVerificationPath, req, nil)
}

func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is required", model.ErrInvalidInput)
	}
	return s.api.Post(ctx, verifyEmailPath, model.ConfirmEmailVerificationRequest{Token: token}, nil)
}
