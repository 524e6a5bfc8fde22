package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/mailer"
	"github.com/rs/zerolog/log"
)

const codeDigits = 6

// CodeStore keeps verification codes until they expire
type CodeStore interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	Consume(ctx context.Context, email, code string) (bool, error)
}

// AlertService handles the email alert opt-in handshake: a 6-digit code
// is mailed to the identity and must be echoed back before it expires.
type AlertService struct {
	codes   CodeStore
	sender  mailer.Sender
	ttl     time.Duration
	newCode func() (string, error)
}

// NewAlertService creates a new alert service
func NewAlertService(codes CodeStore, sender mailer.Sender, ttl time.Duration) *AlertService {
	return &AlertService{
		codes:   codes,
		sender:  sender,
		ttl:     ttl,
		newCode: generateCode,
	}
}

// RequestCode generates, stores and mails a new code. It reports whether the mail was sent.
func (s *AlertService) RequestCode(ctx context.Context, identity *domain.Identity) (bool, error) {
	if identity == nil {
		return false, nil
	}

	code, err := s.newCode()
	if err != nil {
		return false, fmt.Errorf("failed to generate code: %w", err)
	}

	if err := s.codes.Save(ctx, identity.Email, code, s.ttl); err != nil {
		return false, err
	}

	sent := s.sender.SendCode(ctx, identity.Email, identity.DisplayName, code)
	log.Info().Str("uid", identity.UID).Bool("sent", sent).Msg("Alert code requested")
	return sent, nil
}

// VerifyCode consumes a matching code; ErrInvalidCode when absent, wrong or expired
func (s *AlertService) VerifyCode(ctx context.Context, identity *domain.Identity, code string) error {
	if identity == nil {
		return domain.ErrInvalidCode
	}

	ok, err := s.codes.Consume(ctx, identity.Email, code)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidCode
	}

	log.Info().Str("uid", identity.UID).Msg("Email alerts verified")
	return nil
}

func generateCode() (string, error) {
	// 100000..999999
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()+100000), nil
}
