package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"campusfest/internal/domain"
)

const (
	ticketPrefix      = "FEST-"
	ticketSuffixLen   = 8
	maxTicketAttempts = 8

	inviteCodeLength = 6
)

// Alphabets for generated codes. Invite codes skip 0/O and 1/I so they survive being read aloud.
const (
	hexAlphabet    = "0123456789ABCDEF"
	inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

type randomCode struct {
	alphabet []rune
}

// NewCodeGenerator returns a CodeGenerator drawing uniformly from alphabet with crypto/rand.
func NewCodeGenerator(alphabet string) domain.CodeGenerator {
	return &randomCode{alphabet: []rune(alphabet)}
}

func (g *randomCode) Generate(length int) (string, error) {
	b := make([]rune, length)
	max := big.NewInt(int64(len(g.alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = g.alphabet[n.Int64()]
	}
	return string(b), nil
}

type ticketIssuer struct {
	regRepo domain.RegistrationRepository
	codes   domain.CodeGenerator
}

// NewTicketIssuer returns a TicketIssuer producing FEST-XXXXXXXX IDs that are not yet in regRepo.
func NewTicketIssuer(regRepo domain.RegistrationRepository, codes domain.CodeGenerator) domain.TicketIssuer {
	if codes == nil {
		codes = NewCodeGenerator(hexAlphabet)
	}
	return &ticketIssuer{regRepo: regRepo, codes: codes}
}

func (t *ticketIssuer) Issue(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxTicketAttempts; attempt++ {
		suffix, err := t.codes.Generate(ticketSuffixLen)
		if err != nil {
			return "", fmt.Errorf("generate ticket: %w", err)
		}
		id := ticketPrefix + suffix
		exists, err := t.regRepo.TicketExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check ticket: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("issue ticket: no free id after %d attempts", maxTicketAttempts)
}

// withTicket issues a ticket and hands it to write. If write reports that another registration
// took the ID after the existence check, a fresh ID is issued and write runs once more.
func withTicket(ctx context.Context, tickets domain.TicketIssuer, write func(ticket string) error) error {
	ticket, err := tickets.Issue(ctx)
	if err != nil {
		return err
	}
	err = write(ticket)
	if !errors.Is(err, domain.ErrTicketCollision) {
		return err
	}
	if ticket, err = tickets.Issue(ctx); err != nil {
		return err
	}
	return write(ticket)
}

// newInviteCode returns an invite code not used by any team.
func newInviteCode(ctx context.Context, teams domain.TeamRepository, codes domain.CodeGenerator) (string, error) {
	for attempt := 0; attempt < maxTicketAttempts; attempt++ {
		code, err := codes.Generate(inviteCodeLength)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		exists, err := teams.InviteCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check invite code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("invite code: no free code after %d attempts", maxTicketAttempts)
}
