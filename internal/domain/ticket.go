package domain

import "context"

// TicketIssuer generates globally unique, human-typeable ticket IDs.
type TicketIssuer interface {
	Issue(ctx context.Context) (string, error)
}

// CodeGenerator produces short random codes from an alphabet.
type CodeGenerator interface {
	Generate(length int) (string, error)
}
