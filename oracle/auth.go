package oracle

import (
	"fmt"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/gagliardetto/solana-go"
)

// Operation names passed to an Authorizer.
const (
	OpInitializeConfig = "initialize_config"
	OpCloseAccount     = "close_account"
	OpAllocateAccount  = "allocate_account"
)

// Authorizer decides whether signer may perform op on a registry record.
// A rejection must wrap engine.ErrUnauthorizedAccess.
type Authorizer interface {
	Authorize(op string, signer, registry solana.PublicKey) error
}

// AdminAuthorizer allows close_account only for a single admin key and
// allows every other operation for anyone.
type AdminAuthorizer struct {
	Admin solana.PublicKey
}

func (a AdminAuthorizer) Authorize(op string, signer, registry solana.PublicKey) error {
	if op != OpCloseAccount {
		return nil
	}
	if a.Admin.IsZero() || !signer.Equals(a.Admin) {
		return fmt.Errorf("%w: %s may not %s %s", engine.ErrUnauthorizedAccess, signer, op, registry)
	}
	return nil
}
