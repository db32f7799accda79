package server

import (
	"fmt"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/gagliardetto/solana-go"
)

// SigningMessage is the message a signer signs to authorize op on registry.
func SigningMessage(op string, registry solana.PublicKey) []byte {
	return []byte(op + ":" + registry.String())
}

func verify(signer solana.PublicKey, sig solana.Signature, op string, registry solana.PublicKey) error {
	if signer.IsZero() {
		return fmt.Errorf("%w: %s: missing signer", engine.ErrUnauthorizedAccess, op)
	}
	if !sig.Verify(signer, SigningMessage(op, registry)) {
		return fmt.Errorf("%w: %s: bad signature from %s", engine.ErrUnauthorizedAccess, op, signer)
	}
	return nil
}
