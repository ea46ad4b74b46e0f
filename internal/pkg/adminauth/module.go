package adminauth

import (
	"go.uber.org/fx"

	"github.com/dmarkhas/loyaltycore/internal/config"
)

// Module provides the admin key verifier via fx.
var Module = fx.Provide(newKeyVerifier)

type verifierParams struct {
	fx.In

	Config *config.Config
}

func newKeyVerifier(p verifierParams) KeyVerifier {
	return NewBcryptVerifier(p.Config.AdminKeyHash)
}
