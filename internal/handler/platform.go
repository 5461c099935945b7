package handler

import (
	log "github.com/sirupsen/logrus"

	"github.com/AlexZinkM/edufund/internal/auth"
	"github.com/AlexZinkM/edufund/internal/logging"
	"github.com/AlexZinkM/edufund/internal/store"
)

// PlatformHandler serves accounts, projects and donations.
type PlatformHandler struct {
	store  *store.Store
	jwt    *auth.JWTManager
	wallet *WalletHandler
	log    log.FieldLogger
}

// NewPlatformHandler creates a PlatformHandler. wallet backs POST /projects/{id}/donate.
func NewPlatformHandler(st *store.Store, jwt *auth.JWTManager, wallet *WalletHandler, logger log.FieldLogger) *PlatformHandler {
	return &PlatformHandler{
		store:  st,
		jwt:    jwt,
		wallet: wallet,
		log:    logging.Component(logger, "handler"),
	}
}
