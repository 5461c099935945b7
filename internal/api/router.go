package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/AlexZinkM/edufund/docs"
	"github.com/AlexZinkM/edufund/internal/auth"
	"github.com/AlexZinkM/edufund/internal/handler"
)

// SetupRouter sets up router with handlers
func SetupRouter(wallet *handler.WalletHandler, platform *handler.PlatformHandler, jwt *auth.JWTManager) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("GET /swagger/", httpSwagger.WrapHandler)

	protected := func(h http.HandlerFunc) http.Handler { return jwt.Middleware(h) }

	// Wallet endpoints. Anything that changes the shared session or moves
	// funds needs a signed-in user.
	mux.HandleFunc("GET /wallet/providers", wallet.Providers)
	mux.Handle("POST /wallet/connect", protected(wallet.Connect))
	mux.Handle("POST /wallet/disconnect", protected(wallet.Disconnect))
	mux.HandleFunc("GET /wallet/status", wallet.Status)
	mux.HandleFunc("GET /wallet/address", wallet.Address)
	mux.HandleFunc("GET /wallet/balance", wallet.Balance)
	mux.HandleFunc("GET /wallet/network", wallet.Network)
	mux.Handle("POST /wallet/send", protected(wallet.Send))

	// Platform endpoints
	mux.HandleFunc("POST /auth/register", platform.Register)
	mux.HandleFunc("POST /auth/login", platform.Login)

	mux.HandleFunc("GET /projects", platform.ListProjects)
	mux.Handle("POST /projects", protected(platform.CreateProject))
	mux.HandleFunc("GET /projects/{id}", platform.GetProject)
	mux.Handle("PUT /projects/{id}", protected(platform.UpdateProject))
	mux.Handle("DELETE /projects/{id}", protected(platform.DeleteProject))
	mux.HandleFunc("GET /projects/{id}/qr", platform.ProjectQR)
	mux.Handle("POST /projects/{id}/donate", protected(platform.Donate))

	mux.HandleFunc("GET /donations", platform.ListDonations)
	mux.Handle("POST /donations", protected(platform.CreateDonation))

	return mux
}
