package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/osmcz/mapcampaign/app/server/controller"
	"github.com/osmcz/mapcampaign/app/server/types"
)

// NewServer creates the HTTP server serving the API and the realtime channel.
func NewServer(app *types.App) error {
	ctler := controller.NewController(app)
	router, err := ctler.NewRouter()
	if err != nil {
		return err
	}

	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	app.Server = &http.Server{Addr: app.Config.Addr, Handler: controller.WithCORS(router)}
	app.Logger.Info("Starting server", zap.String("addr", app.Config.Addr))

	return nil
}
