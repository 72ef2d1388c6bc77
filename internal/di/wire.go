//go:build wireinject
// +build wireinject

package di

import (
	"PortfolioDash/internal/domain/repository"
	"PortfolioDash/pkg/config"
	"PortfolioDash/pkg/metrics"
	"PortfolioDash/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),

		// Infrastructure
		ProvideCache,
		ProvideSessionStore,
		ProvideBackendClient,
		ProvideAuthenticator,
		ProvideSessionTokens,
		ProvideLimiter,
		ProvideActivityRecorder,

		// Use cases
		ProvideDashboard,

		// HTTP
		ProvideWebHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
