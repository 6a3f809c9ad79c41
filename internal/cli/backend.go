package cli

import (
	"github.com/mesh-intelligence/entitydriver/pkg/entitydriver"
	"github.com/mesh-intelligence/entitydriver/pkg/sqlite"
	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

// openBackend attaches a backend for cfg. Config and schema problems are
// user errors; anything else is a system error.
func (a *app) openBackend(cfg types.Config) (types.Backend, error) {
	backend := sqlite.NewBackend(a.logger)
	if err := backend.Attach(cfg); err != nil {
		return nil, classify(err)
	}
	return backend, nil
}

// openDriver resolves the backend config, attaches it and wraps it in a
// Driver. The returned func detaches the backend.
func (a *app) openDriver() (*entitydriver.Driver, func(), error) {
	cfg, err := a.backendConfig()
	if err != nil {
		return nil, nil, sysError(err)
	}
	backend, err := a.openBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := backend.Detach(); err != nil {
			a.logger.Warn("detach failed", "error", err)
		}
	}
	return entitydriver.New(backend, entitydriver.WithLogger(a.logger)), closeFn, nil
}
