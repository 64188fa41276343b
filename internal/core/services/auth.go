package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// ensureAuth refreshes the connector credentials when the access token is
// rejected. The rotated parameters are persisted before the connector is
// used again, and the connector is rebuilt from them.
//
// ok is false when the refresh failed; nothing is persisted in that case.
// err is only set when the store could not be written.
func ensureAuth(
	ctx context.Context,
	store driven.ConfigurationStore,
	factory driven.ConnectorFactory,
	cfg *domain.Configuration,
	conn driven.Connector,
) (_ driven.Connector, _ *domain.Configuration, ok bool, err error) {
	if conn.IsAccessTokenValid(ctx) {
		return conn, cfg, true, nil
	}

	logger.Info("Access token for %s rejected, refreshing", cfg.ID)
	params, ok := conn.RefreshAuthentication(ctx)
	if !ok {
		return conn, cfg, false, nil
	}

	updated, err := store.Update(ctx, cfg.ID, domain.ConfigurationPatch{
		Connector: &domain.ConnectorPatch{Parameters: params},
	})
	if err != nil {
		return nil, nil, false, fmt.Errorf("save refreshed credentials: %w", err)
	}

	refreshed, err := factory.Create(updated.Connector.Name, updated.Connector.Parameters)
	if err != nil {
		logger.Warn("rebuild connector for %s: %v", cfg.ID, err)
		return conn, cfg, false, nil
	}
	return refreshed, updated, true, nil
}
