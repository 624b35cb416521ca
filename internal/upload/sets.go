package upload

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/ascgate/internal/api"
	"github.com/dmitrijs2005/ascgate/internal/auth"
	"github.com/dmitrijs2005/ascgate/internal/common"
)

const localizationResource = "appStoreVersionLocalizations"

// FindOrCreateSet resolves the parent set of kind for a version
// localization and display type, creating it when the localization has
// none. It returns the set id.
func (p *Pipeline) FindOrCreateSet(ctx context.Context, creds auth.Credentials, kind Kind, localizationID, displayType string) (string, bool, error) {
	if kind.SetTypeAttribute == "" {
		return "", false, fmt.Errorf("%w: %s assets are not grouped in sets", common.ErrConfiguration, kind.Name)
	}
	if localizationID == "" || displayType == "" {
		return "", false, fmt.Errorf("%w: localization id and display type are required", common.ErrConfiguration)
	}

	lookup := api.Get(
		"/"+localizationResource+"/"+localizationID+"/"+kind.ParentResource,
		api.Query{}.Filter(kind.SetTypeAttribute, displayType),
	)
	create := func() api.Request {
		return api.Post("/"+kind.ParentResource, map[string]any{
			"data": map[string]any{
				"type":       kind.ParentResource,
				"attributes": map[string]any{kind.SetTypeAttribute: displayType},
				"relationships": map[string]any{
					"appStoreVersionLocalization": map[string]any{
						"data": map[string]any{"type": localizationResource, "id": localizationID},
					},
				},
			},
		})
	}

	set, created, err := p.api.FindOrCreate(ctx, creds, lookup, create)
	if err != nil {
		return "", false, fmt.Errorf("resolve %s %s: %w", kind.ParentResource, displayType, err)
	}
	if created {
		p.logger.Info(ctx, "created asset set", "set_id", set.ID, "type", displayType)
	}
	return set.ID, created, nil
}

// FindOrCreateScreenshotSet is FindOrCreateSet for screenshots.
func (p *Pipeline) FindOrCreateScreenshotSet(ctx context.Context, creds auth.Credentials, localizationID, displayType string) (string, bool, error) {
	return p.FindOrCreateSet(ctx, creds, Screenshot, localizationID, displayType)
}
