package tuning

import (
	"context"
	"fmt"

	"github.com/spboyer/tuneval/internal/models"
)

// Resolve returns the most recently created model tuned from baseModel.
// Equal creation times are broken by name so the choice is stable.
func Resolve(ctx context.Context, tuner Tuner, baseModel string) (models.ModelHandle, error) {
	handles, err := tuner.ListTunedModels(ctx, baseModel)
	if err != nil {
		return models.ModelHandle{}, fmt.Errorf("tuning: resolving %s: %w", baseModel, err)
	}
	if len(handles) == 0 {
		return models.ModelHandle{}, fmt.Errorf("%w for base model %s", ErrNoTunedModel, baseModel)
	}

	latest := handles[0]
	for _, h := range handles[1:] {
		if h.CreateTime.After(latest.CreateTime) ||
			(h.CreateTime.Equal(latest.CreateTime) && h.Name > latest.Name) {
			latest = h
		}
	}
	return latest, nil
}
