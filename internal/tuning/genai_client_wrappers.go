package tuning

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

//go:generate go tool mockgen -source=genai_client_wrappers.go -destination=mocks_test.go -package=tuning

// genaiClient is just an interface over the parts of [*genai.Client] we use
type genaiClient interface {
	// Tune maps to [genai.Tunings.Tune]
	Tune(ctx context.Context, baseModel string, dataset *genai.TuningDataset, config *genai.CreateTuningJobConfig) (*genai.TuningJob, error)

	// ListModels drains every page of [genai.Models.List]
	ListModels(ctx context.Context, config *genai.ListModelsConfig) ([]*genai.Model, error)

	// GenerateContent maps to [genai.Models.GenerateContent]
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func newGenaiClient(ctx context.Context, config *genai.ClientConfig) (genaiClient, error) {
	client, err := genai.NewClient(ctx, config)

	if err != nil {
		return nil, err
	}

	return &genaiClientWrapper{inner: client}, nil
}

type genaiClientWrapper struct {
	inner *genai.Client
}

func (w *genaiClientWrapper) Tune(ctx context.Context, baseModel string, dataset *genai.TuningDataset, config *genai.CreateTuningJobConfig) (*genai.TuningJob, error) {
	return w.inner.Tunings.Tune(ctx, baseModel, dataset, config)
}

// ListModels exists because [genai.Page] can't be built outside the SDK, so
// the paging has to happen on this side of the interface.
func (w *genaiClientWrapper) ListModels(ctx context.Context, config *genai.ListModelsConfig) ([]*genai.Model, error) {
	page, err := w.inner.Models.List(ctx, config)

	if err != nil {
		return nil, err
	}

	var all []*genai.Model
	for {
		all = append(all, page.Items...)

		page, err = page.Next(ctx)
		if errors.Is(err, genai.ErrPageDone) {
			return all, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (w *genaiClientWrapper) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return w.inner.Models.GenerateContent(ctx, model, contents, config)
}
