package orchestration

import (
	"fmt"
	"log/slog"

	"github.com/spboyer/tuneval/internal/datasource"
	"github.com/spboyer/tuneval/internal/projectconfig"
	"github.com/spboyer/tuneval/internal/storage"
	"github.com/spboyer/tuneval/internal/tuning"
)

// Tuning backends accepted in the backend setting.
const (
	BackendVertex = "vertex"
	BackendMock   = "mock"
)

// NewService returns the tuning and prediction backend named by
// cfg.Backend.
func NewService(cfg *projectconfig.ProjectConfig, logger *slog.Logger) (tuning.Service, error) {
	switch cfg.Backend {
	case BackendVertex:
		opts := tuning.VertexOptions{
			Project:         cfg.Project,
			TuningRegion:    cfg.TuningRegion,
			ServingRegion:   cfg.Region,
			BatchSize:       cfg.Tuning.BatchSize,
			MaxOutputTokens: int32(cfg.Evaluation.MaxOutputTokens),
			Logger:          logger,
		}
		if t := cfg.Evaluation.Temperature; t != nil {
			v := float32(*t)
			opts.Temperature = &v
		}
		return tuning.NewVertexService(opts)
	case BackendMock:
		return tuning.NewMockService(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want %q or %q)", cfg.Backend, BackendVertex, BackendMock)
	}
}

// SourceConfig maps the datasource section of cfg.
func SourceConfig(cfg *projectconfig.ProjectConfig, logger *slog.Logger) datasource.Config {
	ds := cfg.DataSource
	return datasource.Config{
		Driver:         ds.Driver,
		DSN:            ds.DSN,
		Path:           ds.Path,
		QuestionsTable: ds.QuestionsTable,
		AnswersTable:   ds.AnswersTable,
		SanitizeHTML:   ds.SanitizeHTML == nil || *ds.SanitizeHTML,
		Logger:         logger,
	}
}

// StorageConfig maps the storage section of cfg. The bucket lives at the
// top level of the config.
func StorageConfig(cfg *projectconfig.ProjectConfig) storage.Config {
	return storage.Config{
		Backend: cfg.Storage.Backend,
		Bucket:  cfg.Bucket,
		Options: cfg.Storage.Options,
	}
}
