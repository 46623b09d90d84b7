package orchestration

import (
	"testing"

	"github.com/spboyer/tuneval/internal/datasource"
	"github.com/spboyer/tuneval/internal/projectconfig"
	"github.com/spboyer/tuneval/internal/storage"
	"github.com/spboyer/tuneval/internal/tuning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	cfg := projectconfig.New()

	cfg.Backend = BackendMock
	svc, err := NewService(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &tuning.MockService{}, svc)

	cfg.Backend = BackendVertex
	cfg.Project = ""
	_, err = NewService(cfg, nil)
	require.Error(t, err)

	cfg.Project = "my-project"
	temp := 0.2
	cfg.Evaluation.Temperature = &temp
	svc, err = NewService(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &tuning.VertexService{}, svc)

	cfg.Backend = "sagemaker"
	_, err = NewService(cfg, nil)
	require.ErrorContains(t, err, "unknown backend")
}

func TestSourceConfig(t *testing.T) {
	cfg := projectconfig.New()
	cfg.DataSource.Driver = datasource.DriverCSV
	cfg.DataSource.Path = "questions.csv"

	got := SourceConfig(cfg, nil)
	assert.Equal(t, datasource.DriverCSV, got.Driver)
	assert.Equal(t, "questions.csv", got.Path)
	assert.True(t, got.SanitizeHTML)

	off := false
	cfg.DataSource.SanitizeHTML = &off
	assert.False(t, SourceConfig(cfg, nil).SanitizeHTML)
}

func TestStorageConfig(t *testing.T) {
	cfg := projectconfig.New()
	cfg.Bucket = "my-bucket"
	cfg.Storage.Backend = storage.BackendLocal

	got := StorageConfig(cfg)
	assert.Equal(t, storage.BackendLocal, got.Backend)
	assert.Equal(t, "my-bucket", got.Bucket)
}
