// Package projectconfig provides the ProjectConfig struct and loader for
// .tuneval.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spboyer/tuneval/internal/models"
	"github.com/spboyer/tuneval/internal/validation"
	"gopkg.in/yaml.v3"
)

// FileName is the config file Load looks for.
const FileName = ".tuneval.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultRegion       = "us-central1"
	DefaultTuningRegion = "europe-west4"
	DefaultBackend      = "vertex"
	DefaultBaseModel    = "gemini-2.0-flash-001"
	DefaultDisplayName  = "tuneval-qa"

	DefaultTrainSteps     = 100
	DefaultSplitFraction  = 0.2
	DefaultEvalRowLimit   = 60
	DefaultInputCharLimit = 10000

	DefaultDataDir    = "data/"
	DefaultResultsDir = "results/"

	DefaultStorageBackend = "gcs"
	DefaultStoragePrefix  = "tuneval"

	DefaultDriver         = "postgres"
	DefaultQuestionsTable = "posts_questions"
	DefaultAnswersTable   = "posts_answers"
	DefaultTag            = "python"
	DefaultMinDate        = "2020-01-01"
	DefaultRowLimit       = 1000

	DefaultBatchSize = 8

	DefaultBLEUMaxOrder      = 1
	DefaultOnPredictionError = "fail"
	DefaultMaxAttempts       = 3
	DefaultRetryBaseDelay    = "1s"
	DefaultConfidenceLevel   = 0.95

	DefaultCacheDir = ".tuneval-cache"
)

// Prediction error policies.
const (
	OnErrorFail = "fail"
	OnErrorSkip = "skip"
)

// PathsConfig holds local directories for datasets and results.
type PathsConfig struct {
	Data    string `yaml:"data,omitempty"`
	Results string `yaml:"results,omitempty"`
}

// StorageConfig selects the durable storage backend.
type StorageConfig struct {
	Backend string         `yaml:"backend,omitempty"`
	Prefix  string         `yaml:"prefix,omitempty"`
	Options map[string]any `yaml:"options,omitempty"`
}

// DataSourceConfig describes where question/answer records come from.
type DataSourceConfig struct {
	Driver         string `yaml:"driver,omitempty"`
	DSN            string `yaml:"dsn,omitempty"`
	Path           string `yaml:"path,omitempty"`
	QuestionsTable string `yaml:"questions_table,omitempty"`
	AnswersTable   string `yaml:"answers_table,omitempty"`
	Tag            string `yaml:"tag,omitempty"`
	MinDate        string `yaml:"min_date,omitempty"`
	RowLimit       int    `yaml:"row_limit,omitempty"`
	SanitizeHTML   *bool  `yaml:"sanitize_html,omitempty"`
}

// TuningConfig holds tuning-service settings beyond the request itself.
type TuningConfig struct {
	BatchSize int `yaml:"batch_size,omitempty"`
}

// EvaluationConfig holds generation and scoring settings.
type EvaluationConfig struct {
	BLEUMaxOrder      int               `yaml:"bleu_max_order,omitempty"`
	OnPredictionError string            `yaml:"on_prediction_error,omitempty"`
	MaxAttempts       int               `yaml:"max_attempts,omitempty"`
	RetryBaseDelay    string            `yaml:"retry_base_delay,omitempty"`
	Temperature       *float64          `yaml:"temperature,omitempty"`
	MaxOutputTokens   int               `yaml:"max_output_tokens,omitempty"`
	ConfidenceLevel   float64           `yaml:"confidence_level,omitempty"`
	Thresholds        models.Thresholds `yaml:"thresholds,omitempty"`
}

// CacheConfig holds prediction cache settings.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .tuneval.yaml.
type ProjectConfig struct {
	Project          string  `yaml:"project,omitempty"`
	Region           string  `yaml:"region,omitempty"`
	TuningRegion     string  `yaml:"tuning_region,omitempty"`
	Bucket           string  `yaml:"bucket,omitempty"`
	Backend          string  `yaml:"backend,omitempty"`
	BaseModel        string  `yaml:"base_model,omitempty"`
	ModelDisplayName string  `yaml:"model_display_name,omitempty"`
	TrainSteps       int     `yaml:"train_steps,omitempty"`
	SplitFraction    float64 `yaml:"split_fraction,omitempty"`
	SplitSeed        uint64  `yaml:"split_seed,omitempty"`
	EvalRowLimit     int     `yaml:"eval_row_limit,omitempty"`
	InputCharLimit   int     `yaml:"input_char_limit,omitempty"`

	Paths      PathsConfig      `yaml:"paths,omitempty"`
	Storage    StorageConfig    `yaml:"storage,omitempty"`
	DataSource DataSourceConfig `yaml:"datasource,omitempty"`
	Tuning     TuningConfig     `yaml:"tuning,omitempty"`
	Evaluation EvaluationConfig `yaml:"evaluation,omitempty"`
	Cache      CacheConfig      `yaml:"cache,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Region:           DefaultRegion,
		TuningRegion:     DefaultTuningRegion,
		Backend:          DefaultBackend,
		BaseModel:        DefaultBaseModel,
		ModelDisplayName: DefaultDisplayName,
		TrainSteps:       DefaultTrainSteps,
		SplitFraction:    DefaultSplitFraction,
		EvalRowLimit:     DefaultEvalRowLimit,
		InputCharLimit:   DefaultInputCharLimit,
		Paths: PathsConfig{
			Data:    DefaultDataDir,
			Results: DefaultResultsDir,
		},
		Storage: StorageConfig{
			Backend: DefaultStorageBackend,
			Prefix:  DefaultStoragePrefix,
		},
		DataSource: DataSourceConfig{
			Driver:         DefaultDriver,
			QuestionsTable: DefaultQuestionsTable,
			AnswersTable:   DefaultAnswersTable,
			Tag:            DefaultTag,
			MinDate:        DefaultMinDate,
			RowLimit:       DefaultRowLimit,
			SanitizeHTML:   boolPtr(true),
		},
		Tuning: TuningConfig{
			BatchSize: DefaultBatchSize,
		},
		Evaluation: EvaluationConfig{
			BLEUMaxOrder:      DefaultBLEUMaxOrder,
			OnPredictionError: DefaultOnPredictionError,
			MaxAttempts:       DefaultMaxAttempts,
			RetryBaseDelay:    DefaultRetryBaseDelay,
			ConfidenceLevel:   DefaultConfidenceLevel,
		},
		Cache: CacheConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultCacheDir,
		},
	}
}

// Load finds .tuneval.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}
	return parse(data, FileName)
}

// LoadFile loads an explicit config file. Unlike Load, a missing file is an
// error.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return parse(data, path)
}

func parse(data []byte, name string) (*ProjectConfig, error) {
	if errs := validation.ValidateConfigBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("invalid %s:\n  %s", name, strings.Join(errs, "\n  "))
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	cfg := New()
	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .tuneval.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) ([]byte, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	setString(&dst.Project, src.Project)
	setString(&dst.Region, src.Region)
	setString(&dst.TuningRegion, src.TuningRegion)
	setString(&dst.Bucket, src.Bucket)
	setString(&dst.Backend, src.Backend)
	setString(&dst.BaseModel, src.BaseModel)
	setString(&dst.ModelDisplayName, src.ModelDisplayName)
	setInt(&dst.TrainSteps, src.TrainSteps)
	if src.SplitFraction != 0 {
		dst.SplitFraction = src.SplitFraction
	}
	if src.SplitSeed != 0 {
		dst.SplitSeed = src.SplitSeed
	}
	setInt(&dst.EvalRowLimit, src.EvalRowLimit)
	setInt(&dst.InputCharLimit, src.InputCharLimit)

	// Paths
	setString(&dst.Paths.Data, src.Paths.Data)
	setString(&dst.Paths.Results, src.Paths.Results)

	// Storage
	setString(&dst.Storage.Backend, src.Storage.Backend)
	setString(&dst.Storage.Prefix, src.Storage.Prefix)
	if src.Storage.Options != nil {
		dst.Storage.Options = src.Storage.Options
	}

	// Data source
	ds := &dst.DataSource
	setString(&ds.Driver, src.DataSource.Driver)
	setString(&ds.DSN, src.DataSource.DSN)
	setString(&ds.Path, src.DataSource.Path)
	setString(&ds.QuestionsTable, src.DataSource.QuestionsTable)
	setString(&ds.AnswersTable, src.DataSource.AnswersTable)
	setString(&ds.Tag, src.DataSource.Tag)
	setString(&ds.MinDate, src.DataSource.MinDate)
	setInt(&ds.RowLimit, src.DataSource.RowLimit)
	if src.DataSource.SanitizeHTML != nil {
		ds.SanitizeHTML = src.DataSource.SanitizeHTML
	}

	// Tuning
	setInt(&dst.Tuning.BatchSize, src.Tuning.BatchSize)

	// Evaluation
	ev := &dst.Evaluation
	setInt(&ev.BLEUMaxOrder, src.Evaluation.BLEUMaxOrder)
	setString(&ev.OnPredictionError, src.Evaluation.OnPredictionError)
	setInt(&ev.MaxAttempts, src.Evaluation.MaxAttempts)
	setString(&ev.RetryBaseDelay, src.Evaluation.RetryBaseDelay)
	if src.Evaluation.Temperature != nil {
		ev.Temperature = src.Evaluation.Temperature
	}
	setInt(&ev.MaxOutputTokens, src.Evaluation.MaxOutputTokens)
	if src.Evaluation.ConfidenceLevel != 0 {
		ev.ConfidenceLevel = src.Evaluation.ConfidenceLevel
	}
	if !src.Evaluation.Thresholds.IsZero() {
		ev.Thresholds = src.Evaluation.Thresholds
	}

	// Cache
	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	setString(&dst.Cache.Dir, src.Cache.Dir)
}

// Validate checks cross-field constraints the schema cannot express and
// values that may have been overridden by flags after loading.
func (c *ProjectConfig) Validate() error {
	var errs []error
	if c.SplitFraction <= 0 || c.SplitFraction >= 1 {
		errs = append(errs, fmt.Errorf("split_fraction must be in (0, 1), got %g", c.SplitFraction))
	}
	if c.EvalRowLimit < 1 {
		errs = append(errs, fmt.Errorf("eval_row_limit must be positive, got %d", c.EvalRowLimit))
	}
	if c.InputCharLimit < 1 {
		errs = append(errs, fmt.Errorf("input_char_limit must be positive, got %d", c.InputCharLimit))
	}
	if c.Backend == "vertex" && c.Project == "" {
		errs = append(errs, errors.New("project is required for the vertex backend"))
	}
	switch c.Evaluation.OnPredictionError {
	case OnErrorFail, OnErrorSkip:
	default:
		errs = append(errs, fmt.Errorf("on_prediction_error must be %q or %q, got %q", OnErrorFail, OnErrorSkip, c.Evaluation.OnPredictionError))
	}
	if _, err := c.RetryDelay(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.MinCreationDate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RetryDelay parses evaluation.retry_base_delay.
func (c *ProjectConfig) RetryDelay() (time.Duration, error) {
	d, err := time.ParseDuration(c.Evaluation.RetryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("retry_base_delay: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("retry_base_delay must be positive, got %s", d)
	}
	return d, nil
}

// MinCreationDate parses datasource.min_date. An empty value means no
// lower bound.
func (c *ProjectConfig) MinCreationDate() (time.Time, error) {
	if c.DataSource.MinDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, c.DataSource.MinDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("min_date: %w", err)
	}
	return t, nil
}

// CacheEnabled reports whether the prediction cache is on.
func (c *ProjectConfig) CacheEnabled() bool {
	return c.Cache.Enabled != nil && *c.Cache.Enabled
}

// Marshal renders the config as YAML, as written by `tuneval init`.
func (c *ProjectConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func boolPtr(b bool) *bool {
	return &b
}
