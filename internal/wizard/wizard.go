package wizard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spboyer/tuneval/internal/projectconfig"
	"github.com/spboyer/tuneval/internal/tuning"
	"golang.org/x/term"
)

// Answers holds the fields collected by the config wizard.
type Answers struct {
	Backend        string
	Project        string
	Region         string
	Bucket         string
	StorageBackend string
	Driver         string
	// Source is the DSN for SQL drivers and the file path for csv.
	Source     string
	TrainSteps string
}

// AnswersFrom seeds the wizard with the values in cfg.
func AnswersFrom(cfg *projectconfig.ProjectConfig) *Answers {
	a := &Answers{
		Backend:        cfg.Backend,
		Project:        cfg.Project,
		Region:         cfg.Region,
		Bucket:         cfg.Bucket,
		StorageBackend: cfg.Storage.Backend,
		Driver:         cfg.DataSource.Driver,
		Source:         cfg.DataSource.DSN,
		TrainSteps:     strconv.Itoa(cfg.TrainSteps),
	}
	if cfg.DataSource.Driver == "csv" {
		a.Source = cfg.DataSource.Path
	}
	return a
}

// Apply copies the answers into cfg.
func (a *Answers) Apply(cfg *projectconfig.ProjectConfig) error {
	steps, err := parseTrainSteps(a.TrainSteps)
	if err != nil {
		return err
	}
	if a.Backend == "vertex" && strings.TrimSpace(a.Project) == "" {
		return errors.New("project is required for the vertex backend")
	}

	cfg.Backend = a.Backend
	cfg.Project = strings.TrimSpace(a.Project)
	cfg.Region = strings.TrimSpace(a.Region)
	cfg.Bucket = strings.TrimSpace(a.Bucket)
	cfg.Storage.Backend = a.StorageBackend
	cfg.DataSource.Driver = a.Driver
	if a.Driver == "csv" {
		cfg.DataSource.Path = strings.TrimSpace(a.Source)
		cfg.DataSource.DSN = ""
	} else {
		cfg.DataSource.DSN = strings.TrimSpace(a.Source)
		cfg.DataSource.Path = ""
	}
	cfg.TrainSteps = steps
	return nil
}

// RunConfigWizard runs an interactive huh form seeded from cfg and applies
// the answers to it.
func RunConfigWizard(in io.Reader, out io.Writer, cfg *projectconfig.ProjectConfig) error {
	a := AnswersFrom(cfg)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Tuning backend").
				Options(
					huh.NewOption("Vertex AI", "vertex"),
					huh.NewOption("Mock (offline)", "mock"),
				).
				Value(&a.Backend),
			huh.NewInput().
				Title("Cloud project").
				Description("Required for Vertex AI").
				Value(&a.Project),
			huh.NewInput().
				Title("Region").
				Description("Where tuned models are served").
				Value(&a.Region).
				Validate(required("region")),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Storage backend").
				Options(
					huh.NewOption("Cloud Storage", "gcs"),
					huh.NewOption("Amazon S3", "s3"),
					huh.NewOption("Azure Blob Storage", "azblob"),
					huh.NewOption("Local directory", "local"),
				).
				Value(&a.StorageBackend),
			huh.NewInput().
				Title("Bucket").
				Description("Bucket, container or local directory for uploads").
				Value(&a.Bucket).
				Validate(required("bucket")),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Data source").
				Options(
					huh.NewOption("PostgreSQL", "postgres"),
					huh.NewOption("SQLite", "sqlite"),
					huh.NewOption("CSV export", "csv"),
				).
				Value(&a.Driver),
			huh.NewInput().
				Title("Connection string or CSV path").
				Value(&a.Source).
				Validate(required("data source")),
			huh.NewInput().
				Title("Train steps").
				Description(fmt.Sprintf("%d-%d recommended", tuning.RecommendedMinTrainSteps, tuning.RecommendedMaxTrainSteps)).
				Value(&a.TrainSteps).
				Validate(func(s string) error {
					_, err := parseTrainSteps(s)
					return err
				}),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}
	return a.Apply(cfg)
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func parseTrainSteps(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("train steps must be a whole number, got %q", s)
	}
	if n < tuning.MinTrainSteps || n > tuning.MaxTrainSteps {
		return 0, fmt.Errorf("train steps must be between %d and %d", tuning.MinTrainSteps, tuning.MaxTrainSteps)
	}
	return n, nil
}
