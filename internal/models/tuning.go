package models

import "time"

// TuningRequest describes a supervised tuning job against a base model.
type TuningRequest struct {
	TrainingDataURI  string `json:"training_data_uri"`
	BaseModel        string `json:"base_model"`
	ModelDisplayName string `json:"model_display_name"`
	TrainSteps       int    `json:"train_steps"`
	TuningRegion     string `json:"tuning_region"`
	ServingRegion    string `json:"serving_region"`

	// ExampleCount is the number of records in the training file. Backends
	// that count epochs instead of steps use it to convert.
	ExampleCount int `json:"example_count,omitempty"`
}

// JobState is the lifecycle state reported by the tuning service.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateCancelled JobState = "cancelled"
	JobStateUnknown   JobState = "unknown"
)

// TuningJob is the accepted/queued response to a tuning submission.
type TuningJob struct {
	Name        string    `json:"name"`
	State       JobState  `json:"state"`
	BaseModel   string    `json:"base_model"`
	DisplayName string    `json:"display_name"`
	CreateTime  time.Time `json:"create_time"`
}

// ModelHandle identifies a tuned model that can serve predictions.
type ModelHandle struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name,omitempty"`
	BaseModel   string    `json:"base_model,omitempty"`
	Endpoint    string    `json:"endpoint,omitempty"`
	CreateTime  time.Time `json:"create_time"`
}

// Target returns the identifier to send prediction requests to. Tuned
// models deployed behind an endpoint are addressed through the endpoint.
func (h ModelHandle) Target() string {
	if h.Endpoint != "" {
		return h.Endpoint
	}
	return h.Name
}
