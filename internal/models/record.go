package models

// Record is one question/answer pair. InputText is the question title and
// body, OutputText is the accepted answer body. Records carry no identifier;
// position in the dataset is the only identity.
type Record struct {
	InputText  string `json:"input_text"`
	OutputText string `json:"output_text"`
}

// EvaluationSample pairs a model-generated candidate with the reference
// answer for the same input.
type EvaluationSample struct {
	Input     string `json:"input"`
	Candidate string `json:"candidate"`
	Reference string `json:"reference"`
}

// Candidates returns the candidate texts of samples in order.
func Candidates(samples []EvaluationSample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Candidate
	}
	return out
}

// References returns the reference texts of samples in order.
func References(samples []EvaluationSample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Reference
	}
	return out
}
