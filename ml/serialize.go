package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// modelFile is the on-disk envelope around a serialized classifier. The
// model_type field guards against loading a file under the wrong name.
type modelFile struct {
	ModelType string          `json:"model_type"`
	TrainedAt time.Time       `json:"trained_at"`
	Payload   json.RawMessage `json:"payload"`
}

func saveModelFile(path, modelType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	envelope, err := json.Marshal(modelFile{
		ModelType: modelType,
		TrainedAt: time.Now().UTC(),
		Payload:   raw,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, envelope, 0o600)
}

func loadModelFile(path, modelType string, payload interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var envelope modelFile
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if envelope.ModelType != modelType {
		return fmt.Errorf("%s holds a %q model, expected %q", path, envelope.ModelType, modelType)
	}
	return json.Unmarshal(envelope.Payload, payload)
}
