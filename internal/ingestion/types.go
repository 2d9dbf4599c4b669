// Package ingestion defines the HTTP response types, catalog records and
// Kafka event schema of the dataset ingestion service.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/pipeline"
)

// UploadResponse is returned to the uploader after a dataset is persisted.
type UploadResponse struct {
	DatasetID string           `json:"dataset_id"`
	Format    string           `json:"format"`
	Shapes    map[string][]int `json:"shapes"`
	Classes   []string         `json:"classes"`
	Skipped   int              `json:"skipped_images,omitempty"`
}

// DatasetRecord is one row of the dataset catalog.
type DatasetRecord struct {
	ID           string           `json:"dataset_id"`
	Format       string           `json:"format"`
	Shapes       map[string][]int `json:"shapes"`
	Classes      []string         `json:"classes"`
	NumClasses   int              `json:"num_classes"`
	TrainSamples int              `json:"train_samples"`
	TestSamples  int              `json:"test_samples"`
	Path         string           `json:"path"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// DatasetReadyEvent is the Kafka message published once a dataset is on
// disk and ready for training.
type DatasetReadyEvent struct {
	DatasetID    string           `json:"dataset_id"`
	Format       string           `json:"format"`
	Shapes       map[string][]int `json:"shapes"`
	Classes      []string         `json:"classes"`
	TrainSamples int              `json:"train_samples"`
	TestSamples  int              `json:"test_samples"`
	Path         string           `json:"path"`
	ProcessedAt  time.Time        `json:"processed_at"`
}

// NewUploadResponse summarises a pipeline result for the uploader.
func NewUploadResponse(res *pipeline.Result) *UploadResponse {
	return &UploadResponse{
		DatasetID: res.DatasetID,
		Format:    res.Format,
		Shapes:    res.Shapes,
		Classes:   res.Classes,
		Skipped:   res.SkippedImages,
	}
}

// NewDatasetRecord builds the catalog row for a pipeline result.
func NewDatasetRecord(res *pipeline.Result, now time.Time) *DatasetRecord {
	train, test := res.Samples()
	return &DatasetRecord{
		ID:           res.DatasetID,
		Format:       res.Format,
		Shapes:       res.Shapes,
		Classes:      res.Classes,
		NumClasses:   len(res.Classes),
		TrainSamples: train,
		TestSamples:  test,
		Path:         res.Dir,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Event builds the dataset-ready event for a catalog record.
func (r *DatasetRecord) Event(processedAt time.Time) DatasetReadyEvent {
	return DatasetReadyEvent{
		DatasetID:    r.ID,
		Format:       r.Format,
		Shapes:       r.Shapes,
		Classes:      r.Classes,
		TrainSamples: r.TrainSamples,
		TestSamples:  r.TestSamples,
		Path:         r.Path,
		ProcessedAt:  processedAt,
	}
}
