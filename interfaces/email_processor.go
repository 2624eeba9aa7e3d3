package interfaces

import (
	"context"

	"github.com/customeros/mailsync/internal/models"
)

type IngestionPipeline interface {
	ProcessStream(ctx context.Context, account *models.Account, folder string, messages <-chan *RawMessage) PipelineResult
	ProcessMessage(ctx context.Context, account *models.Account, folder string, raw *RawMessage) (*models.Email, error)
}

type PipelineResult struct {
	Received    int
	Indexed     int
	ParseFailed int
	IndexFailed int
	Notified    int
}
