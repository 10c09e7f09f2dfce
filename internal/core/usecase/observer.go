package usecase

import (
	"time"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

type noopObserver struct{}

func (noopObserver) PollerTick(string, string) {}

func (noopObserver) UploadBatch(int, time.Duration, error) {}

func (noopObserver) TaskFinished(domain.TaskStatus) {}

func (noopObserver) StatusChanged(domain.GlobalStatus) {}
