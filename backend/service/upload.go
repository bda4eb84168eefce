package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SpikeIreland/clarence-sub004/backend/config"
	"github.com/SpikeIreland/clarence-sub004/backend/model"
)

// DocumentParser is the slice of the workflow client the upload pipeline
// needs: hand off text, check parse progress.
type DocumentParser interface {
	SubmitDocument(ctx context.Context, req *SubmitDocumentRequest) (string, error)
	GetDocumentStatus(ctx context.Context, contractID string) (*DocumentStatusResponse, error)
}

// UploadArchiver stores the original file before extraction. Archival is
// best-effort; the parse run does not depend on it.
type UploadArchiver interface {
	ArchiveUpload(ctx context.Context, objectName string, data []byte, contentType string) error
}

// UploadPipeline validates a selected file, extracts its text, submits
// it to the remote parser and polls for completion.
type UploadPipeline struct {
	extractor    *Extractor
	parser       DocumentParser
	archiver     UploadArchiver // may be nil
	pollInterval time.Duration
	maxAttempts  int
}

func NewUploadPipeline(cfg *config.UploadConfig, parser DocumentParser, archiver UploadArchiver) *UploadPipeline {
	return &UploadPipeline{
		extractor:    NewExtractor(cfg),
		parser:       parser,
		archiver:     archiver,
		pollInterval: cfg.PollInterval(),
		maxAttempts:  cfg.PollMaxAttempts,
	}
}

// IntakeContext is the part of the intake the parse endpoint wants to
// see alongside the extracted text.
type IntakeContext struct {
	ContractType   model.ContractType
	MediationType  model.MediationType
	TemplateSource model.TemplateSource
	TrainingMode   bool
}

// Submit runs validation, extraction, archival and submission, in that
// order. Validation failures never reach the network. On success the
// returned contract id identifies the parse job to poll.
func (p *UploadPipeline) Submit(ctx context.Context, fileName string, data []byte, intake IntakeContext) (string, error) {
	kind, err := p.extractor.Validate(fileName, int64(len(data)))
	if err != nil {
		return "", err
	}

	text, err := p.extractor.Extract(kind, data)
	if err != nil {
		return "", err
	}

	if p.archiver != nil {
		objectName := fmt.Sprintf("uploads/%s", fileName)
		if err := p.archiver.ArchiveUpload(ctx, objectName, data, contentTypeFor(kind)); err != nil {
			slog.Warn("failed to archive upload", "file", fileName, "error", err)
		}
	}

	contractID, err := p.parser.SubmitDocument(ctx, &SubmitDocumentRequest{
		Text:           text,
		ContractType:   intake.ContractType,
		MediationType:  intake.MediationType,
		TemplateSource: intake.TemplateSource,
		TrainingMode:   intake.TrainingMode,
		FileName:       fileName,
	})
	if err != nil {
		return "", model.WrapError(model.ErrSubmissionFailed, "Document submission failed", err)
	}

	return contractID, nil
}

func contentTypeFor(kind FileKind) string {
	switch kind {
	case KindPDF:
		return "application/pdf"
	case KindDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/plain"
	}
}

// PollTask is the handle for one running poll loop. It is stored by the
// component that started the loop so teardown can walk and cancel it.
type PollTask struct {
	Job    *model.UploadJob
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops the loop. It does not wait for the goroutine to exit so
// it is safe to call while holding locks the terminal callback also
// takes; a cancelled loop never invokes the callback.
func (t *PollTask) Cancel() {
	t.cancel()
}

// Done exposes loop completion for tests and teardown.
func (t *PollTask) Done() <-chan struct{} {
	return t.done
}

// StartPolling launches the poll loop for a submitted document. The
// loop ends on exactly one of: the document reaching ready, the parser
// reporting failure, the attempt ceiling (surfaced as ErrTimeout), or
// cancellation. onDone fires once with the terminal outcome; individual
// network errors are retried and count toward the ceiling.
func (p *UploadPipeline) StartPolling(ctx context.Context, contractID string, onDone func(task *PollTask, status model.DocumentStatus, err error)) *PollTask {
	ctx, cancel := context.WithCancel(ctx)
	task := &PollTask{
		Job:    &model.UploadJob{ContractID: contractID, Status: model.DocProcessing},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(task.done)

		timer := time.NewTimer(p.pollInterval)
		defer timer.Stop()

		for attempt := 1; attempt <= p.maxAttempts; attempt++ {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			timer.Reset(p.pollInterval)

			task.Job.PollAttempts = attempt

			status, err := p.parser.GetDocumentStatus(ctx, contractID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("document status poll failed",
					"contract_id", contractID,
					"attempt", attempt,
					"error", err,
				)
				continue
			}

			switch status.Status {
			case model.DocReady:
				task.Job.Status = model.DocReady
				onDone(task, model.DocReady, nil)
				return
			case model.DocFailed:
				task.Job.Status = model.DocFailed
				msg := status.Error
				if msg == "" {
					msg = "Document processing failed"
				}
				onDone(task, model.DocFailed, model.NewError(model.ErrProcessingFailed, msg))
				return
			}
		}

		task.Job.Status = model.DocFailed
		onDone(task, model.DocFailed, model.NewError(model.ErrTimeout,
			"Document processing timed out"))
	}()

	return task
}
