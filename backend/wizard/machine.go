package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SpikeIreland/clarence-sub004/backend/model"
	"github.com/SpikeIreland/clarence-sub004/backend/pathway"
	"github.com/SpikeIreland/clarence-sub004/backend/service"
)

// WorkflowAPI is the slice of the workflow client the machine calls
// directly: catalog retrieval and final session creation.
type WorkflowAPI interface {
	FetchTemplates(ctx context.Context) ([]model.Template, error)
	CreateSession(ctx context.Context, req *service.CreateSessionRequest) (*service.CreateSessionResponse, error)
}

// ErrStaleCatalog marks a catalog response that arrived after the wizard
// left the template-selection step. The response must be discarded.
var ErrStaleCatalog = errors.New("catalog response discarded: wizard moved on")

// Machine sequences one wizard run. It is the only component that
// mutates the intake state; every mutation goes through a named
// transition method so the transition table stays enforceable.
type Machine struct {
	mu       sync.Mutex
	session  *model.Session
	workflow WorkflowAPI
	uploads  *service.UploadPipeline
	toasts   *service.ToastQueue

	rootCtx    context.Context
	rootCancel context.CancelFunc

	reached      map[model.Step]bool
	epoch        int // bumped on every step change; guards stale responses
	welcomeDelay time.Duration
	welcomeTimer *time.Timer
	pollTask     *service.PollTask
	uploadErr    *model.EngineError
	presenter    Presenter
	creation     *CreationResult
	tornDown     bool
}

// CreationResult is what Confirm produces on success: the remote session
// plus the resolved pathway, destination and transition.
type CreationResult struct {
	SessionID   string                       `json:"session_id"`
	ContractID  string                       `json:"contract_id,omitempty"`
	Pathway     pathway.ID                   `json:"pathway"`
	Destination string                       `json:"destination"`
	Transition  pathway.TransitionDescriptor `json:"transition"`
}

func NewMachine(session *model.Session, workflow WorkflowAPI, uploads *service.UploadPipeline, toasts *service.ToastQueue, welcomeDelay time.Duration) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	session.Intake.Step = model.StepWelcome

	return &Machine{
		session:      session,
		workflow:     workflow,
		uploads:      uploads,
		toasts:       toasts,
		rootCtx:      ctx,
		rootCancel:   cancel,
		reached:      map[model.Step]bool{model.StepWelcome: true},
		welcomeDelay: welcomeDelay,
	}
}

// Start schedules the automatic advance off the welcome step. The
// welcome screen is display-only; no user action moves past it.
func (m *Machine) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomeTimer = time.AfterFunc(m.welcomeDelay, m.advanceFromWelcome)
}

func (m *Machine) advanceFromWelcome() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tornDown || m.session.Intake.Step != model.StepWelcome {
		return
	}
	m.enterStep(model.StepMediationType)
}

// enterStep records a step change. Must be called with the lock held.
func (m *Machine) enterStep(step model.Step) {
	m.session.Intake.Step = step
	m.session.UpdatedAt = time.Now()
	m.reached[step] = true
	m.epoch++
}

func (m *Machine) requireStep(step model.Step) error {
	if m.session.Intake.Step != step {
		return fmt.Errorf("action requires the %s step, wizard is at %s", step, m.session.Intake.Step)
	}
	return nil
}

// State returns a snapshot of the session for presentation.
func (m *Machine) State() model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := *m.session
	if m.session.Intake.SelectedTemplate != nil {
		tpl := *m.session.Intake.SelectedTemplate
		snapshot.Intake.SelectedTemplate = &tpl
	}
	if m.session.Intake.UploadedDocument != nil {
		doc := *m.session.Intake.UploadedDocument
		snapshot.Intake.UploadedDocument = &doc
	}
	return snapshot
}

// Prompt returns the copy for the current step.
func (m *Machine) Prompt() StepPrompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return PromptFor(m.session.Intake.Step, m.session.Intake.TrainingMode)
}

// Toasts exposes the session's notification queue.
func (m *Machine) Toasts() *service.ToastQueue {
	return m.toasts
}

// SelectMediationType records the mediation choice and advances to the
// contract-type step.
func (m *Machine) SelectMediationType(v model.MediationType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireStep(model.StepMediationType); err != nil {
		return err
	}
	if !model.ValidMediationType(v) {
		return fmt.Errorf("unknown mediation type %q", v)
	}

	m.session.Intake.MediationType = v
	m.enterStep(model.StepContractType)
	return nil
}

// SelectContractType records the contract category. Straight-to-contract
// deals (and training runs) skip the quick intake entirely.
func (m *Machine) SelectContractType(v model.ContractType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireStep(model.StepContractType); err != nil {
		return err
	}
	if !model.ValidContractType(v) {
		return fmt.Errorf("unknown contract type %q", v)
	}

	m.session.Intake.ContractType = v
	if skipsQuickIntake(&m.session.Intake) {
		m.enterStep(model.StepTemplateSource)
	} else {
		m.enterStep(model.StepQuickIntake)
	}
	return nil
}

// SubmitQuickIntake stores the questionnaire answers, or none when
// skipped. Continue and skip land on the same step; only the copy
// differs upstream.
func (m *Machine) SubmitQuickIntake(q model.QuickIntake, skip bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireStep(model.StepQuickIntake); err != nil {
		return err
	}
	if skip {
		m.session.Intake.QuickIntake = model.QuickIntake{}
	} else {
		if len(q.PriorityTags) > model.MaxPriorityTags {
			return fmt.Errorf("at most %d priority tags are allowed", model.MaxPriorityTags)
		}
		m.session.Intake.QuickIntake = q
	}

	m.enterStep(model.StepTemplateSource)
	return nil
}

// SelectTemplateSource records where the contract content comes from and
// branches accordingly: catalog sources go to template selection, an
// upload goes to the processing step, from-scratch goes straight to the
// summary.
func (m *Machine) SelectTemplateSource(v model.TemplateSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireStep(model.StepTemplateSource); err != nil {
		return err
	}
	if !model.ValidTemplateSource(v) {
		return fmt.Errorf("unknown template source %q", v)
	}

	// A re-chosen source invalidates the answers of the branch it leaves:
	// a selected template belongs to the catalog sources only, an uploaded
	// document to the upload source only.
	if v != model.SourceExistingTemplate && v != model.SourceModifiedTemplate {
		m.session.Intake.SelectedTemplate = nil
	}
	if v != model.SourceUploaded {
		if m.pollTask != nil {
			m.pollTask.Cancel()
			m.pollTask = nil
		}
		m.session.Intake.UploadedDocument = nil
		m.uploadErr = nil
	}

	m.session.Intake.TemplateSource = v
	switch v {
	case model.SourceExistingTemplate, model.SourceModifiedTemplate:
		m.enterStep(model.StepTemplateSelection)
	case model.SourceUploaded:
		m.enterStep(model.StepUploadProcessing)
	case model.SourceFromScratch:
		m.enterStep(model.StepSummary)
	}
	return nil
}

// Templates fetches and filters the catalog for the template-selection
// step. A response that lands after the wizard moved to a different step
// is discarded. Fetch failure and an empty filtered result both degrade
// to recovery options rather than a dead end.
func (m *Machine) Templates(ctx context.Context, broaden bool) ([]model.Template, *CatalogRecovery, error) {
	m.mu.Lock()
	if err := m.requireStep(model.StepTemplateSelection); err != nil {
		m.mu.Unlock()
		return nil, nil, err
	}
	epoch := m.epoch
	contractType := m.session.Intake.ContractType
	m.mu.Unlock()

	templates, fetchErr := m.workflow.FetchTemplates(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tornDown || m.epoch != epoch {
		return nil, nil, ErrStaleCatalog
	}

	if fetchErr != nil {
		slog.Warn("template catalog fetch failed", "session_id", m.session.ID, "error", fetchErr)
		return nil, fetchFailedRecovery(), model.WrapError(model.ErrCatalogFetchFailed,
			"Could not load the template catalog", fetchErr)
	}

	if contractType != model.ContractCustom && !broaden {
		templates = FilterTemplates(templates, contractType)
	}
	if len(templates) == 0 {
		return nil, noMatchesRecovery(), nil
	}
	return templates, nil, nil
}

// SelectTemplate records a catalog choice and advances to the summary.
func (m *Machine) SelectTemplate(id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireStep(model.StepTemplateSelection); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("template id is required")
	}

	m.session.Intake.SelectedTemplate = &model.SelectedTemplate{ID: id, Name: name}
	m.enterStep(model.StepSummary)
	return nil
}

// Upload runs the document pipeline for the upload-processing step.
// Starting a new upload cancels any poll loop still running for the
// previous one; at most one loop is ever live per wizard.
func (m *Machine) Upload(ctx context.Context, fileName string, data []byte) error {
	m.mu.Lock()
	if err := m.requireStep(model.StepUploadProcessing); err != nil {
		m.mu.Unlock()
		return err
	}
	if prev := m.pollTask; prev != nil {
		prev.Cancel()
		m.pollTask = nil
	}
	m.session.Intake.UploadedDocument = nil
	m.uploadErr = nil
	intake := service.IntakeContext{
		ContractType:   m.session.Intake.ContractType,
		MediationType:  m.session.Intake.MediationType,
		TemplateSource: m.session.Intake.TemplateSource,
		TrainingMode:   m.session.Intake.TrainingMode,
	}
	epoch := m.epoch
	m.mu.Unlock()

	contractID, err := m.uploads.Submit(ctx, fileName, data, intake)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tornDown || m.epoch != epoch {
		// The wizard left the upload step while the submission was in
		// flight; the partial upload is discarded.
		return nil
	}

	// Another upload may have started its loop while this submission was
	// in flight. The later assignment wins; the earlier loop stops.
	if prev := m.pollTask; prev != nil {
		prev.Cancel()
	}

	m.session.Intake.UploadedDocument = &model.UploadedDocument{
		ContractID: contractID,
		Status:     model.DocProcessing,
		FileName:   fileName,
	}

	m.pollTask = m.uploads.StartPolling(m.rootCtx, contractID, m.uploadDone)
	return nil
}

// uploadDone is the poll loop's write-back into the intake state. Late
// callbacks from a superseded loop are ignored.
func (m *Machine) uploadDone(task *service.PollTask, status model.DocumentStatus, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tornDown || m.pollTask != task {
		return
	}
	m.pollTask = nil

	doc := m.session.Intake.UploadedDocument
	if doc == nil {
		return
	}
	doc.Status = status
	if err != nil {
		var ee *model.EngineError
		if errors.As(err, &ee) {
			m.uploadErr = ee
		} else {
			m.uploadErr = model.WrapError(model.ErrProcessingFailed, "Document processing failed", err)
		}
	}
}

// UploadStatus reports the current document state plus any terminal
// error from the poll loop.
func (m *Machine) UploadStatus() (*model.UploadedDocument, *model.EngineError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Intake.UploadedDocument == nil {
		return nil, m.uploadErr
	}
	doc := *m.session.Intake.UploadedDocument
	return &doc, m.uploadErr
}

// ConfirmUpload advances to the summary, but only once the document is
// ready. Confirming earlier is a no-op.
func (m *Machine) ConfirmUpload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireStep(model.StepUploadProcessing); err != nil {
		return err
	}
	doc := m.session.Intake.UploadedDocument
	if doc == nil || doc.Status != model.DocReady {
		return fmt.Errorf("document is not ready yet")
	}

	m.enterStep(model.StepSummary)
	return nil
}

// Confirm creates the negotiation session with the accumulated intake.
// On success the resolved pathway decides the destination and the
// transition presented to the user. On failure the wizard returns to the
// summary with every answer intact.
func (m *Machine) Confirm(ctx context.Context) (*CreationResult, error) {
	m.mu.Lock()
	if err := m.requireStep(model.StepSummary); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	intake := m.session.Intake
	if intake.MediationType == "" || intake.TemplateSource == "" {
		m.mu.Unlock()
		return nil, fmt.Errorf("intake is incomplete: mediation type and template source are required")
	}

	pathwayID, err := pathway.Resolve(intake.MediationType, intake.TemplateSource)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}

	contractID := ""
	if intake.SelectedTemplate != nil {
		contractID = intake.SelectedTemplate.ID
	} else if intake.UploadedDocument != nil {
		contractID = intake.UploadedDocument.ContractID
	}

	req := &service.CreateSessionRequest{
		MediationType:  intake.MediationType,
		ContractType:   intake.ContractType,
		TemplateSource: intake.TemplateSource,
		QuickIntake:    intake.QuickIntake,
		ContractID:     contractID,
		TrainingMode:   intake.TrainingMode,
		Pathway:        string(pathwayID),
	}
	if intake.SelectedTemplate != nil {
		req.TemplateID = intake.SelectedTemplate.ID
	}

	m.enterStep(model.StepCreating)
	m.mu.Unlock()

	resp, createErr := m.workflow.CreateSession(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tornDown {
		return nil, fmt.Errorf("wizard was torn down")
	}

	if createErr != nil {
		// Roll back to the summary; the answers stay untouched.
		m.enterStep(model.StepSummary)
		return nil, model.WrapError(model.ErrCreationFailed,
			"Could not create the negotiation session", createErr)
	}

	if resp.ContractID != "" {
		contractID = resp.ContractID
	}

	destination, err := pathway.BuildDestination(pathwayID, resp.SessionID, contractID)
	if err != nil {
		m.enterStep(model.StepSummary)
		return nil, model.WrapError(model.ErrCreationFailed, "Could not resolve destination", err)
	}
	transition, err := pathway.SelectTransition(pathwayID)
	if err != nil {
		m.enterStep(model.StepSummary)
		return nil, model.WrapError(model.ErrCreationFailed, "Could not resolve transition", err)
	}

	m.presenter.Present(transition, destination)
	m.creation = &CreationResult{
		SessionID:   resp.SessionID,
		ContractID:  contractID,
		Pathway:     pathwayID,
		Destination: destination,
		Transition:  transition,
	}
	m.enterStep(model.StepDone)
	return m.creation, nil
}

// PendingTransition returns the transition awaiting user confirmation.
func (m *Machine) PendingTransition() (pathway.TransitionDescriptor, string, bool) {
	return m.presenter.Active()
}

// ContinueTransition performs the deferred navigation: it yields the
// stored destination and clears the presenter.
func (m *Machine) ContinueTransition() (string, error) {
	destination, ok := m.presenter.Continue()
	if !ok {
		return "", fmt.Errorf("no transition is pending")
	}
	return destination, nil
}

// Back returns to an earlier reached step. Welcome and creating are
// never valid targets, and nothing can leave the creating step except
// the creation outcome itself. Answers belonging to steps that remain on
// the forward path are preserved; only a partial upload is discarded
// when leaving the upload step backward.
func (m *Machine) Back(to model.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.session.Intake.Step
	if current == model.StepCreating || current == model.StepDone {
		return fmt.Errorf("cannot go back from the %s step", current)
	}
	if to == model.StepWelcome || to == model.StepCreating {
		return fmt.Errorf("%s is not a valid back target", to)
	}
	if !m.reached[to] {
		return fmt.Errorf("step %s was never reached", to)
	}
	if stepIndex(to) >= stepIndex(current) {
		return fmt.Errorf("back navigation must target an earlier step")
	}

	if current == model.StepUploadProcessing {
		if m.pollTask != nil {
			m.pollTask.Cancel()
			m.pollTask = nil
		}
		m.session.Intake.UploadedDocument = nil
		m.uploadErr = nil
	}

	m.enterStep(to)
	return nil
}

// Teardown cancels every outstanding timer and poll loop. The machine
// accepts no further transitions afterwards.
func (m *Machine) Teardown() {
	m.mu.Lock()
	m.tornDown = true
	if m.welcomeTimer != nil {
		m.welcomeTimer.Stop()
	}
	task := m.pollTask
	m.pollTask = nil
	m.mu.Unlock()

	m.rootCancel()
	if task != nil {
		task.Cancel()
	}
	if m.toasts != nil {
		m.toasts.CancelAll()
	}
}
