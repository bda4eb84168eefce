package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/SpikeIreland/clarence-sub004/backend/config"
	"github.com/SpikeIreland/clarence-sub004/backend/middleware"
	"github.com/SpikeIreland/clarence-sub004/backend/model"
	"github.com/SpikeIreland/clarence-sub004/backend/pkg/logger"
	"github.com/SpikeIreland/clarence-sub004/backend/service"
	"github.com/SpikeIreland/clarence-sub004/backend/wizard"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler exposes the wizard lifecycle: one endpoint per named
// transition, so the state machine stays the only place that mutates
// intake state.
type SessionHandler struct {
	config   *config.Config
	store    *service.SessionStore
	registry *wizard.Registry
	workflow wizard.WorkflowAPI
	uploads  *service.UploadPipeline
}

func NewSessionHandler(cfg *config.Config, registry *wizard.Registry, workflow wizard.WorkflowAPI, uploads *service.UploadPipeline) *SessionHandler {
	return &SessionHandler{
		config:   cfg,
		store:    service.GetSessionStore(),
		registry: registry,
		workflow: workflow,
		uploads:  uploads,
	}
}

// Create starts a new wizard session. Training mode comes from the
// mode query parameter and is fixed for the session's lifetime.
func (h *SessionHandler) Create(c *gin.Context) {
	owner := middleware.GetUsername(c)

	session := &model.Session{
		ID:    uuid.New().String(),
		Owner: owner,
		Intake: model.IntakeState{
			TrainingMode: c.Query("mode") == "training",
		},
		CreatedAt: time.Now(),
	}

	toasts := service.NewToastQueue(h.config.Notify.ToastTTL())
	machine := wizard.NewMachine(session, h.workflow, h.uploads, toasts, h.config.Wizard.WelcomeDelay())
	machine.Start()

	h.store.Save(session)
	h.registry.Add(session.ID, machine)

	logger.Info(c.Request.Context(), "wizard session created",
		"session_id", session.ID,
		"training_mode", session.Intake.TrainingMode,
	)

	c.JSON(http.StatusCreated, gin.H{
		"session": machine.State(),
		"prompt":  machine.Prompt(),
	})
}

// Get returns the session state, the current prompt and any pending
// transition.
func (h *SessionHandler) Get(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	response := gin.H{
		"session": machine.State(),
		"prompt":  machine.Prompt(),
	}
	if descriptor, destination, pending := machine.PendingTransition(); pending {
		response["transition"] = descriptor
		response["destination"] = destination
	}

	c.JSON(http.StatusOK, response)
}

// Delete abandons the wizard and cancels every outstanding timer.
func (h *SessionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	session := h.store.Get(id)
	if session == nil || session.Owner != middleware.GetUsername(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	h.registry.Remove(id)
	h.store.Delete(id)

	c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
}

type mediationRequest struct {
	MediationType model.MediationType `json:"mediation_type" binding:"required"`
}

// SelectMediation records the mediation choice.
func (h *SessionHandler) SelectMediation(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	var req mediationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := machine.SelectMediationType(req.MediationType); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	h.respondState(c, machine)
}

type contractTypeRequest struct {
	ContractType model.ContractType `json:"contract_type" binding:"required"`
}

// SelectContractType records the contract category.
func (h *SessionHandler) SelectContractType(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	var req contractTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := machine.SelectContractType(req.ContractType); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	h.respondState(c, machine)
}

type quickIntakeRequest struct {
	Skip   bool              `json:"skip"`
	Intake model.QuickIntake `json:"intake"`
}

// SubmitQuickIntake stores the optional questionnaire, or skips it.
func (h *SessionHandler) SubmitQuickIntake(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	var req quickIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := machine.SubmitQuickIntake(req.Intake, req.Skip); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	h.respondState(c, machine)
}

type sourceRequest struct {
	TemplateSource model.TemplateSource `json:"template_source" binding:"required"`
}

// SelectSource records where the contract content comes from.
func (h *SessionHandler) SelectSource(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := machine.SelectTemplateSource(req.TemplateSource); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	h.respondState(c, machine)
}

// Templates lists the filtered catalog for the template-selection step.
// Catalog trouble is not fatal: the response then carries recovery
// options instead of templates.
func (h *SessionHandler) Templates(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	broaden := c.Query("broaden") == "true"
	templates, recovery, err := machine.Templates(c.Request.Context(), broaden)
	if err != nil {
		if model.KindOf(err) == model.ErrCatalogFetchFailed {
			c.JSON(http.StatusOK, gin.H{
				"templates": []model.Template{},
				"recovery":  recovery,
				"error":     err.Error(),
			})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{"templates": templates}
	if recovery != nil {
		response["recovery"] = recovery
	}
	c.JSON(http.StatusOK, response)
}

type templateRequest struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name"`
}

// SelectTemplate records the chosen catalog entry.
func (h *SessionHandler) SelectTemplate(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := machine.SelectTemplate(req.ID, req.Name); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	h.respondState(c, machine)
}

// Upload receives the contract file and runs the intake pipeline.
// Validation failures never reach the workflow service.
func (h *SessionHandler) Upload(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	if err := machine.Upload(c.Request.Context(), header.Filename, data); err != nil {
		status := http.StatusBadRequest
		switch model.KindOf(err) {
		case model.ErrSubmissionFailed:
			status = http.StatusBadGateway
		case "":
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error(), "kind": model.KindOf(err)})
		return
	}

	h.respondState(c, machine)
}

// UploadStatus reports parse progress for the current document.
func (h *SessionHandler) UploadStatus(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	doc, uploadErr := machine.UploadStatus()
	response := gin.H{"document": doc}
	if uploadErr != nil {
		response["error"] = uploadErr.Message
		response["kind"] = uploadErr.Kind
	}
	c.JSON(http.StatusOK, response)
}

// ConfirmUpload moves on from the upload step once the document is
// ready; earlier clicks are rejected without side effects.
func (h *SessionHandler) ConfirmUpload(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	if err := machine.ConfirmUpload(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	h.respondState(c, machine)
}

// Confirm finalizes the intake: the session is created remotely and the
// resolved pathway decides where the user goes next.
func (h *SessionHandler) Confirm(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	result, err := machine.Confirm(c.Request.Context())
	if err != nil {
		if model.KindOf(err) == model.ErrCreationFailed {
			c.JSON(http.StatusBadGateway, gin.H{
				"error": err.Error(),
				"kind":  model.ErrCreationFailed,
			})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	logger.Info(c.Request.Context(), "negotiation session created",
		"session_id", result.SessionID,
		"pathway", result.Pathway,
	)

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// ContinueTransition performs the deferred navigation.
func (h *SessionHandler) ContinueTransition(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	destination, err := machine.ContinueTransition()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"destination": destination})
}

type backRequest struct {
	To model.Step `json:"to" binding:"required"`
}

// Back navigates to an earlier reached step.
func (h *SessionHandler) Back(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	var req backRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := machine.Back(req.To); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	h.respondState(c, machine)
}

// getMachine resolves the session machine for the request, enforcing
// ownership. Missing and foreign sessions look identical to the caller.
func (h *SessionHandler) getMachine(c *gin.Context) (*wizard.Machine, bool) {
	id := c.Param("id")
	session := h.store.Get(id)
	if session == nil || session.Owner != middleware.GetUsername(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}

	machine := h.registry.Get(id)
	if machine == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return machine, true
}

func (h *SessionHandler) respondState(c *gin.Context, machine *wizard.Machine) {
	c.JSON(http.StatusOK, gin.H{
		"session": machine.State(),
		"prompt":  machine.Prompt(),
	})
}
