package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SpikeIreland/clarence-sub004/backend/config"
	"github.com/SpikeIreland/clarence-sub004/backend/model"
	"github.com/SpikeIreland/clarence-sub004/backend/service"
	"github.com/SpikeIreland/clarence-sub004/backend/wizard"
	"github.com/gin-gonic/gin"
)

type fakeWorkflow struct {
	fetch  func(ctx context.Context) ([]model.Template, error)
	create func(ctx context.Context, req *service.CreateSessionRequest) (*service.CreateSessionResponse, error)
}

func (f *fakeWorkflow) FetchTemplates(ctx context.Context) ([]model.Template, error) {
	if f.fetch == nil {
		return []model.Template{{ID: "t-1", Name: "Mutual NDA", Category: "NDA"}}, nil
	}
	return f.fetch(ctx)
}

func (f *fakeWorkflow) CreateSession(ctx context.Context, req *service.CreateSessionRequest) (*service.CreateSessionResponse, error) {
	if f.create == nil {
		return &service.CreateSessionResponse{Success: true, SessionID: "remote-1"}, nil
	}
	return f.create(ctx, req)
}

type fakeParser struct {
	status model.DocumentStatus
}

func (p *fakeParser) SubmitDocument(ctx context.Context, req *service.SubmitDocumentRequest) (string, error) {
	return "c-upload-1", nil
}

func (p *fakeParser) GetDocumentStatus(ctx context.Context, contractID string) (*service.DocumentStatusResponse, error) {
	return &service.DocumentStatusResponse{Status: p.status}, nil
}

func newTestRouter(t *testing.T, workflow wizard.WorkflowAPI) *gin.Engine {
	t.Helper()

	cfg := &config.Config{
		Wizard: config.WizardConfig{WelcomeDelayMillis: 1},
		Notify: config.NotifyConfig{ToastTTLSeconds: 3600},
	}
	uploads := service.NewUploadPipeline(&config.UploadConfig{
		MaxSizeBytes:      10 << 20,
		MinExtractedChars: 10,
		PollMaxAttempts:   5,
	}, &fakeParser{status: model.DocReady}, nil)

	registry := wizard.NewRegistry()
	t.Cleanup(registry.Shutdown)

	sessionHandler := NewSessionHandler(cfg, registry, workflow, uploads)
	notifyHandler := NewNotifyHandler(registry)

	router := gin.New()
	// Stand-in for the JWT middleware: the user comes from a test header
	router.Use(func(c *gin.Context) {
		user := c.GetHeader("X-Test-User")
		if user == "" {
			user = "customer1"
		}
		c.Set("username", user)
		c.Next()
	})

	router.POST("/wizard/sessions", sessionHandler.Create)
	router.GET("/wizard/sessions/:id", sessionHandler.Get)
	router.DELETE("/wizard/sessions/:id", sessionHandler.Delete)
	router.POST("/wizard/sessions/:id/mediation", sessionHandler.SelectMediation)
	router.POST("/wizard/sessions/:id/contract-type", sessionHandler.SelectContractType)
	router.POST("/wizard/sessions/:id/quick-intake", sessionHandler.SubmitQuickIntake)
	router.POST("/wizard/sessions/:id/source", sessionHandler.SelectSource)
	router.GET("/wizard/sessions/:id/templates", sessionHandler.Templates)
	router.POST("/wizard/sessions/:id/template", sessionHandler.SelectTemplate)
	router.POST("/wizard/sessions/:id/upload", sessionHandler.Upload)
	router.GET("/wizard/sessions/:id/upload/status", sessionHandler.UploadStatus)
	router.POST("/wizard/sessions/:id/upload/confirm", sessionHandler.ConfirmUpload)
	router.POST("/wizard/sessions/:id/confirm", sessionHandler.Confirm)
	router.POST("/wizard/sessions/:id/transition/continue", sessionHandler.ContinueTransition)
	router.POST("/wizard/sessions/:id/back", sessionHandler.Back)
	router.POST("/wizard/sessions/:id/events", notifyHandler.Event)
	router.GET("/wizard/sessions/:id/notifications", notifyHandler.List)
	router.POST("/wizard/sessions/:id/notifications/:toastId/dismiss", notifyHandler.Dismiss)
	router.POST("/wizard/sessions/:id/focus", notifyHandler.Focus)

	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		data, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parseBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	return body
}

// createSession starts a wizard and waits for the welcome step to pass.
func createSession(t *testing.T, router *gin.Engine, mode string) string {
	t.Helper()

	path := "/wizard/sessions"
	if mode != "" {
		path += "?mode=" + mode
	}
	w := doJSON(router, "POST", path, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	body := parseBody(t, w)
	session := body["session"].(map[string]any)
	id := session["id"].(string)

	deadline := time.Now().Add(2 * time.Second)
	for {
		w := doJSON(router, "GET", "/wizard/sessions/"+id, nil)
		body := parseBody(t, w)
		intake := body["session"].(map[string]any)["intake"].(map[string]any)
		if intake["step"] == string(model.StepMediationType) {
			return id
		}
		if time.Now().After(deadline) {
			t.Fatalf("Session never left the welcome step (at %v)", intake["step"])
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func stepOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := parseBody(t, w)
	return body["session"].(map[string]any)["intake"].(map[string]any)["step"].(string)
}

func TestSessionCreateReturnsPrompt(t *testing.T) {
	router := newTestRouter(t, &fakeWorkflow{})

	w := doJSON(router, "POST", "/wizard/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}

	body := parseBody(t, w)
	prompt := body["prompt"].(map[string]any)
	if prompt["message"] == "" {
		t.Error("Expected a welcome prompt")
	}
}

func TestSessionTrainingModeFromQuery(t *testing.T) {
	router := newTestRouter(t, &fakeWorkflow{})

	w := doJSON(router, "POST", "/wizard/sessions?mode=training", nil)
	body := parseBody(t, w)
	intake := body["session"].(map[string]any)["intake"].(map[string]any)
	if intake["training_mode"] != true {
		t.Error("Expected training mode from the mode query parameter")
	}
}

func TestSessionOwnershipEnforced(t *testing.T) {
	router := newTestRouter(t, &fakeWorkflow{})
	id := createSession(t, router, "")

	req := httptest.NewRequest("GET", "/wizard/sessions/"+id, nil)
	req.Header.Set("X-Test-User", "someone-else")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Foreign sessions look exactly like missing ones
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a foreign session, got %d", w.Code)
	}

	w2 := doJSON(router, "GET", "/wizard/sessions/no-such-id", nil)
	if w2.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing session, got %d", w2.Code)
	}
	if w.Body.String() != w2.Body.String() {
		t.Error("Expected identical responses for foreign and missing sessions")
	}
}

func TestWizardFlowOverHTTP(t *testing.T) {
	var gotReq *service.CreateSessionRequest
	workflow := &fakeWorkflow{
		create: func(ctx context.Context, req *service.CreateSessionRequest) (*service.CreateSessionResponse, error) {
			gotReq = req
			return &service.CreateSessionResponse{Success: true, SessionID: "remote-1"}, nil
		},
	}
	router := newTestRouter(t, workflow)
	id := createSession(t, router, "")
	base := "/wizard/sessions/" + id

	w := doJSON(router, "POST", base+"/mediation", gin.H{"mediation_type": "full_mediation"})
	if w.Code != http.StatusOK {
		t.Fatalf("mediation: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if stepOf(t, w) != "contract_type" {
		t.Fatalf("Expected contract_type, got %s", stepOf(t, w))
	}

	w = doJSON(router, "POST", base+"/contract-type", gin.H{"contract_type": "nda"})
	if stepOf(t, w) != "quick_intake" {
		t.Fatalf("Expected quick_intake, got %s", stepOf(t, w))
	}

	w = doJSON(router, "POST", base+"/quick-intake", gin.H{"skip": true})
	if stepOf(t, w) != "template_source" {
		t.Fatalf("Expected template_source, got %s", stepOf(t, w))
	}

	w = doJSON(router, "POST", base+"/source", gin.H{"template_source": "existing_template"})
	if stepOf(t, w) != "template_selection" {
		t.Fatalf("Expected template_selection, got %s", stepOf(t, w))
	}

	w = doJSON(router, "GET", base+"/templates", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("templates: expected 200, got %d", w.Code)
	}
	templates := parseBody(t, w)["templates"].([]any)
	if len(templates) != 1 {
		t.Fatalf("Expected 1 template, got %d", len(templates))
	}

	w = doJSON(router, "POST", base+"/template", gin.H{"id": "t-1", "name": "Mutual NDA"})
	if stepOf(t, w) != "summary" {
		t.Fatalf("Expected summary, got %s", stepOf(t, w))
	}

	w = doJSON(router, "POST", base+"/confirm", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	result := parseBody(t, w)["result"].(map[string]any)
	if result["pathway"] != "FM-EXISTING" {
		t.Errorf("Expected pathway FM-EXISTING, got %v", result["pathway"])
	}
	if gotReq == nil || gotReq.TemplateID != "t-1" {
		t.Errorf("Expected template id forwarded to the workflow service")
	}

	// The transition shows up on GET until continued
	w = doJSON(router, "GET", base, nil)
	body := parseBody(t, w)
	if body["transition"] == nil || body["destination"] == nil {
		t.Fatal("Expected pending transition in session state")
	}

	w = doJSON(router, "POST", base+"/transition/continue", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("continue: expected 200, got %d", w.Code)
	}
	destination := parseBody(t, w)["destination"].(string)
	if !strings.HasPrefix(destination, "/strategic-assessment?") {
		t.Errorf("Unexpected destination %s", destination)
	}

	// Continue is one-shot
	w = doJSON(router, "POST", base+"/transition/continue", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 on second continue, got %d", w.Code)
	}
}

func TestOutOfOrderActionConflicts(t *testing.T) {
	router := newTestRouter(t, &fakeWorkflow{})
	id := createSession(t, router, "")

	w := doJSON(router, "POST", "/wizard/sessions/"+id+"/source",
		gin.H{"template_source": "uploaded"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for an out-of-order action, got %d", w.Code)
	}
}

func TestBadRequestBodies(t *testing.T) {
	router := newTestRouter(t, &fakeWorkflow{})
	id := createSession(t, router, "")

	w := doJSON(router, "POST", "/wizard/sessions/"+id+"/mediation", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a missing field, got %d", w.Code)
	}
}

func TestTemplatesFetchFailureDegrades(t *testing.T) {
	router := newTestRouter(t, &fakeWorkflow{
		fetch: func(ctx context.Context) ([]model.Template, error) {
			return nil, fmt.Errorf("catalog down")
		},
	})
	id := createSession(t, router, "")
	base := "/wizard/sessions/" + id

	doJSON(router, "POST", base+"/mediation", gin.H{"mediation_type": "straight_to_contract"})
	doJSON(router, "POST", base+"/contract-type", gin.H{"contract_type": "nda"})
	doJSON(router, "POST", base+"/source", gin.H{"template_source": "existing_template"})

	w := doJSON(router, "GET", base+"/templates", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected catalog failure to degrade to 200, got %d", w.Code)
	}
	body := parseBody(t, w)
	if body["recovery"] == nil {
		t.Error("Expected recovery options in the response")
	}
	if body["error"] == nil {
		t.Error("Expected the error to be reported alongside recovery")
	}
}

func TestUploadOverHTTP(t *testing.T) {
	router := newTestRouter(t, &fakeWorkflow{})
	id := createSession(t, router, "")
	base := "/wizard/sessions/" + id

	doJSON(router, "POST", base+"/mediation", gin.H{"mediation_type": "straight_to_contract"})
	doJSON(router, "POST", base+"/contract-type", gin.H{"contract_type": "nda"})
	doJSON(router, "POST", base+"/source", gin.H{"template_source": "uploaded"})

	// Rejected extension
	w := uploadFile(router, base+"/upload", "malware.exe", []byte("data"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for a rejected extension, got %d", w.Code)
	}
	if parseBody(t, w)["kind"] != string(model.ErrInvalidFile) {
		t.Errorf("Expected invalid_file kind, got %s", w.Body.String())
	}

	// Valid upload
	text := strings.Repeat("The parties agree. ", 10)
	w = uploadFile(router, base+"/upload", "contract.txt", []byte(text))
	if w.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Poll the status endpoint until the document is ready
	deadline := time.Now().Add(2 * time.Second)
	for {
		w = doJSON(router, "GET", base+"/upload/status", nil)
		doc, _ := parseBody(t, w)["document"].(map[string]any)
		if doc != nil && doc["status"] == "ready" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Document never became ready: %s", w.Body.String())
		}
		time.Sleep(5 * time.Millisecond)
	}

	w = doJSON(router, "POST", base+"/upload/confirm", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm upload: expected 200, got %d", w.Code)
	}
	if stepOf(t, w) != "summary" {
		t.Errorf("Expected summary after upload confirm, got %s", stepOf(t, w))
	}
}

func uploadFile(router *gin.Engine, path, fileName string, data []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", fileName)
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestConfirmFailureReturnsBadGateway(t *testing.T) {
	router := newTestRouter(t, &fakeWorkflow{
		create: func(ctx context.Context, req *service.CreateSessionRequest) (*service.CreateSessionResponse, error) {
			return nil, fmt.Errorf("service unavailable")
		},
	})
	id := createSession(t, router, "")
	base := "/wizard/sessions/" + id

	doJSON(router, "POST", base+"/mediation", gin.H{"mediation_type": "straight_to_contract"})
	doJSON(router, "POST", base+"/contract-type", gin.H{"contract_type": "custom"})
	doJSON(router, "POST", base+"/source", gin.H{"template_source": "from_scratch"})

	w := doJSON(router, "POST", base+"/confirm", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502 on creation failure, got %d", w.Code)
	}

	// The wizard is back on the summary and can retry
	w = doJSON(router, "GET", base, nil)
	if stepOf(t, w) != "summary" {
		t.Errorf("Expected summary after failed creation, got %s", stepOf(t, w))
	}
}

func TestBackOverHTTP(t *testing.T) {
	router := newTestRouter(t, &fakeWorkflow{})
	id := createSession(t, router, "")
	base := "/wizard/sessions/" + id

	doJSON(router, "POST", base+"/mediation", gin.H{"mediation_type": "full_mediation"})
	doJSON(router, "POST", base+"/contract-type", gin.H{"contract_type": "nda"})

	w := doJSON(router, "POST", base+"/back", gin.H{"to": "mediation_type"})
	if w.Code != http.StatusOK {
		t.Fatalf("back: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if stepOf(t, w) != "mediation_type" {
		t.Errorf("Expected mediation_type, got %s", stepOf(t, w))
	}

	w = doJSON(router, "POST", base+"/back", gin.H{"to": "welcome"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for welcome as a back target, got %d", w.Code)
	}
}

func TestSessionDelete(t *testing.T) {
	router := newTestRouter(t, &fakeWorkflow{})
	id := createSession(t, router, "")

	w := doJSON(router, "DELETE", "/wizard/sessions/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}

	w = doJSON(router, "GET", "/wizard/sessions/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}

func TestNotificationsOverHTTP(t *testing.T) {
	router := newTestRouter(t, &fakeWorkflow{})
	id := createSession(t, router, "")
	base := "/wizard/sessions/" + id

	// Incoming chat event queues a toast while unfocused
	w := doJSON(router, "POST", base+"/events", gin.H{"sender": "Provider", "body": "We accepted clause 4"})
	if w.Code != http.StatusOK {
		t.Fatalf("event: expected 200, got %d", w.Code)
	}
	body := parseBody(t, w)
	if body["queued"] != true {
		t.Fatal("Expected toast queued while unfocused")
	}
	toastID := body["toast"].(map[string]any)["id"].(string)

	w = doJSON(router, "GET", base+"/notifications", nil)
	body = parseBody(t, w)
	if len(body["toasts"].([]any)) != 1 || body["unread"].(float64) != 1 {
		t.Errorf("Expected 1 toast and unread 1, got %s", w.Body.String())
	}

	// Dismiss
	w = doJSON(router, "POST", base+"/notifications/"+toastID+"/dismiss", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dismiss: expected 200, got %d", w.Code)
	}
	w = doJSON(router, "POST", base+"/notifications/"+toastID+"/dismiss", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a dismissed toast, got %d", w.Code)
	}

	// Focus suppresses new toasts and clears unread
	w = doJSON(router, "POST", base+"/focus", gin.H{"focused": true})
	if w.Code != http.StatusOK {
		t.Fatalf("focus: expected 200, got %d", w.Code)
	}
	w = doJSON(router, "POST", base+"/events", gin.H{"sender": "Provider", "body": "hello"})
	if parseBody(t, w)["queued"] != false {
		t.Error("Expected no toast while focused")
	}
	w = doJSON(router, "GET", base+"/notifications", nil)
	if parseBody(t, w)["unread"].(float64) != 0 {
		t.Error("Expected unread cleared by focus")
	}
}
