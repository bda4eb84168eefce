package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SpikeIreland/clarence-sub004/backend/config"
	"github.com/SpikeIreland/clarence-sub004/backend/model"
)

// WorkflowClient talks to the remote workflow service that performs
// document parsing, template retrieval and session creation. All calls
// are JSON over HTTP against the configured base URL.
type WorkflowClient struct {
	config     *config.WorkflowConfig
	httpClient *http.Client
}

func NewWorkflowClient(cfg *config.WorkflowConfig) *WorkflowClient {
	return &WorkflowClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// SubmitDocumentRequest hands extracted text plus intake context to the
// parse endpoint.
type SubmitDocumentRequest struct {
	Text           string               `json:"text"`
	ContractType   model.ContractType   `json:"contractType,omitempty"`
	MediationType  model.MediationType  `json:"mediationType,omitempty"`
	TemplateSource model.TemplateSource `json:"templateSource,omitempty"`
	TrainingMode   bool                 `json:"trainingMode"`
	FileName       string               `json:"fileName,omitempty"`
}

type SubmitDocumentResponse struct {
	Success    bool   `json:"success"`
	ContractID string `json:"contractId"`
	Error      string `json:"error,omitempty"`
}

type DocumentStatusResponse struct {
	Status model.DocumentStatus `json:"status"`
	Error  string               `json:"error,omitempty"`
}

// CreateSessionRequest finalizes the intake with the workflow service.
type CreateSessionRequest struct {
	MediationType  model.MediationType  `json:"mediationType"`
	ContractType   model.ContractType   `json:"contractType"`
	TemplateSource model.TemplateSource `json:"templateSource"`
	QuickIntake    model.QuickIntake    `json:"quickIntake"`
	TemplateID     string               `json:"templateId,omitempty"`
	ContractID     string               `json:"contractId,omitempty"`
	TrainingMode   bool                 `json:"trainingMode"`
	Pathway        string               `json:"pathway"`
}

type CreateSessionResponse struct {
	Success    bool   `json:"success"`
	SessionID  string `json:"sessionId"`
	ContractID string `json:"contractId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// FetchTemplates lists the available contract templates.
func (s *WorkflowClient) FetchTemplates(ctx context.Context) ([]model.Template, error) {
	body, err := s.doRequest(ctx, http.MethodGet, "/templates", nil)
	if err != nil {
		return nil, err
	}

	var templates []model.Template
	if err := json.Unmarshal(body, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse template catalog: %w", err)
	}
	return templates, nil
}

// SubmitDocument hands off extracted text and returns the contract id
// assigned by the parser.
func (s *WorkflowClient) SubmitDocument(ctx context.Context, req *SubmitDocumentRequest) (string, error) {
	body, err := s.doRequest(ctx, http.MethodPost, "/documents/parse", req)
	if err != nil {
		return "", err
	}

	var result SubmitDocumentResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse submission response: %w", err)
	}
	if !result.Success {
		return "", fmt.Errorf("workflow service rejected document: %s", result.Error)
	}
	if result.ContractID == "" {
		return "", fmt.Errorf("workflow service returned no contract id")
	}
	return result.ContractID, nil
}

// GetDocumentStatus checks parse progress for a submitted document.
func (s *WorkflowClient) GetDocumentStatus(ctx context.Context, contractID string) (*DocumentStatusResponse, error) {
	body, err := s.doRequest(ctx, http.MethodGet, "/documents/"+contractID+"/status", nil)
	if err != nil {
		return nil, err
	}

	var result DocumentStatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}
	return &result, nil
}

// CreateSession finalizes the intake and obtains the negotiation session.
func (s *WorkflowClient) CreateSession(ctx context.Context, req *CreateSessionRequest) (*CreateSessionResponse, error) {
	body, err := s.doRequest(ctx, http.MethodPost, "/sessions", req)
	if err != nil {
		return nil, err
	}

	var result CreateSessionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("workflow service rejected session: %s", result.Error)
	}
	if result.SessionID == "" {
		return nil, fmt.Errorf("workflow service returned no session id")
	}
	return &result, nil
}

func (s *WorkflowClient) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if s.config.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("workflow service returned %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
