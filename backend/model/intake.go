package model

import (
	"time"
)

// Step identifies a wizard screen. Steps advance in the order declared
// below; quick_intake, template_selection and upload_processing are
// conditional (see wizard.Machine).
type Step string

const (
	StepWelcome           Step = "welcome"
	StepMediationType     Step = "mediation_type"
	StepContractType      Step = "contract_type"
	StepQuickIntake       Step = "quick_intake"
	StepTemplateSource    Step = "template_source"
	StepTemplateSelection Step = "template_selection"
	StepUploadProcessing  Step = "upload_processing"
	StepSummary           Step = "summary"
	StepCreating          Step = "creating"
	StepDone              Step = "done"
)

// MediationType captures how much of the contract is negotiable.
type MediationType string

const (
	MediationStraightToContract MediationType = "straight_to_contract"
	MediationPartial            MediationType = "partial_mediation"
	MediationFull               MediationType = "full_mediation"
)

// ValidMediationType reports whether v is one of the three known choices.
func ValidMediationType(v MediationType) bool {
	switch v {
	case MediationStraightToContract, MediationPartial, MediationFull:
		return true
	}
	return false
}

// TemplateSource captures how the contract's starting content is obtained.
type TemplateSource string

const (
	SourceExistingTemplate TemplateSource = "existing_template"
	SourceModifiedTemplate TemplateSource = "modified_template"
	SourceUploaded         TemplateSource = "uploaded"
	SourceFromScratch      TemplateSource = "from_scratch"
)

// ValidTemplateSource reports whether v is one of the four known choices.
func ValidTemplateSource(v TemplateSource) bool {
	switch v {
	case SourceExistingTemplate, SourceModifiedTemplate, SourceUploaded, SourceFromScratch:
		return true
	}
	return false
}

// ContractType categories offered on the contract-type screen.
type ContractType string

const (
	ContractNDA              ContractType = "nda"
	ContractServiceAgreement ContractType = "service_agreement"
	ContractSupply           ContractType = "supply"
	ContractLicensing        ContractType = "licensing"
	ContractEmployment       ContractType = "employment"
	ContractPartnership      ContractType = "partnership"
	ContractCustom           ContractType = "custom"
)

// ValidContractType reports whether v is one of the known categories.
func ValidContractType(v ContractType) bool {
	switch v {
	case ContractNDA, ContractServiceAgreement, ContractSupply,
		ContractLicensing, ContractEmployment, ContractPartnership, ContractCustom:
		return true
	}
	return false
}

// MaxPriorityTags bounds the free-text priority list in the quick intake.
const MaxPriorityTags = 3

// QuickIntake is the optional deal-context questionnaire. Every field is
// independently optional; an empty struct is a valid (skipped) intake.
type QuickIntake struct {
	DealValueBracket   string   `json:"deal_value_bracket,omitempty"`
	ServiceCriticality string   `json:"service_criticality,omitempty"`
	TimelinePressure   string   `json:"timeline_pressure,omitempty"`
	BidderCount        string   `json:"bidder_count,omitempty"`
	BATNAStrength      string   `json:"batna_strength,omitempty"`
	PriorityTags       []string `json:"priority_tags,omitempty"`
}

// IsEmpty reports whether no quick-intake answer has been given.
func (q QuickIntake) IsEmpty() bool {
	return q.DealValueBracket == "" && q.ServiceCriticality == "" &&
		q.TimelinePressure == "" && q.BidderCount == "" &&
		q.BATNAStrength == "" && len(q.PriorityTags) == 0
}

// SelectedTemplate records the catalog entry chosen on the
// template-selection screen.
type SelectedTemplate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IntakeState holds every answer collected by the wizard so far. It is
// owned and mutated exclusively by the wizard state machine; other
// components read sub-fields or report changes back through callbacks.
type IntakeState struct {
	Step             Step              `json:"step"`
	MediationType    MediationType     `json:"mediation_type,omitempty"`
	ContractType     ContractType      `json:"contract_type,omitempty"`
	QuickIntake      QuickIntake       `json:"quick_intake"`
	TemplateSource   TemplateSource    `json:"template_source,omitempty"`
	SelectedTemplate *SelectedTemplate `json:"selected_template,omitempty"`
	UploadedDocument *UploadedDocument `json:"uploaded_document,omitempty"`
	TrainingMode     bool              `json:"training_mode"`
}

// Session wraps one wizard instance. TrainingMode is fixed at creation
// from the entry request and never changes afterwards.
type Session struct {
	ID        string      `json:"id"`
	Owner     string      `json:"owner"`
	Intake    IntakeState `json:"intake"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Template is a catalog entry returned by the workflow service.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Industry    string `json:"industry"`
	ClauseCount int    `json:"clauseCount"`
	IsDefault   bool   `json:"isDefault"`
}
