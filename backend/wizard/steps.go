package wizard

import (
	"github.com/SpikeIreland/clarence-sub004/backend/model"
)

// forwardOrder is the nominal step sequence. Conditional steps
// (quick_intake, template_selection, upload_processing) may be skipped
// depending on earlier answers, but never reordered.
var forwardOrder = []model.Step{
	model.StepWelcome,
	model.StepMediationType,
	model.StepContractType,
	model.StepQuickIntake,
	model.StepTemplateSource,
	model.StepTemplateSelection,
	model.StepUploadProcessing,
	model.StepSummary,
	model.StepCreating,
	model.StepDone,
}

func stepIndex(step model.Step) int {
	for i, s := range forwardOrder {
		if s == step {
			return i
		}
	}
	return -1
}

// skipsQuickIntake reports whether the quick-intake questionnaire is
// bypassed. Straight-to-contract deals are assumed low-complexity and
// not worth profiling; training runs skip the questionnaire too so the
// walkthrough stays short.
func skipsQuickIntake(intake *model.IntakeState) bool {
	return intake.MediationType == model.MediationStraightToContract || intake.TrainingMode
}

// StepPrompt is the message and options surfaced on one wizard screen.
type StepPrompt struct {
	Message string   `json:"message"`
	Options []string `json:"options,omitempty"`
}

var prompts = map[model.Step]StepPrompt{
	model.StepWelcome: {
		Message: "Welcome! I'll help you set up your contract negotiation. This takes about two minutes.",
	},
	model.StepMediationType: {
		Message: "How much of this contract do you expect to negotiate?",
		Options: []string{
			string(model.MediationStraightToContract),
			string(model.MediationPartial),
			string(model.MediationFull),
		},
	},
	model.StepContractType: {
		Message: "What kind of contract is this?",
		Options: []string{
			string(model.ContractNDA),
			string(model.ContractServiceAgreement),
			string(model.ContractSupply),
			string(model.ContractLicensing),
			string(model.ContractEmployment),
			string(model.ContractPartnership),
			string(model.ContractCustom),
		},
	},
	model.StepQuickIntake: {
		Message: "A few optional questions about the deal help us assess your position. Answer any, or skip.",
	},
	model.StepTemplateSource: {
		Message: "Where should the contract content come from?",
		Options: []string{
			string(model.SourceExistingTemplate),
			string(model.SourceModifiedTemplate),
			string(model.SourceUploaded),
			string(model.SourceFromScratch),
		},
	},
	model.StepTemplateSelection: {
		Message: "Pick a template that matches your contract.",
	},
	model.StepUploadProcessing: {
		Message: "Upload your contract document (PDF, DOCX or plain text, up to 10 MiB).",
	},
	model.StepSummary: {
		Message: "Here's what you've told me. Confirm to create the negotiation session.",
	},
	model.StepCreating: {
		Message: "Creating your session…",
	},
}

var trainingPrompts = map[model.Step]StepPrompt{
	model.StepWelcome: {
		Message: "Training mode: we'll walk through a practice negotiation setup. Nothing here is binding.",
	},
	model.StepSummary: {
		Message: "Practice run complete. Confirm to see where a real session would go next.",
	},
}

// PromptFor returns the copy for a step, preferring the training variant
// when one exists and the wizard runs in training mode.
func PromptFor(step model.Step, trainingMode bool) StepPrompt {
	if trainingMode {
		if p, ok := trainingPrompts[step]; ok {
			return p
		}
	}
	return prompts[step]
}
