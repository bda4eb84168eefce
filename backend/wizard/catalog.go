package wizard

import (
	"strings"

	"github.com/SpikeIreland/clarence-sub004/backend/model"
)

// contractKeywords maps a contract type to the tokens used to filter the
// template catalog. Matching is a case-insensitive substring test
// against both the template's category and its industry tag; the custom
// type disables filtering entirely.
var contractKeywords = map[model.ContractType][]string{
	model.ContractNDA:              {"nda", "confidential", "disclosure"},
	model.ContractServiceAgreement: {"service", "sla", "consulting"},
	model.ContractSupply:           {"supply", "procurement", "purchase"},
	model.ContractLicensing:        {"licens", "intellectual", "ip"},
	model.ContractEmployment:       {"employ", "staff", "hr"},
	model.ContractPartnership:      {"partner", "joint", "venture"},
}

// FilterTemplates narrows the catalog to templates matching the
// contract type. Custom contracts see the whole catalog.
func FilterTemplates(templates []model.Template, contractType model.ContractType) []model.Template {
	keywords, ok := contractKeywords[contractType]
	if !ok {
		return templates
	}

	var result []model.Template
	for _, tpl := range templates {
		category := strings.ToLower(tpl.Category)
		industry := strings.ToLower(tpl.Industry)
		for _, kw := range keywords {
			if strings.Contains(category, kw) || strings.Contains(industry, kw) {
				result = append(result, tpl)
				break
			}
		}
	}
	return result
}

// RecoveryOption is an alternative offered when template selection
// cannot proceed. The wizard never dead-ends on a missing catalog.
type RecoveryOption string

const (
	RecoverFromScratch   RecoveryOption = "build_from_scratch"
	RecoverBroadenSearch RecoveryOption = "broaden_search"
	RecoverSwitchUpload  RecoveryOption = "switch_to_upload"
)

// CatalogRecovery describes why template selection stalled and what the
// user can do instead.
type CatalogRecovery struct {
	Reason  string           `json:"reason"`
	Options []RecoveryOption `json:"options"`
}

func fetchFailedRecovery() *CatalogRecovery {
	return &CatalogRecovery{
		Reason: "The template catalog is unavailable right now.",
		Options: []RecoveryOption{
			RecoverFromScratch,
			RecoverSwitchUpload,
		},
	}
}

func noMatchesRecovery() *CatalogRecovery {
	return &CatalogRecovery{
		Reason: "No templates match this contract type.",
		Options: []RecoveryOption{
			RecoverBroadenSearch,
			RecoverFromScratch,
			RecoverSwitchUpload,
		},
	}
}
