// Package pathway derives the negotiation pathway from the two intake
// choices and maps it to a destination route and an explanatory
// transition. Everything here is a pure lookup; training mode never
// reaches this package.
package pathway

import (
	"fmt"
	"net/url"

	"github.com/SpikeIreland/clarence-sub004/backend/model"
)

// ID is a discrete pathway identifier, the product of the mediation
// choice and the template source: a mediation prefix and a source suffix
// joined by a dash, e.g. "FM-EXISTING". Twelve values exist.
type ID string

var mediationPrefix = map[model.MediationType]string{
	model.MediationStraightToContract: "STC",
	model.MediationPartial:            "PM",
	model.MediationFull:               "FM",
}

var sourceSuffix = map[model.TemplateSource]string{
	model.SourceExistingTemplate: "EXISTING",
	model.SourceModifiedTemplate: "MODIFIED",
	model.SourceUploaded:         "UPLOADED",
	model.SourceFromScratch:      "SCRATCH",
}

// Resolve maps the two intake choices to a pathway id. Both inputs must
// be set; calling with an unset or unknown value is a programming error
// upstream and is reported as such.
func Resolve(mediation model.MediationType, source model.TemplateSource) (ID, error) {
	prefix, ok := mediationPrefix[mediation]
	if !ok {
		return "", fmt.Errorf("unknown mediation type %q", mediation)
	}
	suffix, ok := sourceSuffix[source]
	if !ok {
		return "", fmt.Errorf("unknown template source %q", source)
	}
	return ID(prefix + "-" + suffix), nil
}

// Bucket groups the twelve pathways into the three routing outcomes.
type Bucket int

const (
	// BucketProviderInvitation: straight-to-contract from an unmodified
	// catalog template. Nothing to negotiate or prepare; invite the
	// provider directly.
	BucketProviderInvitation Bucket = iota
	// BucketContractPreparation: straight-to-contract but the content
	// still needs work (modified template, upload, or from scratch).
	BucketContractPreparation
	// BucketStrategicAssessment: any pathway with mediation runs a
	// leverage assessment before the contract stage.
	BucketStrategicAssessment
)

var bucketByID = map[ID]Bucket{
	"STC-EXISTING": BucketProviderInvitation,
	"STC-MODIFIED": BucketContractPreparation,
	"STC-UPLOADED": BucketContractPreparation,
	"STC-SCRATCH":  BucketContractPreparation,
	"PM-EXISTING":  BucketStrategicAssessment,
	"PM-MODIFIED":  BucketStrategicAssessment,
	"PM-UPLOADED":  BucketStrategicAssessment,
	"PM-SCRATCH":   BucketStrategicAssessment,
	"FM-EXISTING":  BucketStrategicAssessment,
	"FM-MODIFIED":  BucketStrategicAssessment,
	"FM-UPLOADED":  BucketStrategicAssessment,
	"FM-SCRATCH":   BucketStrategicAssessment,
}

// BucketOf returns the routing bucket for a pathway id.
func BucketOf(id ID) (Bucket, error) {
	b, ok := bucketByID[id]
	if !ok {
		return 0, fmt.Errorf("unknown pathway id %q", id)
	}
	return b, nil
}

var bucketRoute = map[Bucket]string{
	BucketProviderInvitation:  "/provider-invitation",
	BucketContractPreparation: "/contract-preparation",
	BucketStrategicAssessment: "/strategic-assessment",
}

// BuildDestination returns the post-creation route for a pathway. The
// session and pathway ids always travel as query parameters; the
// contract id only when one exists (selected template, uploaded
// document, or the creation response).
func BuildDestination(id ID, sessionID, contractID string) (string, error) {
	bucket, err := BucketOf(id)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("session", sessionID)
	q.Set("pathway", string(id))
	if contractID != "" {
		q.Set("contract", contractID)
	}
	return bucketRoute[bucket] + "?" + q.Encode(), nil
}
