package pathway

// TransitionDescriptor is the canned explanation shown before routing
// the user to the next workflow stage. Descriptors are selected, never
// constructed: one per routing bucket, keyed by the same pathway id that
// drives BuildDestination so copy and routing cannot diverge.
type TransitionDescriptor struct {
	ID          string   `json:"id"`
	OriginStage string   `json:"origin_stage"`
	TargetStage string   `json:"target_stage"`
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Bullets     []string `json:"bullets"`
	CTALabel    string   `json:"cta_label"`
}

var transitionByBucket = map[Bucket]TransitionDescriptor{
	BucketProviderInvitation: {
		ID:          "invite-provider",
		OriginStage: "Intake",
		TargetStage: "Provider Invitation",
		Title:       "Ready to invite your provider",
		Body:        "You picked a catalog template as-is, so the contract positions are pre-configured. The next step is inviting the provider to review and sign.",
		Bullets: []string{
			"Template positions are pre-configured",
			"No negotiation rounds are planned",
			"The provider receives the contract exactly as selected",
		},
		CTALabel: "Invite provider",
	},
	BucketContractPreparation: {
		ID:          "prepare-contract",
		OriginStage: "Intake",
		TargetStage: "Contract Preparation",
		Title:       "Let's prepare your contract",
		Body:        "Your contract content still needs shaping before it can go out. The preparation workspace lets you finish the document first.",
		Bullets: []string{
			"Review and complete the contract content",
			"Adjust clauses before anything is sent",
			"Invite the provider once the draft is ready",
		},
		CTALabel: "Open preparation",
	},
	BucketStrategicAssessment: {
		ID:          "assess-first",
		OriginStage: "Intake",
		TargetStage: "Strategic Assessment",
		Title:       "Assessment first",
		Body:        "Because parts of this contract will be negotiated, we run a strategic assessment of your position before the negotiation starts.",
		Bullets: []string{
			"Your leverage is scored from the deal context",
			"Negotiable clauses are identified up front",
			"The assessment shapes the negotiation strategy",
		},
		CTALabel: "Start assessment",
	},
}

// SelectTransition returns the descriptor for a pathway id.
func SelectTransition(id ID) (TransitionDescriptor, error) {
	bucket, err := BucketOf(id)
	if err != nil {
		return TransitionDescriptor{}, err
	}
	return transitionByBucket[bucket], nil
}
