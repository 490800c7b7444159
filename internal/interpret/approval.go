package interpret

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/stoewer/go-strcase"

	"github.com/missionctl/missionctl/internal/agent"
)

// RiskLevel grades how dangerous a proposed action is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// NormalizeRisk coerces any string to a valid risk level; anything outside
// the set becomes medium.
func NormalizeRisk(s string) RiskLevel {
	switch RiskLevel(s) {
	case RiskLow, RiskMedium, RiskHigh:
		return RiskLevel(s)
	default:
		return RiskMedium
	}
}

// Decision is the agent's judgment on whether an action needs a human sign
// off before it runs.
type Decision struct {
	RequiresApproval bool      `json:"requiresApproval"`
	Reason           string    `json:"reason"`
	RiskLevel        RiskLevel `json:"riskLevel"`
	Category         string    `json:"category"`
}

// ApprovalClassifier asks the agent whether an action requires approval.
// Unlike the draft parsers it propagates failures: an approval decision must
// never be silently defaulted to "no approval needed".
type ApprovalClassifier struct {
	agent Invoker
	log   logr.Logger
}

// NewApprovalClassifier creates an approval classifier.
func NewApprovalClassifier(inv Invoker, log logr.Logger) *ApprovalClassifier {
	return &ApprovalClassifier{
		agent: inv,
		log:   log.WithName("approval-classifier"),
	}
}

// Check classifies the risk of an action. The returned error, when non-nil,
// is a *ClassifiedError.
func (c *ApprovalClassifier) Check(ctx context.Context, action string, actionCtx map[string]interface{}) (*Decision, error) {
	if action == "" {
		return nil, agent.NewError(agent.KindUnknown, "action must not be empty", nil)
	}

	env, err := c.agent.Invoke(ctx, c.instruction(action, actionCtx), agent.Options{})
	if err != nil {
		c.log.Error(err, "approval check invocation failed", "action", action)
		return nil, err
	}
	payload, err := agent.Extract(env)
	if err != nil {
		c.log.Error(err, "approval check extraction failed", "action", action)
		return nil, err
	}
	return validateDecision(payload)
}

func validateDecision(payload map[string]interface{}) (*Decision, error) {
	// requiresApproval has to be an explicit boolean in the reply. Treating
	// a missing field as false would turn a malformed reply into an
	// automatic green light.
	requires, ok := payload["requiresApproval"].(bool)
	if !ok {
		return nil, agent.NewError(agent.KindMalformedResponse,
			"approval decision is missing requiresApproval", nil)
	}

	category := stringField(payload, "category")
	if category == "" {
		category = "custom"
	}

	return &Decision{
		RequiresApproval: requires,
		Reason:           stringField(payload, "reason"),
		RiskLevel:        NormalizeRisk(stringField(payload, "riskLevel")),
		Category:         strcase.SnakeCase(category),
	}, nil
}

func (c *ApprovalClassifier) instruction(action string, actionCtx map[string]interface{}) string {
	ctxJSON, err := json.MarshalIndent(actionCtx, "", "  ")
	if err != nil {
		ctxJSON = []byte("{}")
	}
	return fmt.Sprintf(`Analyze if this action requires approval.

Action: %s
Context: %s

Consider:
- Risk level (file deletion, API calls, deployments)
- Sensitivity of data
- Reversibility of action
- User preferences in approval-rules skill (if available)

Return ONLY a JSON object:
{
  "requiresApproval": true|false,
  "reason": "why it requires approval or why not",
  "riskLevel": "low|medium|high",
  "category": "file_delete|api_call|deployment|data_change|custom"
}

Return ONLY the JSON object, no additional text.`, action, ctxJSON)
}
