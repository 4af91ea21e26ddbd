// ABOUTME: Read-only inspection handlers for robots verdicts and domain policies
// ABOUTME: Lets operators see why a URL would be blocked or how it will be paced

package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"content-fetch-api/api/dto/mappers"
	"content-fetch-api/api/dto/responses"
	"content-fetch-api/core/domain"
	"content-fetch-api/core/robots"
)

// RobotsInspector reports robots.txt verdicts
type RobotsInspector interface {
	Check(ctx context.Context, rawURL, userAgent string) (robots.Verdict, error)
}

// PolicySource reports the effective policy for a URL
type PolicySource interface {
	Policy(rawURL string) domain.DomainPolicy
}

// InspectHandler serves robots and policy lookups
type InspectHandler struct {
	robots   RobotsInspector
	policies PolicySource
}

// NewInspectHandler creates an inspect handler
func NewInspectHandler(robots RobotsInspector, policies PolicySource) *InspectHandler {
	return &InspectHandler{robots: robots, policies: policies}
}

// RegisterRoutes registers inspection routes
func (h *InspectHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "checkRobots",
		Method:      http.MethodGet,
		Path:        "/v1/robots",
		Summary:     "Check robots.txt",
		Description: "Reports whether robots.txt allows the URL for the given user agent",
		Tags:        []string{"Inspect"},
	}, h.Robots)

	huma.Register(api, huma.Operation{
		OperationID: "getPolicy",
		Method:      http.MethodGet,
		Path:        "/v1/policy",
		Summary:     "Get domain policy",
		Description: "Reports the effective fetch policy for the URL's registrable domain",
		Tags:        []string{"Inspect"},
	}, h.Policy)
}

// RobotsInput defines the input for the robots check
type RobotsInput struct {
	URL       string `query:"url" required:"true" doc:"Absolute URL to check"`
	UserAgent string `query:"user_agent" doc:"Agent to evaluate; defaults to the fetcher's own"`
}

// RobotsOutput defines the output for the robots check
type RobotsOutput struct {
	Body responses.RobotsResponse
}

// Robots handles GET /v1/robots
func (h *InspectHandler) Robots(ctx context.Context, input *RobotsInput) (*RobotsOutput, error) {
	v, err := h.robots.Check(ctx, input.URL, input.UserAgent)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid URL", err)
	}
	return &RobotsOutput{Body: mappers.ToRobotsResponse(v)}, nil
}

// PolicyInput defines the input for the policy lookup
type PolicyInput struct {
	URL string `query:"url" required:"true" doc:"Absolute URL whose domain policy is wanted"`
}

// PolicyOutput defines the output for the policy lookup
type PolicyOutput struct {
	Body responses.PolicyResponse
}

// Policy handles GET /v1/policy
func (h *InspectHandler) Policy(ctx context.Context, input *PolicyInput) (*PolicyOutput, error) {
	return &PolicyOutput{Body: mappers.ToPolicyResponse(h.policies.Policy(input.URL))}, nil
}
