package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/guidarr/guidarr/pkg/httpclient"
)

// CircuitBreakerHandler exposes the state of the HTTP client circuit
// breakers guarding EPG providers and icon hosts.
type CircuitBreakerHandler struct {
	manager *httpclient.CircuitBreakerManager
}

// NewCircuitBreakerHandler creates a new circuit breaker handler.
func NewCircuitBreakerHandler(manager *httpclient.CircuitBreakerManager) *CircuitBreakerHandler {
	if manager == nil {
		manager = httpclient.DefaultManager
	}
	return &CircuitBreakerHandler{
		manager: manager,
	}
}

// CircuitBreakerProfile represents a circuit breaker configuration profile.
type CircuitBreakerProfile struct {
	FailureThreshold      int    `json:"failure_threshold"`
	ResetTimeout          string `json:"reset_timeout"`
	HalfOpenMax           int    `json:"half_open_max"`
	AcceptableStatusCodes string `json:"acceptable_status_codes,omitempty"`
}

// CircuitBreakerState represents the current state of one breaker.
type CircuitBreakerState struct {
	Name             string    `json:"name"`
	State            string    `json:"state"`
	Failures         int       `json:"failures"`
	Successes        int       `json:"successes"`
	ConsecutiveFails int       `json:"consecutive_fails"`
	TotalRequests    int64     `json:"total_requests"`
	TotalSuccesses   int64     `json:"total_successes"`
	TotalFailures    int64     `json:"total_failures"`
	LastFailure      time.Time `json:"last_failure,omitempty"`
}

// ListCircuitBreakersOutput is the response for listing breakers.
type ListCircuitBreakersOutput struct {
	Body struct {
		Breakers []CircuitBreakerState `json:"breakers"`
		Total    int                   `json:"total"`
	}
}

// CircuitBreakerConfigOutput is the response for reading breaker config.
type CircuitBreakerConfigOutput struct {
	Body struct {
		Global   CircuitBreakerProfile            `json:"global"`
		Profiles map[string]CircuitBreakerProfile `json:"profiles"`
	}
}

// UpdateCircuitBreakerConfigInput carries runtime config updates.
type UpdateCircuitBreakerConfigInput struct {
	Body struct {
		Global   *CircuitBreakerProfile           `json:"global,omitempty"`
		Profiles map[string]CircuitBreakerProfile `json:"profiles,omitempty"`
	}
}

// UpdateCircuitBreakerConfigOutput acknowledges a config update.
type UpdateCircuitBreakerConfigOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

// ResetCircuitBreakerInput identifies a breaker to reset.
type ResetCircuitBreakerInput struct {
	Name string `path:"name" required:"true" doc:"Circuit breaker name"`
}

// ResetCircuitBreakerOutput acknowledges a breaker reset.
type ResetCircuitBreakerOutput struct {
	Body struct {
		Name     string `json:"name"`
		NewState string `json:"new_state"`
	}
}

// ResetAllCircuitBreakersOutput acknowledges a reset of every breaker.
type ResetAllCircuitBreakersOutput struct {
	Body struct {
		Count int `json:"count"`
	}
}

// Register registers the circuit breaker routes with the API.
func (h *CircuitBreakerHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-circuit-breakers",
		Method:      http.MethodGet,
		Path:        "/api/v1/system/circuit-breakers",
		Summary:     "List circuit breakers",
		Description: "Returns the current state of every upstream circuit breaker.",
		Tags:        []string{"System"},
	}, h.ListCircuitBreakers)

	huma.Register(api, huma.Operation{
		OperationID: "get-circuit-breaker-config",
		Method:      http.MethodGet,
		Path:        "/api/v1/system/circuit-breakers/config",
		Summary:     "Get circuit breaker configuration",
		Tags:        []string{"System"},
	}, h.GetConfig)

	huma.Register(api, huma.Operation{
		OperationID: "update-circuit-breaker-config",
		Method:      http.MethodPut,
		Path:        "/api/v1/system/circuit-breakers/config",
		Summary:     "Update circuit breaker configuration",
		Description: "Applies configuration changes to running circuit breakers.",
		Tags:        []string{"System"},
	}, h.UpdateConfig)

	huma.Register(api, huma.Operation{
		OperationID: "reset-circuit-breaker",
		Method:      http.MethodPost,
		Path:        "/api/v1/system/circuit-breakers/{name}/reset",
		Summary:     "Reset a circuit breaker",
		Tags:        []string{"System"},
	}, h.ResetCircuitBreaker)

	huma.Register(api, huma.Operation{
		OperationID: "reset-all-circuit-breakers",
		Method:      http.MethodPost,
		Path:        "/api/v1/system/circuit-breakers/reset",
		Summary:     "Reset all circuit breakers",
		Tags:        []string{"System"},
	}, h.ResetAllCircuitBreakers)
}

// ListCircuitBreakers handles GET /api/v1/system/circuit-breakers.
func (h *CircuitBreakerHandler) ListCircuitBreakers(ctx context.Context, input *struct{}) (*ListCircuitBreakersOutput, error) {
	allStats := h.manager.GetAllStats()

	breakers := make([]CircuitBreakerState, 0, len(allStats))
	for name, stats := range allStats {
		breakers = append(breakers, CircuitBreakerState{
			Name:             name,
			State:            stats.State.String(),
			Failures:         stats.Failures,
			Successes:        stats.Successes,
			ConsecutiveFails: stats.ConsecutiveFailures,
			TotalRequests:    stats.TotalRequests,
			TotalSuccesses:   stats.TotalSuccesses,
			TotalFailures:    stats.TotalFailures,
			LastFailure:      stats.LastFailure,
		})
	}
	sort.Slice(breakers, func(i, j int) bool {
		return breakers[i].Name < breakers[j].Name
	})

	resp := &ListCircuitBreakersOutput{}
	resp.Body.Breakers = breakers
	resp.Body.Total = len(breakers)
	return resp, nil
}

// GetConfig handles GET /api/v1/system/circuit-breakers/config.
func (h *CircuitBreakerHandler) GetConfig(ctx context.Context, input *struct{}) (*CircuitBreakerConfigOutput, error) {
	cfg := h.manager.GetConfig()

	resp := &CircuitBreakerConfigOutput{}
	resp.Body.Global = profileFromConfig(cfg.Global)
	resp.Body.Profiles = make(map[string]CircuitBreakerProfile, len(cfg.Profiles))
	for name, profile := range cfg.Profiles {
		resp.Body.Profiles[name] = profileFromConfig(profile)
	}
	return resp, nil
}

// UpdateConfig handles PUT /api/v1/system/circuit-breakers/config.
func (h *CircuitBreakerHandler) UpdateConfig(ctx context.Context, input *UpdateCircuitBreakerConfigInput) (*UpdateCircuitBreakerConfigOutput, error) {
	if input.Body.Global != nil {
		globalCfg, err := configFromProfile(*input.Body.Global)
		if err != nil {
			return nil, err
		}
		h.manager.UpdateGlobalConfig(globalCfg)
	}

	for name, profile := range input.Body.Profiles {
		cfg, err := configFromProfile(profile)
		if err != nil {
			return nil, err
		}
		h.manager.UpdateServiceConfig(name, cfg)
	}

	resp := &UpdateCircuitBreakerConfigOutput{}
	resp.Body.Message = "circuit breaker configuration updated"
	return resp, nil
}

// ResetCircuitBreaker handles POST /api/v1/system/circuit-breakers/{name}/reset.
func (h *CircuitBreakerHandler) ResetCircuitBreaker(ctx context.Context, input *ResetCircuitBreakerInput) (*ResetCircuitBreakerOutput, error) {
	if !h.manager.ResetBreaker(input.Name) {
		return nil, huma.Error404NotFound("circuit breaker not found: " + input.Name)
	}

	newState := "closed"
	if breaker := h.manager.Get(input.Name); breaker != nil {
		newState = breaker.State().String()
	}

	resp := &ResetCircuitBreakerOutput{}
	resp.Body.Name = input.Name
	resp.Body.NewState = newState
	return resp, nil
}

// ResetAllCircuitBreakers handles POST /api/v1/system/circuit-breakers/reset.
func (h *CircuitBreakerHandler) ResetAllCircuitBreakers(ctx context.Context, input *struct{}) (*ResetAllCircuitBreakersOutput, error) {
	count := h.manager.ResetAll()

	resp := &ResetAllCircuitBreakersOutput{}
	resp.Body.Count = count
	return resp, nil
}

// profileFromConfig converts internal config to the API profile shape.
func profileFromConfig(cfg httpclient.CircuitBreakerProfileConfig) CircuitBreakerProfile {
	acceptableCodes := ""
	if cfg.AcceptableStatusCodes != nil {
		acceptableCodes = cfg.AcceptableStatusCodes.String()
	}
	return CircuitBreakerProfile{
		FailureThreshold:      cfg.FailureThreshold,
		ResetTimeout:          cfg.ResetTimeout.String(),
		HalfOpenMax:           cfg.HalfOpenMax,
		AcceptableStatusCodes: acceptableCodes,
	}
}

// configFromProfile converts the API profile shape to internal config.
func configFromProfile(p CircuitBreakerProfile) (httpclient.CircuitBreakerProfileConfig, error) {
	cfg := httpclient.CircuitBreakerProfileConfig{
		FailureThreshold: p.FailureThreshold,
		HalfOpenMax:      p.HalfOpenMax,
	}

	if p.ResetTimeout != "" {
		d, err := time.ParseDuration(p.ResetTimeout)
		if err != nil {
			return cfg, huma.Error400BadRequest("invalid reset_timeout format: " + err.Error())
		}
		cfg.ResetTimeout = d
	}

	if p.AcceptableStatusCodes != "" {
		codes, err := httpclient.ParseStatusCodes(p.AcceptableStatusCodes)
		if err != nil {
			return cfg, huma.Error400BadRequest("invalid acceptable_status_codes: " + err.Error())
		}
		cfg.AcceptableStatusCodes = codes
	}

	return cfg, nil
}
