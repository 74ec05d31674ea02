package handlers

import (
	"context"
	"net/http"
	"runtime"

	"github.com/danielgtaylor/huma/v2"
)

// VersionHandler reports build information.
type VersionHandler struct {
	version string
	commit  string
	date    string
}

// NewVersionHandler creates a new version handler.
func NewVersionHandler(version, commit, date string) *VersionHandler {
	if version == "" {
		version = "dev"
	}
	return &VersionHandler{
		version: version,
		commit:  commit,
		date:    date,
	}
}

// VersionOutput is the response for the version endpoint.
type VersionOutput struct {
	Body struct {
		Version   string `json:"version"`
		Commit    string `json:"commit,omitempty"`
		BuildDate string `json:"build_date,omitempty"`
		GoVersion string `json:"go_version"`
		Platform  string `json:"platform"`
	}
}

// Register registers the version route with the API.
func (h *VersionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/v1/version",
		Summary:     "Get version",
		Tags:        []string{"System"},
	}, h.GetVersion)
}

// GetVersion handles GET /api/v1/version.
func (h *VersionHandler) GetVersion(ctx context.Context, input *struct{}) (*VersionOutput, error) {
	resp := &VersionOutput{}
	resp.Body.Version = h.version
	resp.Body.Commit = h.commit
	resp.Body.BuildDate = h.date
	resp.Body.GoVersion = runtime.Version()
	resp.Body.Platform = runtime.GOOS + "/" + runtime.GOARCH
	return resp, nil
}
