package core

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

// Static application metadata served by /, /health and /api/info.
const (
	// healthServiceName is fixed; SERVICE_NAME only affects logs and the page footer.
	healthServiceName = "aws-devops-demo"

	appName        = "AWS DevOps Demo"
	appVersion     = "1.0.0"
	appDescription = "Python web app with Secrets Manager and CI/CD"
	greeting       = "Welcome to the AWS DevOps Demo!"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type indexPage struct {
	Title        string
	Greeting     string
	SecretMasked string
	Service      string
	Version      string
}

// infoResponse is the /api/info payload.
type infoResponse struct {
	App         string `json:"app"`
	Version     string `json:"version"`
	Description string `json:"description"`
	// SecretRetrieved is always true, including when the lookup failed.
	// Clients detect failure from the placeholder in SecretMasked.
	SecretRetrieved bool   `json:"secret_retrieved"`
	SecretMasked    string `json:"secret_masked"`
}

// HandleIndex renders the home page with the masked secret. A failed lookup
// still renders the page (status 200) with the failure placeholder.
func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	result := s.Secrets.Retrieve(r.Context())

	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, indexPage{
		Title:        appName,
		Greeting:     greeting,
		SecretMasked: result.Masked,
		Service:      s.Config.Service,
		Version:      appVersion,
	})
	if err != nil {
		Error(w, r, err)
		return
	}

	HTML(w, http.StatusOK, &buf)
}

// HandleInfo returns static app metadata plus the masked secret.
func (s *Server) HandleInfo(w http.ResponseWriter, r *http.Request) {
	result := s.Secrets.Retrieve(r.Context())

	JSON(w, r, http.StatusOK, infoResponse{
		App:             appName,
		Version:         appVersion,
		Description:     appDescription,
		SecretRetrieved: true,
		SecretMasked:    result.Masked,
	})
}

// HandleVersion returns the linker-injected build metadata.
func (s *Server) HandleVersion(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, s.Config.Build)
}
