package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rubentxu/hodei-pipelines/internal/channel"
	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

const defaultTimeout = 300 * time.Second

// buildDefinition constructs an ExecutionDefinition from a job's template
// and parameters: placeholders `{{.params.KEY}}`, `{{.job.name}}`,
// `{{.job.id}}` are substituted into command/script strings, and a
// `timeout` parameter accepting s/m/h suffixes is parsed, defaulting to
// 300s on absence or parse failure.
func buildDefinition(job *domain.Job, tmpl *domain.Template) domain.ExecutionDefinition {
	envVars := make(map[string]string)

	def := domain.ExecutionDefinition{
		EnvVars: envVars,
		Timeout: parseTimeout(job.Parameters["timeout"]),
	}

	switch {
	case tmpl != nil && tmpl.Shell != nil:
		def.Shell = &domain.ShellTask{
			Commands: substituteAll(tmpl.Shell.Commands, job),
			Env:      mergeEnv(tmpl.Shell.Env, job),
		}
	case tmpl != nil && tmpl.Script != nil:
		def.Script = &domain.ScriptTask{
			Body: substitute(tmpl.Script.Body, job),
			Env:  mergeEnv(tmpl.Script.Env, job),
		}
	default:
		// no template: a bare job may still carry an inline "command"
		// parameter, treated as a single-command shell task.
		if cmd, ok := job.Parameters["command"]; ok {
			def.Shell = &domain.ShellTask{
				Commands: []string{substitute(fmt.Sprintf("%v", cmd), job)},
				Env:      envVars,
			}
		}
	}

	return def
}

func mergeEnv(base map[string]string, job *domain.Job) map[string]string {
	env := make(map[string]string, len(base))
	for k, v := range base {
		env[k] = substitute(v, job)
	}
	return env
}

func substituteAll(commands []string, job *domain.Job) []string {
	out := make([]string, len(commands))
	for i, c := range commands {
		out[i] = substitute(c, job)
	}
	return out
}

// substitute replaces {{.params.KEY}}, {{.job.name}}, {{.job.id}} in s.
// Parameters of primitive type are coerced to strings.
func substitute(s string, job *domain.Job) string {
	s = strings.ReplaceAll(s, "{{.job.name}}", job.Name)
	s = strings.ReplaceAll(s, "{{.job.id}}", job.ID)
	for k, v := range job.Parameters {
		placeholder := "{{.params." + k + "}}"
		s = strings.ReplaceAll(s, placeholder, fmt.Sprintf("%v", v))
	}
	return s
}

func parseTimeout(raw interface{}) time.Duration {
	s, ok := raw.(string)
	if !ok || s == "" {
		return defaultTimeout
	}

	unit := s[len(s)-1:]
	switch unit {
	case "s", "m", "h":
		numPart := s[:len(s)-1]
		n, err := strconv.ParseFloat(numPart, 64)
		if err != nil {
			return defaultTimeout
		}
		switch unit {
		case "s":
			return time.Duration(n * float64(time.Second))
		case "m":
			return time.Duration(n * float64(time.Minute))
		default:
			return time.Duration(n * float64(time.Hour))
		}
	default:
		// No recognized unit suffix: treat the whole string as a bare
		// number of seconds ("42" -> 42s).
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return defaultTimeout
		}
		return time.Duration(n * float64(time.Second))
	}
}

// toWireDefinition converts the domain definition into its wire form for
// transmission over the Worker Channel.
func toWireDefinition(def domain.ExecutionDefinition) channel.WireDefinition {
	wd := channel.WireDefinition{EnvVars: def.EnvVars, TimeoutSeconds: int64(def.Timeout.Seconds())}
	if def.Shell != nil {
		wd.Shell = &channel.WireShell{Commands: def.Shell.Commands}
	}
	if def.Script != nil {
		wd.Script = &channel.WireScript{ScriptContent: def.Script.Body}
	}
	return wd
}
