package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

type PushTrigger struct {
	Branches []string `yaml:"branches,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
}

type Trigger struct {
	Push        PushTrigger `yaml:"push,omitempty"`
	PullRequest *struct{}   `yaml:"pull_request,omitempty"`
}

type Args map[string]interface{}

type Step struct {
	Name string            `yaml:"name,omitempty"`
	If   string            `yaml:"if,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	ID   string            `yaml:"id,omitempty"`
	Run  string            `yaml:"run,omitempty"`
	With Args              `yaml:"with,omitempty"`
	Env  map[string]string `yaml:"env,omitempty"`
}

type Service struct {
	Image   string            `yaml:"image"`
	Env     map[string]string `yaml:"env,omitempty"`
	Ports   []string          `yaml:"ports,omitempty"`
	Options string            `yaml:"options,omitempty"`
}

type Strategy struct {
	Matrix map[string][]string `yaml:"matrix"`
}

type Job struct {
	RunsOn   string             `yaml:"runs-on"`
	Needs    []string           `yaml:"needs,omitempty"`
	Strategy *Strategy          `yaml:"strategy,omitempty"`
	Services map[string]Service `yaml:"services,omitempty"`
	Steps    []Step             `yaml:"steps"`
}

type Workflow struct {
	Name string         `yaml:"name"`
	On   Trigger        `yaml:"on,omitempty"`
	Jobs map[string]Job `yaml:"jobs"`
}

const goVersion = "1.21"

func setupGo() []Step {
	return []Step{{
		Name: "Checkout",
		Uses: "actions/checkout@v4",
	}, {
		Name: "Set up Go",
		Uses: "actions/setup-go@v5",
		With: Args{"go-version": goVersion},
	}}
}

// JobTest runs the unit tests against a throwaway Postgres so the
// Postgres-backed device tests are not skipped.
func JobTest() Job {
	return Job{
		RunsOn: "ubuntu-latest",
		Services: map[string]Service{
			"postgres": {
				Image: "postgres:15",
				Env:   map[string]string{"POSTGRES_PASSWORD": "postgres"},
				Ports: []string{"5432:5432"},
				Options: "--health-cmd pg_isready --health-interval 10s " +
					"--health-timeout 5s --health-retries 5",
			},
		},
		Steps: append(setupGo(), Step{
			Name: "Vet",
			Run:  "go vet ./...",
		}, Step{
			Name: "Test",
			Run:  "go test -race ./...",
			Env: map[string]string{
				"PG_HOST": "localhost",
				"PG_PORT": "5432",
				"PG_USER": "postgres",
				"PG_PASS": "postgres",
			},
		}),
	}
}

// JobBuild cross-compiles the `extentfs` binary for each target platform
// and uploads it as a workflow artifact.
func JobBuild(target string, platforms ...string) Job {
	return Job{
		RunsOn:   "ubuntu-latest",
		Needs:    []string{"test"},
		Strategy: &Strategy{Matrix: map[string][]string{"platform": platforms}},
		Steps: append(setupGo(), Step{
			Name: "Build",
			Run: fmt.Sprintf(`GOOS=${PLATFORM%%/*}
GOARCH=${PLATFORM#*/}
export GOOS GOARCH
go build -o dist/%[1]s-${GOOS}-${GOARCH} ./cmd/%[1]s`, target),
			Env: map[string]string{"PLATFORM": "${{ matrix.platform }}"},
		}, Step{
			Name: "Upload",
			If:   "startsWith(github.ref, 'refs/tags/')",
			Uses: "actions/upload-artifact@v4",
			With: Args{
				"name": fmt.Sprintf("%s-${{ strategy.job-index }}", target),
				"path": "dist/",
			},
		}),
	}
}

func WorkflowCI(target string) Workflow {
	return Workflow{
		Name: "ci",
		On: Trigger{
			Push: PushTrigger{
				Branches: []string{"*"},
				Tags:     []string{"*"},
			},
			PullRequest: &struct{}{},
		},
		Jobs: map[string]Job{
			"test": JobTest(),
			"build": JobBuild(
				target,
				"linux/amd64",
				"linux/arm64",
				"darwin/arm64",
			),
		},
	}
}

func MarshalToWriter(w io.Writer, v interface{}) error {
	yamlEncoder := yaml.NewEncoder(w)
	defer yamlEncoder.Close()
	if err := yamlEncoder.Encode(v); err != nil {
		return fmt.Errorf("marshaling to YAML: %w", err)
	}
	return nil
}

func main() {
	if err := MarshalToWriter(os.Stdout, WorkflowCI("extentfs")); err != nil {
		log.Fatalf("marshaling ci workflow: %v", err)
	}
}
