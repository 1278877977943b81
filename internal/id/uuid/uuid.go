// Package uuid provides task ID generation helpers.
package uuid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// taskIDPrefix keeps task ids self-describing in logs and file names.
const taskIDPrefix = "crawler_task_"

// Generator creates opaque crawl task identifiers.
type Generator struct{}

// New creates a Generator.
func New() *Generator {
	return &Generator{}
}

// NewTaskID returns a task id of the form crawler_task_<12 hex chars>.
func (Generator) NewTaskID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate task uuid: %w", err)
	}
	hex := strings.ReplaceAll(id.String(), "-", "")
	return taskIDPrefix + hex[:12], nil
}
