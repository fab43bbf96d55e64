package processing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/types"
)

// ErrUnknownTaskType is returned for tasks no processor is registered for.
var ErrUnknownTaskType = errors.New("no processor registered for task type")

// Dispatcher maps job names to processors.
type Dispatcher struct {
	processors map[string]Processor
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{processors: map[string]Processor{}}
}

// Register adds p under its job name. Registering a name twice is a wiring
// bug and panics.
func (d *Dispatcher) Register(p Processor) {
	name := p.TaskType()
	if _, dup := d.processors[name]; dup {
		panic("processing: duplicate processor for " + name)
	}
	d.processors[name] = p
}

func (d *Dispatcher) Get(task *types.Task) (Processor, error) {
	if p, ok := d.processors[task.TaskType]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, task.TaskType)
}

// TaskTypes lists the registered job names, sorted.
func (d *Dispatcher) TaskTypes() []string {
	names := make([]string, 0, len(d.processors))
	for name := range d.processors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
