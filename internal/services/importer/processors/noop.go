package processors

import (
	"context"

	"debtster_routes/internal/ports"
)

type NoopProcessor struct{}

func (NoopProcessor) Type() string { return "noop" }

func (NoopProcessor) ProcessBatch(ctx context.Context, batch []map[string]string) error {
	return nil
}

// DefaultRegistry wires every processor to the same store and item log.
func DefaultRegistry(base *BaseProcessor) map[string]ports.Processor {
	reg := map[string]ports.Processor{
		"noop": NoopProcessor{},
	}
	for _, p := range []ports.Processor{
		&ClientsProcessor{BaseProcessor: base},
		&DebtsProcessor{BaseProcessor: base},
		&RouteStopsProcessor{BaseProcessor: base},
		&AssignmentsProcessor{BaseProcessor: base},
	} {
		reg[p.Type()] = p
	}
	return reg
}
