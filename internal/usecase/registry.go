package usecase

import (
	"context"
	"fmt"
	"sort"

	"MemberSync/internal/batch"
	"MemberSync/internal/ports"
)

// Spec describes a runnable job. Jobs that read a line-delimited source set TakesInput.
type Spec struct {
	Name        string
	Description string
	TakesInput  bool
	Run         func(ctx context.Context, input string, sink ports.ProgressSink) (*batch.Report, error)
}

// Registry keeps a mapping from job names to their specs.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: map[string]Spec{}}
}

// Register adds or replaces a job.
func (r *Registry) Register(spec Spec) {
	if r.specs == nil {
		r.specs = map[string]Spec{}
	}
	r.specs[spec.Name] = spec
}

// Resolve returns a job by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Spec, error) {
	if spec, ok := r.specs[name]; ok {
		return spec, nil
	}
	return Spec{}, fmt.Errorf("job %s is not registered", name)
}

// Specs lists the registered jobs sorted by name.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// Registry exposes every job of j.
func (j *Jobs) Registry() *Registry {
	withoutInput := func(run func(context.Context, ports.ProgressSink) (*batch.Report, error)) func(context.Context, string, ports.ProgressSink) (*batch.Report, error) {
		return func(ctx context.Context, _ string, sink ports.ProgressSink) (*batch.Report, error) {
			return run(ctx, sink)
		}
	}

	r := NewRegistry()
	r.Register(Spec{
		Name:        JobCohortPromotion,
		Description: "Advance every member's cohort year by one",
		Run:         withoutInput(j.PromoteCohorts),
	})
	r.Register(Spec{
		Name:        JobQueueNumbers,
		Description: "Assign queue numbers from id,number lines",
		TakesInput:  true,
		Run:         j.AssignQueueNumbers,
	})
	r.Register(Spec{
		Name:        JobInitiationCompletion,
		Description: "Mark the listed student numbers as initiated",
		TakesInput:  true,
		Run:         j.CompleteInitiation,
	})
	r.Register(Spec{
		Name:        JobStructureEnforcement,
		Description: "Reconcile nicknames and the senior role for every member",
		Run:         withoutInput(j.EnforceStructure),
	})
	r.Register(Spec{
		Name:        JobNameFix,
		Description: "Reconcile nicknames for every member",
		Run:         withoutInput(j.FixNames),
	})
	return r
}
