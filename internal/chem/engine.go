package chem

import (
	"context"
	"time"
)

// Engine evaluates the equilibrium system for a query. Implementations must
// not return a partially filled Result together with an error.
type Engine interface {
	Invoke(ctx context.Context, q Query, tmpl TemplateID) (*Result, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, q Query, tmpl TemplateID) (*Result, error)

func (f EngineFunc) Invoke(ctx context.Context, q Query, tmpl TemplateID) (*Result, error) {
	return f(ctx, q, tmpl)
}

// Observer is notified after every engine invocation.
type Observer interface {
	ObserveInvocation(tmpl TemplateID, elapsed time.Duration, err error)
}

// ObservedEngine wraps an Engine and reports each call to an Observer.
type ObservedEngine struct {
	Engine   Engine
	Observer Observer
}

func (o ObservedEngine) Invoke(ctx context.Context, q Query, tmpl TemplateID) (*Result, error) {
	start := time.Now()
	res, err := o.Engine.Invoke(ctx, q, tmpl)
	if o.Observer != nil {
		o.Observer.ObserveInvocation(tmpl, time.Since(start), err)
	}
	return res, err
}
