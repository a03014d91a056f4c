// Package chem defines the vocabulary shared by everything that talks to the
// equilibrium-chemistry engine.
//
// The engine is a forward function: given a [Query] and a [TemplateID] it
// returns a [Result]. Implementations of [Engine] include the PHREEQC process
// adapter (package phreeqc) and deterministic in-memory stubs (package
// chemtest). Everything above this package (inversion, weathering, ocean
// setup) depends only on the interface.
//
// # Errors
//
// Failures are classified by the typed errors in errors.go. Each unwraps to a
// sentinel so callers can use either errors.Is or errors.As:
//
//	var inv *chem.EngineInvocationError
//	if errors.As(err, &inv) && errors.Is(err, chem.ErrEngineTimeout) {
//		...
//	}
//
// # Thread Safety
//
// Composition values are plain maps and are not safe for concurrent mutation.
// Query.Clone and Result.Clone produce deep copies.
package chem
