// Package phreeqc drives the PHREEQC equilibrium solver as an opaque
// forward function.
//
// A query is rendered into a request template, the engine binary is run in
// the adapter's working directory, and the selected-output table it writes
// is parsed back into a chem.Result. One Adapter owns one working
// directory and serializes its invocations; use Fork to run engines in
// parallel.
package phreeqc
