// Package workservice owns a pool of worker goroutines and coordinates
// main-thread pumping across any number of contract.Group instances
// (spec.md §4.E). A Service is the contract.ConcurrencyProvider for every
// group registered with it: groups call back into the service when work
// becomes available or when they are destroyed, and the service uses those
// calls to wake parked workers and to drop groups from its scheduler
// strategy.
package workservice
