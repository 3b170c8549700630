package scheduler

import "github.com/Geenz/entropycore/contract"

// Strategy picks which group a worker should draw from next. Implementations
// must be safe for concurrent use: NotifyGroupAdded/Removed can race with
// SelectNextGroup from any number of worker goroutines.
type Strategy interface {
	// NotifyGroupAdded is called when a workservice.Service registers a group.
	NotifyGroupAdded(g *contract.Group)
	// NotifyGroupRemoved is called when a group is unregistered or destroyed.
	// Implementations must not retain the pointer afterward.
	NotifyGroupRemoved(g *contract.Group)
	// NotifyWorkAvailable is called each time a contract is successfully
	// scheduled on g, whether or not g already had scheduled contracts.
	NotifyWorkAvailable(g *contract.Group)
	// NotifyEmpty is called by a worker after selecting from g and finding
	// nothing ready, so the strategy can age the group down.
	NotifyEmpty(g *contract.Group)
	// SelectNextGroup returns the group a worker should try next, or
	// (nil, false) if no group is registered.
	SelectNextGroup() (*contract.Group, bool)
}
