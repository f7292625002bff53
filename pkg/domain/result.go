package domain

// Result is what every sync verb returns: the tree to render, a snapshot of the
// Store it was built from and what the request changed.
type Result struct {
	Tree  *Tree
	Store Store
	// Changed lists the Store keys that differ from before the request, sorted.
	Changed []string
	// Unresolved is set when an action or form target could not be found in the tree.
	Unresolved string
	// Err carries a contained handler failure. The request itself still succeeded.
	Err error
}
