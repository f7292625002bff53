package ports

// DefinitionLoader retrieves raw definition documents by name.
// This keeps where definitions live (directory, memory) apart from how they are parsed.
type DefinitionLoader interface {
	// Load returns the raw document registered under name.
	Load(name string) ([]byte, error)

	// List returns the names of all available definitions.
	List() ([]string, error)
}
