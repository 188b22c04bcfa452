package tools

// RegisterAllTools registers every tool with the registry.
func RegisterAllTools(registry *Registry) {
	NewEntityHandlers().RegisterTools(registry)
	NewServiceHandlers().RegisterTools(registry)
}
