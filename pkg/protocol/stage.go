package protocol

// StageDefinition names a stage type and its historical aliases so the
// resolver can map persisted stage types back to behavior.
type StageDefinition interface {
	Type() string
	Aliases() []string
}
