package autodo

// Engine executes a script payload against a runtime. The interpreter
// is an external collaborator: front-ends that embed one register it
// here, while the core stays agnostic to the scripting language.
type Engine interface {
	// Run loads script, registers its coroutines on rt, and drives
	// rt.Run to completion.
	Run(rt *Runtime, script []byte) error
}
