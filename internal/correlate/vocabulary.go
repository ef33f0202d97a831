package correlate

// Vocabulary names the trace events the tracks consume.
type Vocabulary struct {
	// RequestPrefix is prepended to a request state tag ("in", "queue", ...).
	RequestPrefix string
	ObjectCreate  string
	ObjectDestroy string
	FreqChange    string
}

// DefaultVocabulary returns the i915 tracepoint names.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		RequestPrefix: "i915_request_",
		ObjectCreate:  "i915_gem_object_create",
		ObjectDestroy: "i915_gem_object_destroy",
		FreqChange:    "intel_gpu_freq_change",
	}
}

// Request returns the event name of a request state tag.
func (v Vocabulary) Request(tag string) string {
	return v.RequestPrefix + tag
}
