package audit

// WithUserID sets the acting user, overriding the context extractor.
func WithUserID(id string) EventOption {
	return func(e *Event) {
		e.UserID = id
	}
}

// WithMetadata adds metadata to the event
func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// WithResult sets the event result
func WithResult(result Result) EventOption {
	return func(e *Event) {
		e.Result = result
	}
}
