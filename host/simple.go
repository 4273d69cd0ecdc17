package host

// Simple is the minimal surface: one source string in, good or bad out.
// It shares the Session and marshaller, so every compile or runtime failure
// collapses to StatusBad.
type Simple struct {
	session *Session
}

// NewSimple creates a minimal interpreter.
func NewSimple(opts ...Option) *Simple {
	return &Simple{session: New(opts...)}
}

// Interpret runs source with only the built-in natives.
func (s *Simple) Interpret(source string) Status {
	outcome, err := s.session.Interpret(source, nil)
	if err != nil {
		log.Errorf("simple interpret: %v", err)
		return StatusBad
	}
	return outcome.Status()
}
