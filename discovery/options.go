package discovery

type registration struct {
	name     string
	abstract bool
	hidden   bool
	tags     map[string]Tags
}

// Option adjusts how a suite is registered.
type Option func(*registration)

// WithName overrides the full name reported for the suite.
func WithName(name string) Option {
	return func(r *registration) { r.name = name }
}

// WithTags tags a method by name. Tags given here take precedence over the
// suite's own Annotated tags.
func WithTags(method string, tags Tags) Option {
	return func(r *registration) {
		if r.tags == nil {
			r.tags = make(map[string]Tags)
		}
		r.tags[method] = r.tags[method].merge(tags)
	}
}

// Abstract marks the suite as a base meant to be embedded; its tests are
// reported but never run.
func Abstract() Option {
	return func(r *registration) { r.abstract = true }
}

// Hidden marks the suite as not publicly visible.
func Hidden() Option {
	return func(r *registration) { r.hidden = true }
}
