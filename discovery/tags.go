package discovery

// Tags annotates a single suite method.
type Tags struct {
	// Test marks the method as a test regardless of its name.
	Test        bool
	Description string
	Skip        bool
	SkipMessage string
	Groups      []string

	PreAction  bool
	PostAction bool
	// Order sorts actions of the same kind, ascending.
	Order uint8
}

// Annotated is implemented by suites that tag their own methods. Tags is
// called on the zero value of the suite.
type Annotated interface {
	Tags() map[string]Tags
}

func (t Tags) merge(o Tags) Tags {
	t.Test = t.Test || o.Test
	if o.Description != "" {
		t.Description = o.Description
	}
	if o.Skip {
		t.Skip = true
		t.SkipMessage = o.SkipMessage
	}
	if len(o.Groups) > 0 {
		t.Groups = o.Groups
	}
	t.PreAction = t.PreAction || o.PreAction
	t.PostAction = t.PostAction || o.PostAction
	if o.Order != 0 {
		t.Order = o.Order
	}
	return t
}
