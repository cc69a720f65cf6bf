package txflow

// Forms is the pair of action forms shown once a wallet is connected.
type Forms struct {
	Transfer *Form
	Reward   *Form
}

// NewForms builds both forms with the same options.
func NewForms(sessions Sessions, refresher Refresher, opts ...Option) *Forms {
	return &Forms{
		Transfer: NewForm(Transfer, sessions, refresher, opts...),
		Reward:   NewForm(Reward, sessions, refresher, opts...),
	}
}

// All returns the forms in display order.
func (fs *Forms) All() []*Form { return []*Form{fs.Transfer, fs.Reward} }

// Get returns the form named name, or nil.
func (fs *Forms) Get(name string) *Form {
	for _, f := range fs.All() {
		if f.kind.Name == name {
			return f
		}
	}
	return nil
}

// Snapshots returns the displayed state of every form.
func (fs *Forms) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, 2)
	for _, f := range fs.All() {
		out = append(out, f.Snapshot())
	}
	return out
}

// Subscribe subscribes fn to every form.
func (fs *Forms) Subscribe(fn func(Event)) func() {
	var unsubs []func()
	for _, f := range fs.All() {
		unsubs = append(unsubs, f.Subscribe(fn))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
