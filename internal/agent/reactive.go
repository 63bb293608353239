package agent

// Reactive maps each percept straight to an action. It keeps no history:
// on a clean cell it moves to a uniformly random admissible neighbor.
type Reactive struct {
	body
}

var _ Policy = (*Reactive)(nil)

func (r *Reactive) Perceive() (bool, error) {
	return r.env.IsDirty(r.pos)
}

func (r *Reactive) Act() (Action, error) {
	return r.step(r.Perceive, r.pick, nil)
}

func (r *Reactive) Stats() Stats {
	return r.stats(KindReactive)
}

func (r *Reactive) Kind() Kind {
	return KindReactive
}
