package room

// roster is the insertion-ordered membership of a single room. It is not
// safe for concurrent use; the owning Room serializes all access.
type roster struct {
	order []*Participant
	byID  map[string]*Participant
}

func newRoster() *roster {
	return &roster{byID: make(map[string]*Participant)}
}

func (r *roster) add(p *Participant) error {
	if _, ok := r.byID[p.ID]; ok {
		return ErrAlreadyJoined
	}
	r.byID[p.ID] = p
	r.order = append(r.order, p)
	return nil
}

// remove reports whether the id was present. Removing an absent id is not
// an error; duplicate disconnect signals from the transport are expected.
func (r *roster) remove(id string) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, p := range r.order {
		if p.ID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *roster) get(id string) (*Participant, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// snapshot returns the current members in insertion order. Insertion order
// keeps offer fan-out deterministic; correctness does not depend on it.
func (r *roster) snapshot() []Info {
	out := make([]Info, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, p.Info())
	}
	return out
}

// members returns the live participants in insertion order. Callers must
// not mutate the returned slice's entries.
func (r *roster) members() []*Participant {
	out := make([]*Participant, len(r.order))
	copy(out, r.order)
	return out
}

func (r *roster) isEmpty() bool { return len(r.order) == 0 }

func (r *roster) len() int { return len(r.order) }
