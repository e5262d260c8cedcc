package cart

import "github.com/okaziba/storefront/internal/domain"

// Selection is the set of cart line ids chosen for checkout. It is a view
// over the cart, not part of it: every id must reference a current line,
// stale ids are pruned on reconcile, and a line that newly appears (remote
// refresh, merge) is auto-selected unless its product was explicitly
// deselected earlier in the session.
type Selection struct {
	selected   map[string]struct{} // line ids currently chosen
	deselected map[string]struct{} // product keys the user unchecked
	known      map[string]struct{} // line ids seen in a previous reconcile
}

// NewSelection creates an empty selection; the first Reconcile selects
// every line
func NewSelection() *Selection {
	return &Selection{
		selected:   make(map[string]struct{}),
		deselected: make(map[string]struct{}),
		known:      make(map[string]struct{}),
	}
}

// Reconcile prunes ids no longer in the cart and auto-selects newly
// appeared lines. Called after every cart change.
func (s *Selection) Reconcile(lines []domain.CartLine) {
	current := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		current[line.ID] = struct{}{}
	}

	for id := range s.selected {
		if _, ok := current[id]; !ok {
			delete(s.selected, id)
		}
	}

	for _, line := range lines {
		if _, seen := s.known[line.ID]; seen {
			continue
		}
		if _, off := s.deselected[line.ProductKey()]; !off {
			s.selected[line.ID] = struct{}{}
		}
	}

	s.known = current
}

// Toggle flips one line's membership. Deselecting remembers the product so
// a re-appearing line stays deselected.
func (s *Selection) Toggle(line domain.CartLine) {
	if _, ok := s.selected[line.ID]; ok {
		delete(s.selected, line.ID)
		s.deselected[line.ProductKey()] = struct{}{}
		return
	}
	s.selected[line.ID] = struct{}{}
	delete(s.deselected, line.ProductKey())
}

// ToggleAll selects every line unless all are already selected, in which
// case it deselects every line
func (s *Selection) ToggleAll(lines []domain.CartLine) {
	if s.AllSelected(lines) {
		for _, line := range lines {
			delete(s.selected, line.ID)
			s.deselected[line.ProductKey()] = struct{}{}
		}
		return
	}
	for _, line := range lines {
		s.selected[line.ID] = struct{}{}
		delete(s.deselected, line.ProductKey())
	}
}

// IsSelected reports membership for one line id
func (s *Selection) IsSelected(lineID string) bool {
	_, ok := s.selected[lineID]
	return ok
}

// AllSelected reports whether every cart line is selected. An empty cart
// counts as not all selected.
func (s *Selection) AllSelected(lines []domain.CartLine) bool {
	if len(lines) == 0 {
		return false
	}
	for _, line := range lines {
		if _, ok := s.selected[line.ID]; !ok {
			return false
		}
	}
	return true
}

// SelectedLines returns the chosen lines in cart order
func (s *Selection) SelectedLines(lines []domain.CartLine) []domain.CartLine {
	var out []domain.CartLine
	for _, line := range lines {
		if _, ok := s.selected[line.ID]; ok {
			out = append(out, line)
		}
	}
	return out
}

// SelectedIDs returns the chosen line ids in cart order
func (s *Selection) SelectedIDs(lines []domain.CartLine) []string {
	var out []string
	for _, line := range lines {
		if _, ok := s.selected[line.ID]; ok {
			out = append(out, line.ID)
		}
	}
	return out
}

// SelectedSubtotal sums unit price times quantity over the chosen lines
func (s *Selection) SelectedSubtotal(lines []domain.CartLine) float64 {
	var total float64
	for _, line := range s.SelectedLines(lines) {
		total += line.LineTotal()
	}
	return total
}

// SelectedCount sums quantities over the chosen lines
func (s *Selection) SelectedCount(lines []domain.CartLine) int {
	var count int
	for _, line := range s.SelectedLines(lines) {
		count += line.Quantity
	}
	return count
}

// SelectedWeight sums item weight times quantity over the chosen lines,
// the input to the shipping rate quote
func (s *Selection) SelectedWeight(lines []domain.CartLine) float64 {
	var weight float64
	for _, line := range s.SelectedLines(lines) {
		weight += line.Weight * float64(line.Quantity)
	}
	return weight
}
