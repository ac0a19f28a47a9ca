// internal/disclosure/sequencer.go
package disclosure

// Question is one yes/no follow-up on the disclosures screen.
type Question struct {
	// Key is the field the answer is stored under in the draft section.
	Key string

	// Condition reports whether the question currently applies, given the
	// live section answers. nil means the question always applies.
	// Conditions are re-evaluated on every VisibleIndices call, so a
	// later answer can remove a previously-visible question.
	Condition func(section map[string]interface{}) bool
}

// Sequencer governs which questions on one screen are visible and
// required. On a first visit questions reveal one at a time as they are
// answered; on a return visit every applicable question is visible
// immediately so already-answered items are never hidden. The reveal
// animation delay is presentation-only and lives outside this package.
type Sequencer struct {
	questions []Question
	revealing bool
	revealed  int
}

// NewSequencer inspects the live section at mount time: if any question
// already has a boolean answer the screen is a revisit and everything
// applicable shows at once; otherwise it starts in revealing mode with
// only the first question visible. The screen stays in whichever mode it
// entered until torn down.
func NewSequencer(questions []Question, section map[string]interface{}) *Sequencer {
	return &Sequencer{
		questions: questions,
		revealing: !anyAnswered(questions, section),
		revealed:  1,
	}
}

// Revealing reports whether the screen is in first-visit incremental
// mode.
func (s *Sequencer) Revealing() bool {
	return s.revealing
}

// Advance records that the question at index i (into the full question
// list) was answered, revealing the next applicable question. No-op on a
// revisit, where everything is already visible.
func (s *Sequencer) Advance(i int, section map[string]interface{}) {
	if !s.revealing {
		return
	}

	filtered := s.filtered(section)
	for pos, idx := range filtered {
		if idx == i {
			if next := pos + 2; next > s.revealed {
				s.revealed = next
			}
			break
		}
	}
	if s.revealed > len(filtered) {
		s.revealed = len(filtered)
	}
}

// VisibleIndices returns the indices (into the full question list) of
// the questions currently visible and required.
func (s *Sequencer) VisibleIndices(section map[string]interface{}) map[int]struct{} {
	filtered := s.filtered(section)

	limit := len(filtered)
	if s.revealing && s.revealed < limit {
		limit = s.revealed
	}

	visible := make(map[int]struct{}, limit)
	for _, idx := range filtered[:limit] {
		visible[idx] = struct{}{}
	}
	return visible
}

// filtered returns the indices of questions whose condition holds
// against the live section.
func (s *Sequencer) filtered(section map[string]interface{}) []int {
	out := make([]int, 0, len(s.questions))
	for i, q := range s.questions {
		if q.Condition == nil || q.Condition(section) {
			out = append(out, i)
		}
	}
	return out
}

func anyAnswered(questions []Question, section map[string]interface{}) bool {
	for _, q := range questions {
		if _, ok := section[q.Key].(bool); ok {
			return true
		}
	}
	return false
}
