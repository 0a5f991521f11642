package quiz

import (
	"sync"
	"testing"

	"lernabenteuer/internal/content"
)

type recordedCues struct {
	mu   sync.Mutex
	cues []Cue
}

func (r *recordedCues) Cue(c Cue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, c)
}

func (r *recordedCues) count(c Cue) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.cues {
		if got == c {
			n++
		}
	}
	return n
}

const sampleText = "**ما لون السماء؟**\n- أحمر\n- أزرق [correct]\n- أخضر\n\nفقرة سردية عادية."

const threeQuestions = "**q0**\n- a [correct]\n- b\n\n**q1**\n- a\n- b [correct]\n\n**q2**\n- a\n- b\n- c [correct]"

func newLoadedTracker(t *testing.T, text string) (*Tracker, *recordedCues, int) {
	t.Helper()
	cues := &recordedCues{}
	tr := NewTracker(cues)
	blocks := content.Parse(text)
	tr.Load(blocks)
	return tr, cues, content.CountQuestions(blocks)
}

func TestSelectCorrectOptionCompletesSample(t *testing.T) {
	tr, cues, total := newLoadedTracker(t, sampleText)

	answer, ok := tr.SelectOption(0, 1)
	if !ok {
		t.Fatalf("first answer should be recorded")
	}
	if !answer.IsCorrect || answer.SelectedOptionIndex != 1 {
		t.Fatalf("unexpected answer: %+v", answer)
	}
	if tr.Score() != 1 {
		t.Fatalf("score: want=1 got=%d", tr.Score())
	}
	if !tr.IsComplete(total) {
		t.Fatalf("expected complete after single answer")
	}
	if cues.count(CueCorrect) != 1 || cues.count(CueComplete) != 1 {
		t.Fatalf("cues: got=%v", cues.cues)
	}

	if _, ok := tr.SelectOption(0, 0); ok {
		t.Fatalf("second answer must be a no-op")
	}
	if got := tr.Answers()[0]; got.SelectedOptionIndex != 1 || !got.IsCorrect {
		t.Fatalf("first answer overwritten: %+v", got)
	}
	if tr.Score() != 1 {
		t.Fatalf("score changed after no-op: %d", tr.Score())
	}
	if cues.count(CueIncorrect) != 0 {
		t.Fatalf("no-op must not emit cues: %v", cues.cues)
	}
}

func TestSelectIncorrectOption(t *testing.T) {
	tr, cues, _ := newLoadedTracker(t, threeQuestions)

	answer, ok := tr.SelectOption(1, 0)
	if !ok || answer.IsCorrect {
		t.Fatalf("want recorded incorrect answer, got=%+v ok=%v", answer, ok)
	}
	if cues.count(CueIncorrect) != 1 {
		t.Fatalf("incorrect cue missing: %v", cues.cues)
	}
	if tr.Score() != 0 {
		t.Fatalf("score: want=0 got=%d", tr.Score())
	}
}

func TestSelectOptionRejectsInvalidInput(t *testing.T) {
	tr, cues, _ := newLoadedTracker(t, threeQuestions)

	cases := []struct{ ordinal, option int }{
		{ordinal: 7, option: 0},
		{ordinal: -1, option: 0},
		{ordinal: 0, option: 5},
		{ordinal: 0, option: -1},
	}
	for _, c := range cases {
		if _, ok := tr.SelectOption(c.ordinal, c.option); ok {
			t.Fatalf("SelectOption(%d,%d) should be rejected", c.ordinal, c.option)
		}
	}
	if tr.Answered() != 0 || len(cues.cues) != 0 {
		t.Fatalf("rejected selections must leave no trace")
	}
}

func TestCompletionLatchFiresOnce(t *testing.T) {
	tr, cues, total := newLoadedTracker(t, threeQuestions)

	tr.SelectOption(0, 0)
	if tr.IsComplete(total) {
		t.Fatalf("not complete after one of three")
	}
	tr.SelectOption(1, 1)
	tr.SelectOption(2, 0)
	if !tr.IsComplete(total) {
		t.Fatalf("expected complete")
	}
	for i := 0; i < 3; i++ {
		tr.SelectOption(i, 1)
		if !tr.IsComplete(total) {
			t.Fatalf("complete must not revert without reset")
		}
	}
	if cues.count(CueComplete) != 1 {
		t.Fatalf("complete cue: want=1 got=%d", cues.count(CueComplete))
	}
	if tr.Score() != 2 {
		t.Fatalf("score: want=2 got=%d", tr.Score())
	}
}

func TestResetRearmsLatch(t *testing.T) {
	tr, cues, total := newLoadedTracker(t, sampleText)

	tr.SelectOption(0, 1)
	tr.Reset()
	if tr.IsComplete(total) || tr.Answered() != 0 || tr.Score() != 0 {
		t.Fatalf("reset should clear answers")
	}
	if _, ok := tr.SelectOption(0, 2); !ok {
		t.Fatalf("answer after reset should be recorded")
	}
	if cues.count(CueComplete) != 2 {
		t.Fatalf("complete cue after reset: want=2 got=%d", cues.count(CueComplete))
	}
}

func TestIsCompleteRequiresQuestions(t *testing.T) {
	tr := NewTracker(nil)
	tr.Load(content.Parse("nur Erzähltext"))
	if tr.IsComplete(0) {
		t.Fatalf("zero questions never complete")
	}
}

func TestScoreBoundedByAnswers(t *testing.T) {
	tr, _, total := newLoadedTracker(t, threeQuestions)
	for i := 0; i < total; i++ {
		tr.SelectOption(i, i)
		s := tr.Summary()
		if s.Score > s.Answered || s.Answered > s.Total {
			t.Fatalf("bounds violated: %+v", s)
		}
	}
}

func TestNoCorrectMarkerIsUnwinnable(t *testing.T) {
	tr, _, _ := newLoadedTracker(t, "**q**\n- a\n- b")
	answer, ok := tr.SelectOption(0, 0)
	if !ok || answer.IsCorrect {
		t.Fatalf("want recorded incorrect answer, got=%+v ok=%v", answer, ok)
	}
}

func TestConcurrentSelectionsRecordOnce(t *testing.T) {
	tr, cues, _ := newLoadedTracker(t, sampleText)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(opt int) {
			defer wg.Done()
			tr.SelectOption(0, opt%3)
		}(i)
	}
	wg.Wait()

	if tr.Answered() != 1 {
		t.Fatalf("answered: want=1 got=%d", tr.Answered())
	}
	if cues.count(CueComplete) != 1 {
		t.Fatalf("complete cue: want=1 got=%d", cues.count(CueComplete))
	}
}
