package invoice

// Wizard steps, in order.
const (
	StepReview   = "review"
	StepItems    = "items"
	StepSettings = "settings"
	StepGenerate = "generate"
)

var defaultSteps = []string{StepReview, StepItems, StepSettings, StepGenerate}

// Wizard is a linear step sequence. Next and Previous clamp at the ends;
// walking off either edge is a no-op, not an error.
type Wizard struct {
	steps   []string
	current int
}

func NewWizard() *Wizard {
	return &Wizard{steps: defaultSteps}
}

func (w *Wizard) Next() {
	if w.current < len(w.steps)-1 {
		w.current++
	}
}

func (w *Wizard) Previous() {
	if w.current > 0 {
		w.current--
	}
}

func (w *Wizard) Step() string {
	return w.steps[w.current]
}

func (w *Wizard) Index() int {
	return w.current
}

// Reset returns the wizard to the first step.
func (w *Wizard) Reset() {
	w.current = 0
}
