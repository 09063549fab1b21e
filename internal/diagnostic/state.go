package diagnostic

// Stage is the current phase of the scripted-then-delegated intake dialog.
type Stage string

const (
	StageGreeting  Stage = "greeting"
	StageDevice    Stage = "device"
	StageDamage    Stage = "damage"
	StageQuestions Stage = "questions"
	StageCompleted Stage = "completed"
)

var stageOrder = map[Stage]int{
	StageGreeting:  0,
	StageDevice:    1,
	StageDamage:    2,
	StageQuestions: 3,
	StageCompleted: 4,
}

// session holds the per-(user, expert) dialog state. It lives in process
// memory only; a restart begins a fresh session over the durable history.
type session struct {
	Stage             Stage
	DeviceName        string
	DamageDescription string
	QuestionsAsked    int
}

func newSession() *session {
	return &session{Stage: StageGreeting}
}

// advanceTo moves the stage forward. Regressions are ignored: stages only
// ever walk forward within one session.
func (s *session) advanceTo(next Stage) {
	if stageOrder[next] > stageOrder[s.Stage] {
		s.Stage = next
	}
}
