package workflow

// EventType tags a run event for machine consumption.
type EventType string

const (
	EventStageStarted     EventType = "stage_started"
	EventStageCompleted   EventType = "stage_completed"
	EventStageSkipped     EventType = "stage_skipped"
	EventStageFailed      EventType = "stage_failed"
	EventEpisodeSkipped   EventType = "episode_skipped"
	EventEpisodeCompleted EventType = "episode_completed"
	EventEpisodeFailed    EventType = "episode_failed"
)

// Event is one observable step of a processing run. Seq is strictly
// monotonic and gap free within a run.
type Event struct {
	Seq          int
	RunID        string
	Type         EventType
	EpisodeID    int64
	EpisodeTitle string
	Stage        string
	Err          error
}
