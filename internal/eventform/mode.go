package eventform

type ModeKind string

const (
	ModeCreate    ModeKind = "create"
	ModeDuplicate ModeKind = "duplicate"
	ModeEdit      ModeKind = "edit"
)

// Mode selects how a session is seeded.
type Mode struct {
	Kind     ModeKind `json:"kind"`
	SourceID string   `json:"sourceId,omitempty"`
	Slug     string   `json:"slug,omitempty"`
}

func Create() Mode { return Mode{Kind: ModeCreate} }

// Duplicate starts a create session pre-filled from the event with id.
func Duplicate(id string) Mode { return Mode{Kind: ModeDuplicate, SourceID: id} }

func Edit(slug string) Mode { return Mode{Kind: ModeEdit, Slug: slug} }

func (m Mode) creates() bool {
	return m.Kind == ModeCreate || m.Kind == ModeDuplicate
}

type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateHydrated      State = "hydrated"
	StateSubmitting    State = "submitting"
	StateSucceeded     State = "succeeded"
	// StateAborted is terminal: the source was missing or the actor may not edit it.
	StateAborted State = "aborted"
	StateClosed  State = "closed"
)
