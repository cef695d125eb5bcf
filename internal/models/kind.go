package models

// ActionKind is one entry of the fixed bulk-action vocabulary of a kind.
type ActionKind string

const (
	ActionActivate   ActionKind = "activate"
	ActionDeactivate ActionKind = "deactivate"
	ActionBan        ActionKind = "ban"
	ActionApprove    ActionKind = "approve"
	ActionReject     ActionKind = "reject"
	ActionSuspend    ActionKind = "suspend"
	ActionPublish    ActionKind = "publish"
	ActionUnpublish  ActionKind = "unpublish"
	ActionDelete     ActionKind = "delete"
	ActionExport     ActionKind = "export"
)

// SearchField extracts one searchable text field from a record.
type SearchField func(Record) string

// KindDescriptor parameterises the collection engine for one entity kind:
// its closed status enum, the transitions an operator may request, the bulk
// vocabulary, and which fields free-text search scans.
type KindDescriptor struct {
	Kind          Kind
	Statuses      []Status
	DefaultStatus Status
	Transitions   map[Status][]Status
	Actions       []ActionKind
	SearchFields  []SearchField
}

// HasStatus reports whether s belongs to the descriptor's enum.
func (d KindDescriptor) HasStatus(s Status) bool {
	for _, candidate := range d.Statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// AllowsTransition reports whether an operator may move a record from one
// status to another. Every status keeps at least one outbound transition:
// this is an administrative override layer, nothing is terminal.
func (d KindDescriptor) AllowsTransition(from, to Status) bool {
	for _, candidate := range d.Transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// HasAction reports whether the action belongs to the kind's bulk vocabulary.
func (d KindDescriptor) HasAction(a ActionKind) bool {
	for _, candidate := range d.Actions {
		if candidate == a {
			return true
		}
	}
	return false
}

// SearchableText returns the values free-text search matches against.
func (d KindDescriptor) SearchableText(r Record) []string {
	values := make([]string, 0, len(d.SearchFields))
	for _, field := range d.SearchFields {
		if v := field(r); v != "" {
			values = append(values, v)
		}
	}
	return values
}

var descriptors = map[Kind]KindDescriptor{
	KindStudent: {
		Kind:          KindStudent,
		Statuses:      []Status{StatusActive, StatusInactive, StatusBanned, StatusPending},
		DefaultStatus: StatusActive,
		Transitions: map[Status][]Status{
			StatusActive:   {StatusInactive, StatusBanned},
			StatusInactive: {StatusActive, StatusBanned},
			StatusBanned:   {StatusActive},
			StatusPending:  {StatusActive, StatusInactive, StatusBanned},
		},
		Actions: []ActionKind{ActionActivate, ActionDeactivate, ActionBan, ActionDelete, ActionExport},
		SearchFields: []SearchField{
			func(r Record) string { return r.Name },
			func(r Record) string { return r.Email },
		},
	},
	KindInstructor: {
		Kind:          KindInstructor,
		Statuses:      []Status{StatusPending, StatusActive, StatusSuspended, StatusRejected},
		DefaultStatus: StatusPending,
		Transitions: map[Status][]Status{
			StatusPending:   {StatusActive, StatusRejected},
			StatusActive:    {StatusSuspended},
			StatusSuspended: {StatusActive},
			StatusRejected:  {StatusActive},
		},
		Actions: []ActionKind{ActionApprove, ActionReject, ActionSuspend, ActionActivate, ActionDelete, ActionExport},
		SearchFields: []SearchField{
			func(r Record) string { return r.Name },
			func(r Record) string { return r.Email },
		},
	},
	KindCourse: {
		Kind:          KindCourse,
		Statuses:      []Status{StatusDraft, StatusPending, StatusPublished, StatusRejected},
		DefaultStatus: StatusPending,
		Transitions: map[Status][]Status{
			StatusDraft:     {StatusPending, StatusPublished},
			StatusPending:   {StatusPublished, StatusRejected},
			StatusPublished: {StatusDraft, StatusRejected},
			StatusRejected:  {StatusPending, StatusPublished},
		},
		Actions: []ActionKind{ActionPublish, ActionUnpublish, ActionApprove, ActionReject, ActionDelete, ActionExport},
		SearchFields: []SearchField{
			func(r Record) string { return r.Name },
			func(r Record) string { return r.InstructorName },
			func(r Record) string { return r.Description },
		},
	},
}

// DescriptorFor returns the engine descriptor registered for a kind.
func DescriptorFor(kind Kind) (KindDescriptor, bool) {
	d, ok := descriptors[kind]
	return d, ok
}
