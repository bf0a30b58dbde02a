// Package jobkind defines the closed set of job kinds that flow through the
// pipeline, their state machines, and the broker routing/priority tables
// that tie them to the job registry (C4).
package jobkind

import "fmt"

// Kind is a closed enumeration of the four job kinds the pipeline knows
// about. Go has no sum types, so dispatch sites switch exhaustively over
// Kind.
type Kind string

const (
	TemplateConfig Kind = "template_config"
	MarkingConfig  Kind = "marking_config"
	MarkingJob     Kind = "marking_job"
	IndexTask      Kind = "index_task"
)

// AllKinds enumerates every Kind value; the broker walks it to declare
// each kind's request and result queues.
var AllKinds = []Kind{TemplateConfig, MarkingConfig, MarkingJob, IndexTask}

func (k Kind) Valid() bool {
	switch k {
	case TemplateConfig, MarkingConfig, MarkingJob, IndexTask:
		return true
	default:
		return false
	}
}

// Status is the closed set of states every job kind's state machine can be
// in. All four kinds share the same machine.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Priority is the job-submission priority requested by the caller, mapped
// to a broker priority (0..9) at publish time.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// BrokerPriority maps the four submission priorities onto the AMQP
// priority scale used when declaring queues with x-max-priority (spec
// §4.2). Unrecognized priorities default to NORMAL's value, matching the
// original implementation's producer behavior.
func (p Priority) BrokerPriority() uint8 {
	switch p {
	case PriorityUrgent:
		return 9
	case PriorityHigh:
		return 7
	case PriorityLow:
		return 1
	case PriorityNormal:
		return 5
	default:
		return 5
	}
}

// Actor identifies who is permitted to drive a given transition, used by
// CheckTransition to reject transitions made by the wrong component.
type Actor string

const (
	ActorProducer Actor = "producer"
	ActorWorker   Actor = "worker"
	ActorConsumer Actor = "consumer"
	ActorExternal Actor = "external" // cancellation API
)

// Transition describes one legal (from, to) edge and which actor may
// walk it.
type Transition struct {
	From  Status
	To    Status
	Actor Actor
}

var transitions = []Transition{
	{StatusPending, StatusQueued, ActorProducer},
	{StatusQueued, StatusProcessing, ActorWorker},
	{StatusProcessing, StatusCompleted, ActorConsumer},
	{StatusProcessing, StatusFailed, ActorConsumer},
	{StatusProcessing, StatusFailed, ActorWorker},
	{StatusQueued, StatusFailed, ActorProducer}, // producer publish failure (§4.4 step 6)
	{StatusPending, StatusCancelled, ActorExternal},
	{StatusQueued, StatusCancelled, ActorExternal},
	{StatusProcessing, StatusCancelled, ActorExternal},
}

// CheckTransition reports whether actor is allowed to move a job from from
// to to, per the transitions table (e.g. a consumer trying to resurrect a
// CANCELLED job is rejected). Producers, workers and result consumers do
// not call it; they update job rows through the repositories directly.
func CheckTransition(from, to Status, actor Actor) error {
	for _, t := range transitions {
		if t.From == from && t.To == to && t.Actor == actor {
			return nil
		}
	}
	return fmt.Errorf("illegal transition %s -> %s by %s", from, to, actor)
}
