package app

import (
	"time"

	"github.com/kilianp07/rosterd/core/events"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/repair"
	"github.com/kilianp07/rosterd/internal/eventbus"
)

const defaultBusBuffer = 16

// Buses groups the typed event buses the engine publishes on. Incident
// events flow inward (intake to service loop); the rest flow outward to
// observers.
type Buses struct {
	Incidents *eventbus.Bus[events.IncidentEvent]
	PlanState *eventbus.Bus[events.PlanStateEvent]
	Audits    *eventbus.Bus[events.AuditEvent]
	Sessions  *eventbus.Bus[events.RepairSessionEvent]
}

// NewBuses creates the bus set with the given subscriber buffer size.
func NewBuses(buffer int) *Buses {
	return &Buses{
		Incidents: eventbus.New[events.IncidentEvent](buffer),
		PlanState: eventbus.New[events.PlanStateEvent](buffer),
		Audits:    eventbus.New[events.AuditEvent](buffer),
		Sessions:  eventbus.New[events.RepairSessionEvent](buffer),
	}
}

// Close shuts down all buses.
func (b *Buses) Close() {
	b.Incidents.Close()
	b.PlanState.Close()
	b.Audits.Close()
	b.Sessions.Close()
}

func (b *Buses) publishPlanState(p *model.PlanVersion, from model.PlanState) {
	b.PlanState.Publish(events.PlanStateEvent{
		PlanID:     p.ID,
		From:       from,
		To:         p.State,
		OutputHash: p.OutputHash,
	})
}

func (b *Buses) publishAudit(planID string, passed, failed int) {
	b.Audits.Publish(events.AuditEvent{PlanID: planID, Passed: passed, Failed: failed})
}

func (b *Buses) publishSession(s *repair.Session, planID, action, evidenceID string, err error) {
	b.Sessions.Publish(events.RepairSessionEvent{
		SessionID:  s.ID,
		PlanID:     planID,
		Action:     action,
		EvidenceID: evidenceID,
		Err:        err,
	})
}

// PublishIncident feeds an incident into the service loop.
func (b *Buses) PublishIncident(inc model.IncidentSpec) {
	b.Incidents.Publish(events.IncidentEvent{Incident: inc, Received: time.Now()})
}
