package geolocation

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/Dasakami/alertme-backend/internal/accounts"
	"github.com/Dasakami/alertme-backend/internal/contacts"
	"github.com/Dasakami/alertme-backend/internal/notifications"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AlertDispatcher is the slice of the notification dispatcher the evaluator
// needs; narrowed to an interface so tests can substitute a recorder.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alert notifications.Alert, recipients []notifications.Recipient) bool
}

// Evaluator turns location samples into geozone enter/exit events and hands
// each event to the dispatcher. Evaluations for the same user are serialized
// through striped locks so overlapping samples cannot record duplicate
// consecutive transitions.
type Evaluator struct {
	db         *gorm.DB
	dispatcher AlertDispatcher
	log        *zap.Logger
	locks      [64]sync.Mutex
}

func NewEvaluator(db *gorm.DB, log *zap.Logger, dispatcher AlertDispatcher) *Evaluator {
	return &Evaluator{db: db, dispatcher: dispatcher, log: log}
}

func (e *Evaluator) userLock(userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &e.locks[h.Sum32()%uint32(len(e.locks))]
}

// Evaluate checks the sample against every active geozone of its owner and
// returns the transitions it recorded. A failure evaluating one zone is
// logged and does not stop the remaining zones.
func (e *Evaluator) Evaluate(ctx context.Context, user accounts.User, sample *LocationHistory) ([]GeozoneEvent, error) {
	mu := e.userLock(user.UserID)
	mu.Lock()
	defer mu.Unlock()

	var zones []Geozone
	if err := e.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", user.UserID, true).
		Find(&zones).Error; err != nil {
		return nil, fmt.Errorf("fetch geozones: %w", err)
	}

	var events []GeozoneEvent
	for i := range zones {
		event, err := e.evaluateZone(ctx, sample, &zones[i])
		if err != nil {
			e.log.Error("geozone evaluation failed",
				zap.String("user_id", user.UserID),
				zap.String("zone", zones[i].Name),
				zap.Error(err))
			continue
		}
		if event == nil {
			continue
		}
		events = append(events, *event)
		e.notify(ctx, user, &zones[i], event)
	}
	return events, nil
}

// evaluateZone records a transition when, and only when, the inside/outside
// state changed relative to the last recorded event. The first observation
// for a zone can produce an enter but never an exit.
func (e *Evaluator) evaluateZone(ctx context.Context, sample *LocationHistory, zone *Geozone) (*GeozoneEvent, error) {
	distance := Haversine(sample.Latitude, sample.Longitude, zone.Latitude, zone.Longitude)
	isInside := distance <= zone.Radius

	var last GeozoneEvent
	err := e.db.WithContext(ctx).
		Where("user_id = ? AND geozone_id = ?", zone.UserID, zone.ID).
		Order("timestamp DESC").First(&last).Error

	var eventType string
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if isInside && zone.NotifyOnEnter {
			eventType = EventEnter
		}
	case err != nil:
		return nil, fmt.Errorf("fetch last event: %w", err)
	default:
		wasInside := last.EventType == EventEnter
		if isInside && !wasInside && zone.NotifyOnEnter {
			eventType = EventEnter
		} else if !isInside && wasInside && zone.NotifyOnExit {
			eventType = EventExit
		}
	}

	if eventType == "" {
		return nil, nil
	}

	event := GeozoneEvent{
		UserID:    zone.UserID,
		GeozoneID: zone.ID,
		EventType: eventType,
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
		Timestamp: time.Now(),
	}
	if err := e.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, fmt.Errorf("record geozone event: %w", err)
	}
	return &event, nil
}

// notify is best-effort: the event row stays regardless of the dispatch
// outcome, only the sent flag reflects it.
func (e *Evaluator) notify(ctx context.Context, user accounts.User, zone *Geozone, event *GeozoneEvent) {
	recipients, err := e.resolveRecipients(ctx, zone)
	if err != nil {
		e.log.Error("failed to resolve zone recipients",
			zap.String("zone", zone.Name), zap.Error(err))
		return
	}

	kind := notifications.AlertZoneEnter
	if event.EventType == EventExit {
		kind = notifications.AlertZoneExit
	}
	lat, lon := event.Latitude, event.Longitude
	alert := notifications.Alert{
		GeozoneEventID: &event.ID,
		Kind:           kind,
		UserName:       user.DisplayName(),
		Language:       user.Language,
		ZoneName:       zone.Name,
		ZoneType:       zone.ZoneType,
		Latitude:       &lat,
		Longitude:      &lon,
		OccurredAt:     event.Timestamp,
	}

	if e.dispatcher.Dispatch(ctx, alert, recipients) {
		e.db.WithContext(ctx).Model(event).Update("notification_sent", true)
	}
}

// resolveRecipients returns the zone's assigned active contacts, or every
// active contact of the owner when the zone has none assigned.
func (e *Evaluator) resolveRecipients(ctx context.Context, zone *Geozone) ([]notifications.Recipient, error) {
	var assigned []contacts.EmergencyContact
	if err := e.db.WithContext(ctx).Model(zone).
		Association("Contacts").Find(&assigned, "is_active = ?", true); err != nil {
		return nil, err
	}
	if len(assigned) == 0 {
		all, err := contacts.ActiveForUser(e.db.WithContext(ctx), zone.UserID)
		if err != nil {
			return nil, err
		}
		assigned = all
	}
	return contacts.AsRecipients(assigned), nil
}
