package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/opssage/opssage/internal/models"
)

const incidentsCollection = "incidents"

// MongoStore is the durable ContextStore backed by a MongoDB collection.
// Incident documents carry the stage outputs as embedded blobs plus the
// denormalized filter fields, so list queries never unpack the blobs.
//
// The store mutex serializes read-modify-write sequences across goroutines of
// this process; with a single writer per incident that is sufficient for the
// lost-update guarantee.
type MongoStore struct {
	mu        sync.Mutex
	coll      *mongo.Collection
	subs      *subscribers
	publisher Publisher
	log       *zap.SugaredLogger
}

func NewMongoStore(db *mongo.Database, log *zap.SugaredLogger, publisher Publisher) *MongoStore {
	return &MongoStore{
		coll:      db.Collection(incidentsCollection),
		subs:      newSubscribers(log),
		publisher: publisher,
		log:       log,
	}
}

func (s *MongoStore) Create(ctx context.Context, alert models.Alert) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert.Normalize()
	now := time.Now().UTC()
	incident := &models.Incident{
		IncidentID: uuid.NewString(),
		Alert:      alert,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	incident.Denormalize()

	if _, err := s.coll.InsertOne(ctx, incident); err != nil {
		return "", &StorageError{Op: "insert", Err: err}
	}
	s.log.Infow("created incident", "incident_id", incident.IncidentID, "alert", alert.AlertName)

	s.fanOut(ctx, incident)
	return incident.IncidentID, nil
}

func (s *MongoStore) Get(ctx context.Context, incidentID string) (*models.Incident, error) {
	var incident models.Incident
	err := s.coll.FindOne(ctx, bson.M{"_id": incidentID}).Decode(&incident)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "find", Err: err}
	}
	return &incident, nil
}

func (s *MongoStore) UpdatePrimaryContext(ctx context.Context, incidentID string, pc models.PrimaryContext) error {
	return s.mutate(ctx, incidentID, func(incident *models.Incident) error {
		if incident.PrimaryContext != nil {
			return ErrStageOutputSet
		}
		incident.PrimaryContext = &pc
		incident.Status = models.StatusContextCollected
		return nil
	})
}

func (s *MongoStore) UpdateEnhancedContext(ctx context.Context, incidentID string, ec models.EnhancedContext) error {
	return s.mutate(ctx, incidentID, func(incident *models.Incident) error {
		if incident.EnhancedContext != nil {
			return ErrStageOutputSet
		}
		incident.EnhancedContext = &ec
		incident.Status = models.StatusContextEnriched
		return nil
	})
}

func (s *MongoStore) UpdateDiagnosticReport(ctx context.Context, incidentID string, report models.DiagnosticReport) error {
	return s.mutate(ctx, incidentID, func(incident *models.Incident) error {
		if incident.DiagnosticReport != nil {
			return ErrStageOutputSet
		}
		incident.DiagnosticReport = &report
		incident.Status = models.StatusCompleted
		return nil
	})
}

func (s *MongoStore) UpdateStatus(ctx context.Context, incidentID string, status models.IncidentStatus) error {
	return s.mutate(ctx, incidentID, func(incident *models.Incident) error {
		if incident.Status.Terminal() {
			return ErrTerminalStatus
		}
		incident.Status = status
		return nil
	})
}

func (s *MongoStore) List(ctx context.Context, status models.IncidentStatus) ([]*models.Incident, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, &StorageError{Op: "find", Err: err}
	}
	var incidents []*models.Incident
	if err := cursor.All(ctx, &incidents); err != nil {
		return nil, &StorageError{Op: "decode", Err: err}
	}
	if incidents == nil {
		incidents = []*models.Incident{}
	}
	return incidents, nil
}

func (s *MongoStore) Delete(ctx context.Context, incidentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": incidentID})
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	if res.DeletedCount == 0 {
		return &NotFoundError{IncidentID: incidentID}
	}
	s.subs.drop(incidentID)
	s.log.Infow("deleted incident", "incident_id", incidentID)
	return nil
}

func (s *MongoStore) Subscribe(incidentID string, l Listener) {
	s.subs.add(incidentID, l)
}

func (s *MongoStore) mutate(ctx context.Context, incidentID string, apply func(*models.Incident) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var incident models.Incident
	err := s.coll.FindOne(ctx, bson.M{"_id": incidentID}).Decode(&incident)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &NotFoundError{IncidentID: incidentID}
	}
	if err != nil {
		return &StorageError{Op: "find", Err: err}
	}

	if err := apply(&incident); err != nil {
		return err
	}
	now := time.Now().UTC()
	if !now.After(incident.UpdatedAt) {
		// Coarse clocks must not produce equal consecutive timestamps.
		now = incident.UpdatedAt.Add(time.Nanosecond)
	}
	incident.UpdatedAt = now
	incident.Denormalize()

	update := bson.M{"$set": bson.M{
		"status":            incident.Status,
		"updated_at":        incident.UpdatedAt,
		"primary_context":   incident.PrimaryContext,
		"enhanced_context":  incident.EnhancedContext,
		"diagnostic_report": incident.DiagnosticReport,
		"alert_name":        incident.AlertName,
		"severity":          incident.Severity,
		"namespace":         incident.Namespace,
		"service":           incident.Service,
		"root_cause":        incident.RootCause,
		"confidence_score":  incident.ConfidenceScore,
	}}
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": incidentID}, update); err != nil {
		return &StorageError{Op: "update", Err: err}
	}

	s.fanOut(ctx, &incident)
	return nil
}

func (s *MongoStore) fanOut(ctx context.Context, incident *models.Incident) {
	s.subs.notify(incident)
	if s.publisher != nil {
		s.publisher.PublishIncident(ctx, incident.Clone())
	}
}
