package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dinoevent/errs"
	"dinoevent/models"
)

// MongoStore keeps one document per event. Every conditional mutation is a
// single document update, which MongoDB applies atomically.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

var participantCount = bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$participants", bson.A{}}}}}}

func byID(id string) bson.M {
	return bson.M{"id": id}
}

func (s *MongoStore) List(ctx context.Context) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errs.Classify(err)
	}
	defer cursor.Close(ctx)

	events := []models.Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, errs.Classify(err)
	}
	return events, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (models.Event, error) {
	var e models.Event
	err := s.coll.FindOne(ctx, byID(id)).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Event{}, errs.NotFound("event %s", id)
	}
	if err != nil {
		return models.Event{}, errs.Classify(err)
	}
	return e, nil
}

func (s *MongoStore) Create(ctx context.Context, e models.Event) (models.Event, error) {
	e = normalize(e)
	if _, err := s.coll.InsertOne(ctx, e); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Event{}, errs.Conflict("event id %s already exists", e.ID)
		}
		return models.Event{}, errs.Classify(err)
	}
	return e, nil
}

// findAndUpdate applies update to the first document matching filter and
// returns the new state. ErrNoDocuments is returned unchanged so callers
// can tell why the filter missed.
func (s *MongoStore) findAndUpdate(ctx context.Context, filter bson.M, update any) (models.Event, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Event
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Event{}, err
		}
		return models.Event{}, errs.Classify(err)
	}
	return updated, nil
}

// explainMiss re-reads the event after a conditional update matched
// nothing: a missing event is NotFound, anything else is onExists.
func (s *MongoStore) explainMiss(ctx context.Context, id string, onExists func(models.Event) error) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return onExists(current)
}

func patchUpdate(patch models.EventPatch) bson.M {
	set := bson.M{}
	unset := bson.M{}
	strs := map[string]*string{
		"title":           patch.Title,
		"dateTime":        patch.DateTime,
		"locationName":    patch.LocationName,
		"locationAddress": patch.LocationAddress,
		"locationLink":    patch.LocationLink,
		"content":         patch.Content,
		"note":            patch.Note,
	}
	for field, v := range strs {
		if v == nil {
			continue
		}
		if *v == "" && field != "title" && field != "dateTime" && field != "locationName" {
			unset[field] = ""
			continue
		}
		set[field] = *v
	}
	if patch.Cost != nil {
		set["cost"] = *patch.Cost
	}
	ints := map[string]*int{
		"maxParticipants": patch.MaxParticipants,
		"fundraisingGoal": patch.FundraisingGoal,
	}
	for field, v := range ints {
		if v == nil {
			continue
		}
		if *v == 0 {
			unset[field] = ""
			continue
		}
		set[field] = *v
	}
	if patch.EnableDonation != nil {
		if *patch.EnableDonation {
			set["enableDonation"] = true
		} else {
			unset["enableDonation"] = ""
		}
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func (s *MongoStore) Update(ctx context.Context, id string, patch models.EventPatch) (models.Event, error) {
	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}
	filter := byID(id)
	if patch.MaxParticipants != nil && *patch.MaxParticipants > 0 {
		filter["$expr"] = bson.D{{Key: "$lte", Value: bson.A{participantCount, *patch.MaxParticipants}}}
	}

	updated, err := s.findAndUpdate(ctx, filter, patchUpdate(patch))
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Event{}, s.explainMiss(ctx, id, func(current models.Event) error {
			_, err := applyPatch(current, patch)
			if err == nil {
				// Participants left between the two reads; the caller may retry.
				return errs.Conflict("event %s changed during update", id)
			}
			return err
		})
	}
	return updated, err
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, byID(id))
	if err != nil {
		return errs.Classify(err)
	}
	if res.DeletedCount == 0 {
		return errs.NotFound("event %s", id)
	}
	return nil
}

func (s *MongoStore) AppendParticipant(ctx context.Context, id string, p models.Participant) (models.Event, error) {
	filter := bson.M{
		"id": id,
		"$or": bson.A{
			bson.M{"maxParticipants": nil},
			bson.M{"$expr": bson.D{{Key: "$lt", Value: bson.A{participantCount, "$maxParticipants"}}}},
		},
	}
	update := bson.M{"$push": bson.M{"participants": p}}

	updated, err := s.findAndUpdate(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Event{}, s.explainMiss(ctx, id, func(models.Event) error {
			return errs.Conflict("event %s is full", id)
		})
	}
	return updated, err
}

func (s *MongoStore) CancelParticipant(ctx context.Context, id, participantID string, entry models.CancellationLog) (models.Event, error) {
	filter := bson.M{"id": id, "participants.id": participantID}
	update := bson.M{
		"$pull": bson.M{"participants": bson.M{"id": participantID}},
		"$push": bson.M{"cancellations": entry},
	}

	updated, err := s.findAndUpdate(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Event{}, s.explainMiss(ctx, id, func(models.Event) error {
			return errs.NotFound("participant %s", participantID)
		})
	}
	return updated, err
}

func (s *MongoStore) RemoveParticipant(ctx context.Context, id, participantID string) (models.Event, error) {
	filter := bson.M{"id": id, "participants.id": participantID}
	update := bson.M{"$pull": bson.M{"participants": bson.M{"id": participantID}}}

	updated, err := s.findAndUpdate(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Event{}, s.explainMiss(ctx, id, func(models.Event) error {
			return errs.NotFound("participant %s", participantID)
		})
	}
	return updated, err
}

func (s *MongoStore) ToggleWish(ctx context.Context, id, viewerID string) (models.Event, error) {
	wishers := bson.D{{Key: "$ifNull", Value: bson.A{"$wishers", bson.A{}}}}
	toggle := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "wishers", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$in", Value: bson.A{viewerID, wishers}}},
			bson.D{{Key: "$filter", Value: bson.D{
				{Key: "input", Value: wishers},
				{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", viewerID}}}},
			}}},
			bson.D{{Key: "$concatArrays", Value: bson.A{wishers, bson.A{viewerID}}}},
		}}}}}}},
	}

	updated, err := s.findAndUpdate(ctx, byID(id), toggle)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Event{}, errs.NotFound("event %s", id)
	}
	return updated, err
}
