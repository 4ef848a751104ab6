package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lab-equipment-api/apperrors"
	"lab-equipment-api/models"
)

// ReportStore persists reports in a single MongoDB collection.
type ReportStore struct {
	coll    *mongo.Collection
	timeout time.Duration
	now     func() time.Time
}

func NewReportStore(coll *mongo.Collection, timeout time.Duration) *ReportStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ReportStore{
		coll:    coll,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// newest first; _id breaks ties between reports created in the same millisecond
var listSort = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// EnsureIndexes creates the indexes backing the listing sort and status filter.
func (s *ReportStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: listSort, Options: options.Index().SetName("createdAt_desc")},
		{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("status")},
	})
	if err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

// Insert assigns the id and creation time, validates, and writes the report.
func (s *ReportStore) Insert(ctx context.Context, report *models.Report) error {
	if errs := report.Validate(); len(errs) > 0 {
		return apperrors.Validation(errs)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report.ID = primitive.NewObjectID()
	// BSON dates carry milliseconds only
	report.CreatedAt = s.now().Truncate(time.Millisecond)

	if _, err := s.coll.InsertOne(ctx, report); err != nil {
		report.ID = primitive.NilObjectID
		report.CreatedAt = time.Time{}
		return apperrors.Persistence(err)
	}
	return nil
}

// ListAll returns every report matching filter, newest first.
func (s *ReportStore) ListAll(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	cursor, err := s.coll.Find(ctx, query, options.Find().SetSort(listSort))
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	defer cursor.Close(ctx)

	reports := make([]models.Report, 0)
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, apperrors.Persistence(err)
	}
	return reports, nil
}

func (s *ReportStore) FindByID(ctx context.Context, id string) (*models.Report, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var report models.Report
	if err := s.coll.FindOne(ctx, bson.M{"_id": objID}).Decode(&report); err != nil {
		return nil, mapSingleResultErr(err)
	}
	return &report, nil
}

// UpdateStatus replaces the status in one atomic findOneAndUpdate and returns
// the updated document.
func (s *ReportStore) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Report, error) {
	if !status.Valid() {
		return nil, apperrors.Validation([]apperrors.FieldError{models.StatusFieldError(status)})
	}
	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var report models.Report
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{"status": status}}, opts).Decode(&report)
	if err != nil {
		return nil, mapSingleResultErr(err)
	}
	return &report, nil
}

// Delete removes the report and returns what was stored.
func (s *ReportStore) Delete(ctx context.Context, id string) (*models.Report, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var report models.Report
	if err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": objID}).Decode(&report); err != nil {
		return nil, mapSingleResultErr(err)
	}
	return &report, nil
}

// PhotoNames returns the set of photo filenames referenced by any report.
func (s *ReportStore) PhotoNames(ctx context.Context) (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	values, err := s.coll.Distinct(ctx, "photo", bson.M{"photo": bson.M{"$type": "string"}})
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	names := make(map[string]struct{}, len(values))
	for _, v := range values {
		if name, ok := v.(string); ok && name != "" {
			names[name] = struct{}{}
		}
	}
	return names, nil
}

// parseID maps malformed ids to NotFound: no report can carry them.
func parseID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperrors.ErrNotFound
	}
	return objID, nil
}

func mapSingleResultErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperrors.ErrNotFound
	}
	return apperrors.Persistence(err)
}
