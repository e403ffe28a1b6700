// Package mongostore implements the report and user repositories on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/streetcats/report-service/internal/domain"
	"github.com/streetcats/report-service/internal/repository"
)

// EnsureIndexes creates the indexes the queries rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = db.Collection(reportsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "assignedTo", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	return err
}

type userRepository struct {
	coll *mongo.Collection
}

// NewUserRepository returns a MongoDB-backed user store.
func NewUserRepository(db *mongo.Database) repository.UserRepository {
	return &userRepository{coll: db.Collection(usersCollection)}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	doc := userDocument{
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Company:      user.Company,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicateEmail
	}
	if err != nil {
		return err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	user.ID = id.Hex()
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

type reportRepository struct {
	db      *mongo.Database
	reports *mongo.Collection
	users   *mongo.Collection
}

// NewReportRepository returns a MongoDB-backed report store.
func NewReportRepository(db *mongo.Database) repository.ReportRepository {
	return &reportRepository{
		db:      db,
		reports: db.Collection(reportsCollection),
		users:   db.Collection(usersCollection),
	}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	now := time.Now().UTC()
	media := report.Media
	if media == nil {
		media = []string{}
	}
	doc := reportDocument{
		Description: report.Description,
		Type:        report.Type,
		Status:      report.Status,
		Location: locationDocument{
			Lat:     report.Location.Lat,
			Lng:     report.Location.Lng,
			Address: report.Location.Address,
		},
		Media:         media,
		CreatedByName: nullableString(report.CreatedByName),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if report.CreatedBy != nil {
		oid, err := primitive.ObjectIDFromHex(report.CreatedBy.ID)
		if err != nil {
			return err
		}
		doc.CreatedBy = &oid
	}
	res, err := r.reports.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	report.ID = id.Hex()
	report.Media = media
	report.CreatedAt = now
	report.UpdatedAt = now
	return nil
}

func (r *reportRepository) getByID(ctx context.Context, oid primitive.ObjectID) (*domain.Report, error) {
	var doc reportDocument
	if err := r.reports.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	report := doc.toDomain()
	return &report, nil
}

func (r *reportRepository) List(ctx context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	query, ok := filterDocument(filter)
	if !ok {
		return []domain.Report{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.reports.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	var docs []reportDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	summaries, err := r.summaries(ctx, docs)
	if err != nil {
		return nil, err
	}
	result := make([]domain.Report, 0, len(docs))
	for _, doc := range docs {
		report := doc.toDomain()
		report.CreatedBy = populate(report.CreatedBy, summaries)
		report.AssignedTo = populate(report.AssignedTo, summaries)
		result = append(result, report)
	}
	return result, nil
}

func (r *reportRepository) Claim(ctx context.Context, id, assigneeID, assigneeName string) (*domain.Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	assignee, err := primitive.ObjectIDFromHex(assigneeID)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": oid, "status": domain.ReportStatusNew}
	update := bson.M{"$set": bson.M{
		"status":         domain.ReportStatusInProgress,
		"assignedTo":     assignee,
		"assignedToName": nullableString(assigneeName),
		"updatedAt":      time.Now().UTC(),
	}}
	return r.conditionalUpdate(ctx, oid, filter, update)
}

func (r *reportRepository) Resolve(ctx context.Context, id, assigneeID string) (*domain.Report, bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false, repository.ErrNotFound
	}
	assignee, err := primitive.ObjectIDFromHex(assigneeID)
	if err != nil {
		return nil, false, r.missOrConflict(ctx, oid)
	}
	filter := bson.M{
		"_id":        oid,
		"assignedTo": assignee,
		"status":     bson.M{"$ne": domain.ReportStatusResolved},
	}
	update := bson.M{"$set": bson.M{
		"status":    domain.ReportStatusResolved,
		"updatedAt": time.Now().UTC(),
	}}
	report, err := r.conditionalUpdate(ctx, oid, filter, update)
	if errors.Is(err, repository.ErrConditionFailed) {
		current, getErr := r.getByID(ctx, oid)
		if getErr != nil {
			return nil, false, getErr
		}
		if current.ResolvedBy(assigneeID) {
			return current, false, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	return report, true, nil
}

func (r *reportRepository) CountByStatus(ctx context.Context, filter repository.ReportFilter) (domain.ReportStats, error) {
	var stats domain.ReportStats
	match, ok := filterDocument(filter)
	if !ok {
		return stats, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$status"}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	}
	cursor, err := r.reports.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, err
	}
	var rows []struct {
		Status domain.ReportStatus `bson:"_id"`
		Count  int64               `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return stats, err
	}
	for _, row := range rows {
		stats.Add(row.Status, row.Count)
	}
	return stats, nil
}

func (r *reportRepository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, nil)
}

// conditionalUpdate applies update atomically when filter matches.
func (r *reportRepository) conditionalUpdate(ctx context.Context, oid primitive.ObjectID, filter, update bson.M) (*domain.Report, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc reportDocument
	err := r.reports.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missOrConflict(ctx, oid)
	}
	if err != nil {
		return nil, err
	}
	report := doc.toDomain()
	return &report, nil
}

func (r *reportRepository) missOrConflict(ctx context.Context, oid primitive.ObjectID) error {
	count, err := r.reports.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConditionFailed
}

func (r *reportRepository) summaries(ctx context.Context, docs []reportDocument) (map[string]domain.UserSummary, error) {
	seen := map[primitive.ObjectID]struct{}{}
	ids := []primitive.ObjectID{}
	for _, doc := range docs {
		for _, ref := range []*primitive.ObjectID{doc.CreatedBy, doc.AssignedTo} {
			if ref == nil {
				continue
			}
			if _, dup := seen[*ref]; dup {
				continue
			}
			seen[*ref] = struct{}{}
			ids = append(ids, *ref)
		}
	}
	out := make(map[string]domain.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	projection := options.Find().SetProjection(bson.M{"firstName": 1, "lastName": 1, "name": 1})
	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, projection)
	if err != nil {
		return nil, err
	}
	var users []userDocument
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID.Hex()] = u.summary()
	}
	return out, nil
}

func populate(ref *domain.UserRef, summaries map[string]domain.UserSummary) *domain.UserRef {
	if ref == nil {
		return nil
	}
	if summary, ok := summaries[ref.ID]; ok {
		return domain.Resolved(summary)
	}
	return ref
}

func filterDocument(filter repository.ReportFilter) (bson.M, bool) {
	query := bson.M{}
	if filter.AssignedTo != nil {
		oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(*filter.AssignedTo))
		if err != nil {
			return nil, false
		}
		query["assignedTo"] = oid
	}
	return query, true
}
