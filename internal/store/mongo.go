package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/rflorenc/scm-migration-workbench/internal/diff"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

// MongoStore keeps each collection in a MongoDB collection of the same
// name.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects and pings the server.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	if database == "" {
		database = "workbench"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

func (s *MongoStore) exists(ctx context.Context, collection string) (bool, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.M{"name": collection})
	if err != nil {
		return false, fmt.Errorf("listing collections: %w", err)
	}
	return len(names) > 0, nil
}

// ListAll returns every record of a collection in insertion order.
func (s *MongoStore) ListAll(ctx context.Context, collection string) ([]models.Resource, error) {
	ok, err := s.exists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, noCollection(collection)
	}
	cur, err := s.db.Collection(collection).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("reading %s: %w", collection, err)
	}
	out := make([]models.Resource, 0, len(docs))
	for _, d := range docs {
		r, err := fromBSON(d)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", collection, err)
		}
		out = append(out, r)
	}
	if err := Validate(collection, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns the record whose id matches, numeric or string.
func (s *MongoStore) GetByID(ctx context.Context, collection string, id models.ID) (models.Resource, bool, error) {
	filter := bson.M{"id": string(id)}
	if n, ok := id.Int(); ok {
		filter = bson.M{"$or": bson.A{bson.M{"id": n}, bson.M{"id": string(id)}}}
	}
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying %s: %w", collection, err)
	}
	r, err := fromBSON(doc)
	if err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", collection, err)
	}
	return r, true, nil
}

// Write replaces the contents of a collection.
func (s *MongoStore) Write(ctx context.Context, collection string, records []models.Resource) error {
	if err := Validate(collection, records); err != nil {
		return err
	}
	coll := s.db.Collection(collection)
	if err := coll.Drop(ctx); err != nil {
		return fmt.Errorf("clearing %s: %w", collection, err)
	}
	if len(records) == 0 {
		// keep an empty collection so readers can tell it was written
		if err := s.db.CreateCollection(ctx, collection); err != nil && !isNamespaceExists(err) {
			return fmt.Errorf("creating %s: %w", collection, err)
		}
		return nil
	}
	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = map[string]interface{}(r)
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("writing %s: %w", collection, err)
	}
	return nil
}

// WriteReport stores the report in its diff_report_<kind> collection.
func (s *MongoStore) WriteReport(ctx context.Context, r *diff.Report) error {
	records, err := reportRecords(r)
	if err != nil {
		return err
	}
	return s.Write(ctx, ReportCollection(r.Kind), records)
}

// ReadReport loads a stored report.
func (s *MongoStore) ReadReport(ctx context.Context, kind string) (*diff.Report, error) {
	records, err := s.ListAll(ctx, ReportCollection(kind))
	if err != nil {
		return nil, err
	}
	return reportFromRecords(kind, records)
}

// DropReports removes every diff_report_* collection.
func (s *MongoStore) DropReports(ctx context.Context) error {
	names, err := s.db.ListCollectionNames(ctx, bson.M{"name": bson.M{"$regex": "^" + reportPrefix}})
	if err != nil {
		return fmt.Errorf("listing report collections: %w", err)
	}
	for _, n := range names {
		if err := s.db.Collection(n).Drop(ctx); err != nil {
			return fmt.Errorf("dropping %s: %w", n, err)
		}
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// fromBSON converts a stored document to a Resource through relaxed
// extended JSON so numbers come back as plain JSON numbers.
func fromBSON(doc bson.M) (models.Resource, error) {
	delete(doc, "_id")
	b, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, err
	}
	var r models.Resource
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func isNamespaceExists(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return ce.Code == 48
	}
	return strings.Contains(err.Error(), "already exists")
}
