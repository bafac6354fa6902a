// Package mongo reads attendees from the remote MongoDB roster.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"confagenda/internal/attendee"
	appLog "confagenda/internal/log"
	"confagenda/internal/model"
)

const (
	DefaultDatabase   = "userlist"
	DefaultCollection = "attendees"

	fieldEmail  = "Email"
	fieldPegaID = "Pega ID"
)

// Store is a read-mostly view over the attendee collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect dials uri and verifies the connection with a ping. Empty database
// and collection names fall back to the defaults.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}

	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	s := &Store{client: client, coll: client.Database(database).Collection(collection)}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	appLog.Info("mongo attendee store connected", "database", database, "collection", collection)
	return s, nil
}

func (s *Store) Name() string { return "mongo" }

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("mongo store is not connected")
	}
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

// Disconnect closes the client.
func (s *Store) Disconnect(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// FindUser matches the email first, then the Pega ID, both as anchored
// case-insensitive literals.
func (s *Store) FindUser(ctx context.Context, identifier string) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	if s == nil || s.coll == nil {
		return model.User{}, fmt.Errorf("mongo store is not connected")
	}
	id := strings.TrimSpace(identifier)
	if id == "" {
		return model.User{}, attendee.ErrNotFound
	}

	for _, field := range []string{fieldEmail, fieldPegaID} {
		var doc document
		err := s.coll.FindOne(ctx, exactFilter(field, id)).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return model.User{}, fmt.Errorf("find attendee by %s: %w", field, err)
		}
		return attendee.FromRecord(doc.record()), nil
	}
	return model.User{}, attendee.ErrNotFound
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil || s.coll == nil {
		return 0, fmt.Errorf("mongo store is not connected")
	}
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count attendees: %w", err)
	}
	return int(n), nil
}

// Sample returns up to limit attendees in natural order.
func (s *Store) Sample(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 {
		return []model.User{}, nil
	}
	records, err := s.find(ctx, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(records))
	for _, rec := range records {
		users = append(users, attendee.FromRecord(rec))
	}
	return users, nil
}

// Records returns every document in the collection as raw attendee records.
func (s *Store) Records(ctx context.Context) ([]model.AttendeeRecord, error) {
	return s.find(ctx)
}

func (s *Store) find(ctx context.Context, opts ...*options.FindOptions) ([]model.AttendeeRecord, error) {
	if s == nil || s.coll == nil {
		return nil, fmt.Errorf("mongo store is not connected")
	}
	cur, err := s.coll.Find(ctx, bson.D{}, opts...)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer cur.Close(ctx)

	records := []model.AttendeeRecord{}
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode attendee: %w", err)
		}
		records = append(records, doc.record())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return records, nil
}

func exactFilter(field, value string) bson.D {
	return bson.D{{Key: field, Value: primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(value) + "$",
		Options: "i",
	}}}
}

// document mirrors the roster collection. The delivery circle is stored as
// either a number or a string depending on how the row was imported.
type document struct {
	PegaID           string        `bson:"Pega ID"`
	Email            string        `bson:"Email"`
	DeliveryCircle   bson.RawValue `bson:"Delivery Circle Breakout"`
	RegionalBreakout string        `bson:"Regional Breakout"`
	PreferredName    string        `bson:"Preferred Name"`
	LastName         string        `bson:"Last Name"`
}

func (d document) record() model.AttendeeRecord {
	return model.AttendeeRecord{
		PegaID:           d.PegaID,
		Email:            d.Email,
		DeliveryCircle:   model.DeliveryCircle(circleString(d.DeliveryCircle)),
		RegionalBreakout: d.RegionalBreakout,
		PreferredName:    d.PreferredName,
		LastName:         d.LastName,
	}
}

func circleString(v bson.RawValue) string {
	switch v.Type {
	case bson.TypeString:
		s, _ := v.StringValueOK()
		return s
	case bson.TypeInt32:
		n, _ := v.Int32OK()
		return strconv.FormatInt(int64(n), 10)
	case bson.TypeInt64:
		n, _ := v.Int64OK()
		return strconv.FormatInt(n, 10)
	case bson.TypeDouble:
		f, _ := v.DoubleOK()
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'f', 0, 64)
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return ""
	}
}
