package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"grindlog/internal/digest"
)

const (
	DefaultDatabase   = "grindLog"
	DefaultCollection = "problems"
	DefaultTimeField  = "timestamp"
)

type Config struct {
	MongoURI   string `json:"mongo_uri,omitempty"`
	Database   string `json:"database,omitempty"`
	Collection string `json:"collection,omitempty"`
	TimeField  string `json:"time_field,omitempty"`
	// RecipientField, when set, restricts documents to the recipient's email.
	// Empty means the collection is shared by every recipient.
	RecipientField string `json:"recipient_field,omitempty"`

	ConnectTimeoutSeconds int `json:"connect_timeout_seconds,omitempty"`
}

func (c Config) WithDefaults() Config {
	out := c
	if strings.TrimSpace(out.Database) == "" {
		out.Database = DefaultDatabase
	}
	if strings.TrimSpace(out.Collection) == "" {
		out.Collection = DefaultCollection
	}
	if strings.TrimSpace(out.TimeField) == "" {
		out.TimeField = DefaultTimeField
	}
	if out.ConnectTimeoutSeconds <= 0 {
		out.ConnectTimeoutSeconds = 10
	}
	return out
}

// problemDoc mirrors the tracker's stored problem. SolvedAt is read from the
// configured time field, not from a fixed key.
type problemDoc struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Title    string             `bson:"title"`
	Platform string             `bson:"platform"`
	URL      string             `bson:"url"`
	SolvedAt time.Time          `bson:"-"`
}

func decodeProblem(raw bson.Raw, timeField string) (problemDoc, error) {
	var doc problemDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return problemDoc{}, err
	}
	val, err := raw.LookupErr(strings.Split(timeField, ".")...)
	if err != nil {
		return doc, nil
	}
	if t, ok := val.TimeOK(); ok {
		doc.SolvedAt = t.UTC()
	}
	return doc, nil
}

type MongoSource struct {
	client     *mongo.Client
	collection *mongo.Collection
	cfg        Config
}

func Connect(ctx context.Context, cfg Config) (*MongoSource, error) {
	c := cfg.WithDefaults()
	uri := strings.TrimSpace(c.MongoURI)
	if uri == "" {
		return nil, errors.New("activity.mongo_uri is required")
	}
	connectCtx, cancel := context.WithTimeout(ctx, time.Duration(c.ConnectTimeoutSeconds)*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoSource{
		client:     client,
		collection: client.Database(c.Database).Collection(c.Collection),
		cfg:        c,
	}, nil
}

func (s *MongoSource) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *MongoSource) SolvedItems(ctx context.Context, recipient digest.Recipient, window digest.TimeWindow) ([]digest.SolvedItem, error) {
	filter := buildFilter(s.cfg, recipient, window)
	opts := options.Find().SetSort(bson.D{{Key: s.cfg.TimeField, Value: 1}})
	cur, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", s.cfg.Collection, err)
	}
	defer cur.Close(ctx)

	var docs []problemDoc
	for cur.Next(ctx) {
		doc, err := decodeProblem(cur.Current, s.cfg.TimeField)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.cfg.Collection, err)
		}
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.cfg.Collection, err)
	}
	return toItems(docs), nil
}

// buildFilter selects documents whose time field lies in [start, end).
func buildFilter(cfg Config, recipient digest.Recipient, window digest.TimeWindow) bson.M {
	filter := bson.M{
		cfg.TimeField: bson.M{
			"$gte": window.Start.UTC(),
			"$lt":  window.End.UTC(),
		},
	}
	if field := strings.TrimSpace(cfg.RecipientField); field != "" {
		filter[field] = strings.TrimSpace(recipient.Address)
	}
	return filter
}

func toItems(docs []problemDoc) []digest.SolvedItem {
	items := make([]digest.SolvedItem, 0, len(docs))
	for _, d := range docs {
		title := strings.TrimSpace(d.Title)
		if title == "" {
			title = "(untitled)"
		}
		items = append(items, digest.SolvedItem{
			Title:    title,
			Platform: strings.TrimSpace(d.Platform),
			URL:      strings.TrimSpace(d.URL),
			SolvedAt: d.SolvedAt,
		})
	}
	return items
}
