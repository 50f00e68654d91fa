package respcache

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BadgerStore keeps entries in a badger database, gob-encoded.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) BadgerStore {
	return BadgerStore{db: db}
}

func (s BadgerStore) Get(ctx context.Context, key string) (Entry, error) {
	_, span := tracer.Start(ctx, "badger:get")
	defer span.End()
	span.SetAttributes(attribute.KeyValue{
		Key:   "cache_key",
		Value: attribute.StringValue(key),
	})

	tx := s.db.NewTransaction(false)
	defer tx.Discard()
	item, err := tx.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return Entry{}, err
	}
	serialized, err := item.ValueCopy(nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy cached item")
		return Entry{}, err
	}

	var cached Entry
	err = gob.NewDecoder(bytes.NewBuffer(serialized)).Decode(&cached)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deserialize cached item")
		return Entry{}, err
	}

	if cached.ExpiresAt > 0 && time.Now().Unix() >= cached.ExpiresAt {
		span.AddEvent("delete expired cache key", trace.WithAttributes(attribute.KeyValue{
			Key:   "key",
			Value: attribute.StringValue(key),
		}))

		tx := s.db.NewTransaction(true)
		defer tx.Commit()
		err = tx.Delete([]byte(key))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to delete expired key")
		}
		return Entry{}, ErrNotFound
	}

	return cached, nil
}

func (s BadgerStore) Put(ctx context.Context, key string, entry Entry) error {
	_, span := tracer.Start(ctx, "badger:put")
	defer span.End()
	span.SetAttributes(attribute.KeyValue{
		Key:   "cache_key",
		Value: attribute.StringValue(key),
	})

	serialized := bytes.NewBuffer(nil)
	err := gob.NewEncoder(serialized).Encode(entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize entry")
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Commit()
	err = tx.Set([]byte(key), serialized.Bytes())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
		return err
	}
	return nil
}
