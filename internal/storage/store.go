package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pkgz/repeater/v2"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"

	"github.com/pders01/wikan/internal/api"
	"github.com/pders01/wikan/internal/debuglog"
)

// Store persists saved articles in a bbolt bucket keyed by sequential id.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// NewStore opens the database at dbPath. A file locked by another process
// is retried with backoff until ctx is done or the attempts run out.
func NewStore(ctx context.Context, dbPath string, lockTimeout time.Duration) (*Store, error) {
	if lockTimeout <= 0 {
		lockTimeout = time.Second
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	var db *bolt.DB
	var permanent error
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err := retrier.Do(ctx, func() error {
		var openErr error
		db, openErr = bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: lockTimeout})
		if errors.Is(openErr, berrors.ErrTimeout) {
			debuglog.Warnf("database %s is locked, retrying", dbPath)
			return openErr
		}
		permanent = openErr
		return nil
	})
	if err == nil {
		err = permanent
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{articlesBucket, metaBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return tx.Bucket(metaBucket).Put(schemaVersionKey, []byte(fmt.Sprint(schemaVersion)))
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Create stores a new article and returns it with its id and timestamps.
func (s *Store) Create(article api.ArticleCreate) (*api.SavedArticle, error) {
	if article.FrequentWords == nil {
		article.FrequentWords = api.Frequencies{}
	}
	saved := api.SavedArticle{ArticleCreate: article}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		now := s.now()
		saved.ID = int64(seq)
		saved.CreatedAt = api.Timestamp{Time: now}
		saved.SavedAt = api.Timestamp{Time: now}
		return put(b, &saved)
	})
	if err != nil {
		return nil, fmt.Errorf("creating article: %w", err)
	}
	return &saved, nil
}

func (s *Store) Get(id int64) (*api.SavedArticle, error) {
	var article api.SavedArticle
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(articlesBucket).Get(idKey(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &article)
	})
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// List returns up to limit articles after skipping skip, oldest first.
func (s *Store) List(skip, limit int) ([]api.SavedArticle, error) {
	articles := []api.SavedArticle{}
	if limit <= 0 {
		return articles, nil
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(articlesBucket).Cursor()
		i := 0
		for k, v := c.First(); k != nil && len(articles) < limit; k, v = c.Next() {
			if i < skip {
				i++
				continue
			}
			var article api.SavedArticle
			if err := json.Unmarshal(v, &article); err != nil {
				debuglog.Warnf("skipping unreadable article %d: %v", keyID(k), err)
				continue
			}
			articles = append(articles, article)
		}
		return nil
	})
	return articles, err
}

// All returns every stored article, oldest first.
func (s *Store) All() ([]api.SavedArticle, error) {
	var articles []api.SavedArticle
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(articlesBucket).ForEach(func(k, v []byte) error {
			var article api.SavedArticle
			if err := json.Unmarshal(v, &article); err != nil {
				debuglog.Warnf("skipping unreadable article %d: %v", keyID(k), err)
				return nil
			}
			articles = append(articles, article)
			return nil
		})
	})
	return articles, err
}

func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(articlesBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// UpdateNotes replaces the personal notes of an article. nil clears them.
func (s *Store) UpdateNotes(id int64, notes *string) (*api.SavedArticle, error) {
	var article api.SavedArticle
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		data := b.Get(idKey(id))
		if data == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(data, &article); err != nil {
			return err
		}
		article.PersonalNotes = api.NormalizeNotes(notes)
		return put(b, &article)
	})
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (s *Store) Delete(id int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		if b.Get(idKey(id)) == nil {
			return ErrNotFound
		}
		return b.Delete(idKey(id))
	})
}

func put(b *bolt.Bucket, article *api.SavedArticle) error {
	data, err := json.Marshal(article)
	if err != nil {
		return err
	}
	return b.Put(idKey(article.ID), data)
}
