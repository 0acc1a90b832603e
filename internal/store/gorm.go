package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SergeSyntax/mock-server/internal/database"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// recordRow holds one record of any collection as a JSON payload.
type recordRow struct {
	Collection string         `gorm:"primaryKey;size:64;uniqueIndex:idx_records_unique_key,priority:1"`
	ID         string         `gorm:"primaryKey;size:64"`
	UniqueKey  *string        `gorm:"size:255;uniqueIndex:idx_records_unique_key,priority:2"`
	Seq        int64          `gorm:"not null;index"`
	Data       datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (recordRow) TableName() string { return "records" }

type collectionRow struct {
	Name     string `gorm:"primaryKey;size:64"`
	Position int    `gorm:"not null;default:0"`
}

func (collectionRow) TableName() string { return "collections" }

// GormStore keeps the document in a SQL database, one row per record.
// Uniqueness of Options.Unique fields is enforced by a unique index.
type GormStore struct {
	db   *gorm.DB
	opts Options
}

func NewGormStore(ctx context.Context, db *gorm.DB, opts Options) (*GormStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&collectionRow{}, &recordRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate records: %w", err)
	}
	s := &GormStore{db: db, opts: opts}
	if err := s.ensureCollections(db.WithContext(ctx), opts.Collections); err != nil {
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying connection for components sharing it.
func (s *GormStore) DB() *gorm.DB { return s.db }

func (s *GormStore) ensureCollections(tx *gorm.DB, names []string) error {
	if len(names) == 0 {
		return nil
	}
	rows := make([]collectionRow, len(names))
	for i, name := range names {
		rows[i] = collectionRow{Name: name, Position: i}
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to register collections: %w", err)
	}
	return nil
}

func (s *GormStore) Collections() []string {
	var rows []collectionRow
	if err := s.db.Order("position, name").Find(&rows).Error; err != nil {
		slog.Error("failed to list collections", "error", err)
		return nil
	}
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	return names
}

func (s *GormStore) requireCollection(tx *gorm.DB, name string) error {
	var count int64
	if err := tx.Model(&collectionRow{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up collection %s: %w", name, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return nil
}

func (s *GormStore) load(tx *gorm.DB, name string) ([]Record, error) {
	if err := s.requireCollection(tx, name); err != nil {
		return nil, err
	}
	var rows []recordRow
	if err := tx.Where("collection = ?", name).Order("seq, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *GormStore) List(ctx context.Context, collection string, q Query) (Page, error) {
	tx := s.db.WithContext(ctx)
	records, err := s.load(tx, collection)
	if err != nil {
		return Page{}, err
	}
	page := q.Apply(records)
	relate(page.Items, collection, q, func(name string) ([]Record, error) {
		return s.load(tx, name)
	})
	return page, nil
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (Record, error) {
	tx := s.db.WithContext(ctx)
	row, err := s.row(tx, collection, id)
	if err != nil {
		return nil, err
	}
	return row.record()
}

func (s *GormStore) row(tx *gorm.DB, collection, id string) (*recordRow, error) {
	if err := s.requireCollection(tx, collection); err != nil {
		return nil, err
	}
	var row recordRow
	err := tx.Where("collection = ? AND id = ?", collection, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%s: %w", collection, id, err)
	}
	return &row, nil
}

func (s *GormStore) Find(ctx context.Context, collection, field string, value any) (Record, error) {
	tx := s.db.WithContext(ctx)
	want := stringOf(value)

	if field == s.opts.Unique[collection] {
		if err := s.requireCollection(tx, collection); err != nil {
			return nil, err
		}
		var row recordRow
		err := tx.Where("collection = ? AND unique_key = ?", collection, want).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s where %s=%s", ErrNotFound, collection, field, want)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", collection, err)
		}
		return row.record()
	}

	records, err := s.load(tx, collection)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if v, ok := r[field]; ok && v != nil && stringOf(v) == want {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s where %s=%s", ErrNotFound, collection, field, want)
}

func (s *GormStore) Insert(ctx context.Context, collection string, rec Record) (Record, error) {
	rec = rec.Clone()
	if rec == nil {
		rec = Record{}
	}
	if rec.ID() == "" {
		rec["id"] = uuid.NewString()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireCollection(tx, collection); err != nil {
			return err
		}
		row, err := s.newRow(collection, rec, time.Now().UnixNano())
		if err != nil {
			return err
		}
		return s.translate(tx.Create(row).Error, collection, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *GormStore) Replace(ctx context.Context, collection, id string, rec Record) (Record, error) {
	return s.update(ctx, collection, id, func(Record) Record {
		out := rec.Clone()
		if out == nil {
			out = Record{}
		}
		return out
	})
}

func (s *GormStore) Patch(ctx context.Context, collection, id string, rec Record) (Record, error) {
	return s.update(ctx, collection, id, func(current Record) Record {
		return merge(current, rec)
	})
}

func (s *GormStore) update(ctx context.Context, collection, id string, change func(Record) Record) (Record, error) {
	var updated Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.row(tx, collection, id)
		if err != nil {
			return err
		}
		current, err := row.record()
		if err != nil {
			return err
		}
		updated = change(current)
		updated["id"] = current["id"]

		data, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		res := tx.Model(&recordRow{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{
				"data":       datatypes.JSON(data),
				"unique_key": s.uniqueKey(collection, updated),
				"updated_at": time.Now(),
			})
		return s.translate(res.Error, collection, updated)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.row(tx, collection, id); err != nil {
			return err
		}
		doc, err := s.snapshot(tx)
		if err != nil {
			return err
		}
		removals := dependents(doc, collection, id)
		removals[collection] = append(removals[collection], id)

		for name, ids := range removals {
			if err := tx.Where("collection = ? AND id IN ?", name, ids).Delete(&recordRow{}).Error; err != nil {
				return fmt.Errorf("failed to delete from %s: %w", name, err)
			}
		}
		return nil
	})
}

func (s *GormStore) Load(ctx context.Context, doc Document) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&recordRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear records: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&collectionRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear collections: %w", err)
		}

		names := collectionNames(doc, s.opts.Collections)
		for _, name := range s.opts.Collections {
			if _, ok := doc[name]; !ok {
				names = append(names, name)
			}
		}
		if err := s.ensureCollections(tx, names); err != nil {
			return err
		}

		base := time.Now().UnixNano()
		for _, name := range names {
			records := doc[name]
			if len(records) == 0 {
				continue
			}
			rows := make([]*recordRow, 0, len(records))
			for i, rec := range records {
				rec = rec.Clone()
				if rec.ID() == "" {
					rec["id"] = uuid.NewString()
				}
				row, err := s.newRow(name, rec, base+int64(i))
				if err != nil {
					return err
				}
				rows = append(rows, row)
			}
			if err := tx.CreateInBatches(rows, 200).Error; err != nil {
				return s.translate(err, name, nil)
			}
		}
		return nil
	})
}

func (s *GormStore) Snapshot(ctx context.Context) (Document, error) {
	return s.snapshot(s.db.WithContext(ctx))
}

func (s *GormStore) snapshot(tx *gorm.DB) (Document, error) {
	var names []collectionRow
	if err := tx.Find(&names).Error; err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	doc := make(Document, len(names))
	for _, n := range names {
		doc[n.Name] = []Record{}
	}

	var rows []recordRow
	if err := tx.Order("seq, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		doc[row.Collection] = append(doc[row.Collection], rec)
	}
	return doc, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	return database.Ping(s.db.WithContext(ctx))
}

func (s *GormStore) Close() error {
	return database.Close(s.db)
}

func (s *GormStore) newRow(collection string, rec Record, seq int64) (*recordRow, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return &recordRow{
		Collection: collection,
		ID:         rec.ID(),
		UniqueKey:  s.uniqueKey(collection, rec),
		Seq:        seq,
		Data:       datatypes.JSON(data),
	}, nil
}

func (s *GormStore) uniqueKey(collection string, rec Record) *string {
	v, ok := uniqueValue(rec, s.opts.Unique[collection])
	if !ok {
		return nil
	}
	return &v
}

func (s *GormStore) translate(err error, collection string, rec Record) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s/%s", ErrDuplicate, collection, rec.ID())
	}
	return fmt.Errorf("failed to write %s: %w", collection, err)
}

func (r recordRow) record() (Record, error) {
	var rec Record
	if err := json.Unmarshal(r.Data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", r.Collection, r.ID, err)
	}
	return rec, nil
}
