package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/clinical-records/internal"
	datamodel "github.com/frahmantamala/clinical-records/internal/core/datamodel/record"
	"github.com/frahmantamala/clinical-records/internal/records"
)

// RecordRepository implements records.Repository using GORM.
type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) records.Repository {
	return &RecordRepository{db: db}
}

// Save upserts the envelope header and replaces the full field set in a
// single transaction, so a failed write leaves the previous envelope
// untouched.
func (r *RecordRepository) Save(rec *records.StoredRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing datamodel.SecureRecord
		err := tx.Where("id = ? AND kind = ?", rec.ID, string(rec.Kind)).First(&existing).Error
		switch {
		case err == nil:
			rec.CreatedBy = existing.CreatedBy
			rec.CreatedAt = existing.CreatedAt
			updates := map[string]interface{}{
				"search_token": rec.SearchToken,
				"key_version":  rec.KeyVersion,
				"updated_at":   rec.UpdatedAt,
			}
			if err := tx.Model(&datamodel.SecureRecord{}).
				Where("id = ?", rec.ID).
				Updates(updates).Error; err != nil {
				return err
			}
			if err := tx.Where("record_id = ?", rec.ID).
				Delete(&datamodel.Field{}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			header := datamodel.SecureRecord{
				ID:          rec.ID,
				Kind:        string(rec.Kind),
				SearchToken: rec.SearchToken,
				KeyVersion:  rec.KeyVersion,
				CreatedBy:   rec.CreatedBy,
				CreatedAt:   rec.CreatedAt,
				UpdatedAt:   rec.UpdatedAt,
			}
			if err := tx.Create(&header).Error; err != nil {
				return err
			}
		default:
			return err
		}

		for name, ciphertext := range rec.Fields {
			field := datamodel.Field{
				RecordID:   rec.ID,
				Name:       name,
				Ciphertext: ciphertext,
			}
			if err := tx.Create(&field).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RecordRepository) Get(kind records.Kind, id string) (*records.StoredRecord, error) {
	var header datamodel.SecureRecord
	err := r.db.Where("id = ? AND kind = ?", id, string(kind)).First(&header).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrNotFound
		}
		return nil, err
	}

	return r.load(&header)
}

// FindByToken returns envelopes whose search token contains the query
// token. An empty token matches every record of the kind.
func (r *RecordRepository) FindByToken(kind records.Kind, token string) ([]*records.StoredRecord, error) {
	q := r.db.Where("kind = ?", string(kind))
	if token != "" {
		q = q.Where("search_token LIKE ?", "%"+token+"%")
	}

	var headers []datamodel.SecureRecord
	if err := q.Order("created_at ASC").Find(&headers).Error; err != nil {
		return nil, err
	}

	result := make([]*records.StoredRecord, 0, len(headers))
	for i := range headers {
		rec, err := r.load(&headers[i])
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

func (r *RecordRepository) load(header *datamodel.SecureRecord) (*records.StoredRecord, error) {
	var fields []datamodel.Field
	if err := r.db.Where("record_id = ?", header.ID).Find(&fields).Error; err != nil {
		return nil, err
	}

	rec := &records.StoredRecord{
		ID:          header.ID,
		Kind:        records.Kind(header.Kind),
		SearchToken: header.SearchToken,
		KeyVersion:  header.KeyVersion,
		CreatedBy:   header.CreatedBy,
		CreatedAt:   header.CreatedAt,
		UpdatedAt:   header.UpdatedAt,
		Fields:      make(map[string][]byte, len(fields)),
	}
	for _, f := range fields {
		rec.Fields[f.Name] = f.Ciphertext
	}
	return rec, nil
}
