package store

import (
	"gorm.io/gorm"

	"github.com/frahmantamala/clinical-records/internal/audit"
	datamodel "github.com/frahmantamala/clinical-records/internal/core/datamodel/audit"
)

// AuditRepository implements audit.Repository using GORM.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &AuditRepository{db: db}
}

// Append inserts the entry with the next sequence number. The max+1 read
// and the insert share one transaction so a concurrent writer can never
// observe the same sequence.
func (r *AuditRepository) Append(entry *audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&datamodel.Entry{}).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}

		row := datamodel.Entry{
			Seq:        maxSeq + 1,
			Timestamp:  entry.Timestamp,
			UserID:     entry.UserID,
			Role:       entry.Role,
			Action:     string(entry.Action),
			Resource:   entry.Resource,
			ResourceID: entry.ResourceID,
			Outcome:    string(entry.Outcome),
			Reason:     entry.Reason,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		entry.Seq = row.Seq
		return nil
	})
}

// Query returns matching entries ordered by ascending sequence.
func (r *AuditRepository) Query(filter audit.QueryFilter) ([]*audit.Entry, error) {
	q := r.db.Model(&datamodel.Entry{}).Order("seq ASC")

	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != nil {
		q = q.Where("action = ?", string(*filter.Action))
	}
	if filter.From != nil {
		q = q.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("timestamp <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []datamodel.Entry
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]*audit.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &audit.Entry{
			Seq:        row.Seq,
			Timestamp:  row.Timestamp,
			UserID:     row.UserID,
			Role:       row.Role,
			Action:     audit.ActionKind(row.Action),
			Resource:   row.Resource,
			ResourceID: row.ResourceID,
			Outcome:    audit.Outcome(row.Outcome),
			Reason:     row.Reason,
		})
	}
	return entries, nil
}
