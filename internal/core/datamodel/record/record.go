package record

import "time"

// SecureRecord is the envelope header row. Field plaintext never touches
// this table; values live in record_fields as ciphertext only.
type SecureRecord struct {
	ID string `gorm:"primaryKey;size:36"`
	// Kind is the record family: patient, xray or equipment.
	Kind string `gorm:"column:kind;index;not null"`
	// SearchToken is a normalized cleartext token for a designated
	// indexable field (e.g. lowercased patient name). It exists so search
	// can narrow candidates without decrypting the whole table.
	SearchToken string    `gorm:"column:search_token;index"`
	KeyVersion  int       `gorm:"column:key_version;not null"`
	CreatedBy   int64     `gorm:"column:created_by;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`

	Fields []Field `gorm:"foreignKey:RecordID"`
}

func (SecureRecord) TableName() string { return "secure_records" }

// Field holds one independently encrypted field value.
type Field struct {
	ID         int64  `gorm:"primaryKey"`
	RecordID   string `gorm:"column:record_id;index:idx_record_field,unique;size:36;not null"`
	Name       string `gorm:"column:name;index:idx_record_field,unique;not null"`
	Ciphertext []byte `gorm:"column:ciphertext;not null"`
}

func (Field) TableName() string { return "record_fields" }
