// Package records is the facade the rest of the application talks to for
// patient, imaging and equipment data. Every operation is authorized,
// encrypted field by field, and audited before a result is returned.
// Plaintext never reaches storage.
package records

import (
	"strings"
	"time"

	"github.com/frahmantamala/clinical-records/internal/rbac"
)

// Kind is the record family. The set is closed; each kind maps onto an
// authorization resource.
type Kind string

const (
	KindPatient   Kind = "patient"
	KindXRay      Kind = "xray"
	KindEquipment Kind = "equipment"
)

var kinds = map[Kind]rbac.Resource{
	KindPatient:   rbac.ResourcePatient,
	KindXRay:      rbac.ResourceXRay,
	KindEquipment: rbac.ResourceEquipment,
}

func ParseKind(name string) (Kind, bool) {
	k := Kind(strings.ToLower(name))
	_, ok := kinds[k]
	return k, ok
}

func (k Kind) Resource() rbac.Resource {
	return kinds[k]
}

// searchFields designates, per kind, the one field whose normalized value
// is kept as a cleartext search token beside the ciphertext. Field-level
// encryption with random nonces makes ciphertext unsearchable, so lookups
// narrow on this token and then decrypt only the candidates.
var searchFields = map[Kind]string{
	KindPatient:   "name",
	KindXRay:      "body_part",
	KindEquipment: "name",
}

// Record is the decrypted, caller-facing view.
type Record struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	Fields    map[string]string `json:"fields"`
	CreatedBy int64             `json:"created_by"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// StoredRecord is the persisted envelope: header metadata plus one
// ciphertext per field.
type StoredRecord struct {
	ID          string
	Kind        Kind
	SearchToken string
	KeyVersion  int
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Fields      map[string][]byte
}

// Repository persists envelopes. Save replaces the full field set
// atomically: either the new envelope and all its fields land, or prior
// state is untouched.
type Repository interface {
	Save(rec *StoredRecord) error
	Get(kind Kind, id string) (*StoredRecord, error)
	FindByToken(kind Kind, token string) ([]*StoredRecord, error)
}

// FieldCipher is the slice of the crypto service this package needs.
type FieldCipher interface {
	EncryptField(plaintext []byte) ([]byte, error)
	DecryptField(envelope []byte) ([]byte, error)
}

// NormalizeToken lowercases and trims an indexable value the same way at
// write and search time.
func NormalizeToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
