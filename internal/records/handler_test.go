package records_test

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/clinical-records/internal"
	"github.com/frahmantamala/clinical-records/internal/audit"
	auditStore "github.com/frahmantamala/clinical-records/internal/audit/store"
	auditDatamodel "github.com/frahmantamala/clinical-records/internal/core/datamodel/audit"
	recordDatamodel "github.com/frahmantamala/clinical-records/internal/core/datamodel/record"
	"github.com/frahmantamala/clinical-records/internal/crypto"
	"github.com/frahmantamala/clinical-records/internal/rbac"
	"github.com/frahmantamala/clinical-records/internal/records"
	recordStore "github.com/frahmantamala/clinical-records/internal/records/store"
)

var _ = Describe("Records Handler Integration", func() {
	var (
		router    *chi.Mux
		db        *gorm.DB
		auditRepo audit.Repository
	)

	techSession := &internal.SessionInfo{UserID: 2, Username: "tech1", Role: "technician"}
	adminSession := &internal.SessionInfo{UserID: 1, Username: "admin", Role: "admin"}

	// injects a fixed session the way the auth middleware would
	withSession := func(sess *internal.SessionInfo) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(internal.ContextWithSession(r.Context(), sess)))
			})
		}
	}

	buildRouter := func(sess *internal.SessionInfo) *chi.Mux {
		slogger := slog.New(slog.NewTextHandler(io.Discard, nil))

		key := make([]byte, 32)
		_, err := rand.Read(key)
		Expect(err).NotTo(HaveOccurred())
		cipher, err := crypto.NewService(key)
		Expect(err).NotTo(HaveOccurred())

		auditRepo = auditStore.NewAuditRepository(db)
		auditor := audit.NewService(auditRepo, rbac.Default(), slogger)
		service := records.NewService(recordStore.NewRecordRepository(db), cipher, auditor, rbac.Default(), slogger)
		handler := records.NewHandler(service)

		r := chi.NewRouter()
		r.Group(func(pr chi.Router) {
			pr.Use(withSession(sess))
			pr.Route("/records/{kind}", func(rr chi.Router) {
				rr.Post("/", handler.Write)
				rr.Get("/search", handler.Search)
				rr.Get("/{id}", handler.Read)
			})
		})
		return r
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&recordDatamodel.SecureRecord{}, &recordDatamodel.Field{}, &auditDatamodel.Entry{})
		Expect(err).NotTo(HaveOccurred())

		router = buildRouter(techSession)
	})

	writeRecord := func(kind string, body map[string]any) *httptest.ResponseRecorder {
		payload, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodPost, "/records/"+kind+"/", bytes.NewReader(payload))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("POST /records/{kind}", func() {
		It("should create a record and return the decrypted view", func() {
			w := writeRecord("patient", map[string]any{
				"fields": map[string]string{"name": "Jane Doe", "mrn": "MRN-1"},
			})

			Expect(w.Code).To(Equal(http.StatusCreated))

			var rec records.Record
			Expect(json.NewDecoder(w.Body).Decode(&rec)).To(Succeed())
			Expect(rec.ID).NotTo(BeEmpty())
			Expect(rec.Fields["name"]).To(Equal("Jane Doe"))
		})

		It("should reject an unknown kind", func() {
			w := writeRecord("billing", map[string]any{
				"fields": map[string]string{"name": "x"},
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("should return forbidden when the role lacks the permission", func() {
			w := writeRecord("equipment", map[string]any{
				"fields": map[string]string{"name": "CT scanner"},
			})
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("should return bad request for a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/records/patient/", bytes.NewReader([]byte("{not json")))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /records/{kind}/{id}", func() {
		It("should read back a written record", func() {
			w := writeRecord("patient", map[string]any{
				"fields": map[string]string{"name": "Jane Doe"},
			})
			Expect(w.Code).To(Equal(http.StatusCreated))

			var created records.Record
			Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())

			req := httptest.NewRequest(http.MethodGet, "/records/patient/"+created.ID, nil)
			got := httptest.NewRecorder()
			router.ServeHTTP(got, req)

			Expect(got.Code).To(Equal(http.StatusOK))
			var rec records.Record
			Expect(json.NewDecoder(got.Body).Decode(&rec)).To(Succeed())
			Expect(rec.Fields["name"]).To(Equal("Jane Doe"))
		})

		It("should return not found for a missing id", func() {
			req := httptest.NewRequest(http.MethodGet, "/records/patient/no-such-id", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /records/{kind}/search", func() {
		BeforeEach(func() {
			for _, name := range []string{"Jane Doe", "Alice Smith"} {
				w := writeRecord("patient", map[string]any{"fields": map[string]string{"name": name}})
				Expect(w.Code).To(Equal(http.StatusCreated))
			}
		})

		It("should return matching records", func() {
			req := httptest.NewRequest(http.MethodGet, "/records/patient/search?q=doe", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var matches []records.Record
			Expect(json.NewDecoder(w.Body).Decode(&matches)).To(Succeed())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].Fields["name"]).To(Equal("Jane Doe"))
		})
	})

	Describe("audit trail through the handler", func() {
		It("should record one entry per request", func() {
			Expect(writeRecord("patient", map[string]any{"fields": map[string]string{"name": "Jane Doe"}}).Code).To(Equal(http.StatusCreated))
			Expect(writeRecord("equipment", map[string]any{"fields": map[string]string{"name": "CT"}}).Code).To(Equal(http.StatusForbidden))

			entries, err := auditRepo.Query(audit.QueryFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Action).To(Equal(audit.ActionWrite))
			Expect(entries[1].Action).To(Equal(audit.ActionPermissionDenied))
		})
	})

	Describe("admin role", func() {
		It("should be allowed to write equipment records", func() {
			router = buildRouter(adminSession)
			w := writeRecord("equipment", map[string]any{
				"fields": map[string]string{"name": "CT scanner", "serial": "SN-1"},
			})
			Expect(w.Code).To(Equal(http.StatusCreated))
		})
	})
})
