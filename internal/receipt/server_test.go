package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/xuri/excelize/v2"
)

// uploadBody builds a multipart body with a single "file" part
func uploadBody(filename, contentType string, data []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(h)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

func decodeError(resp *http.Response) string {
	var body map[string]string
	Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
	return body["error"]
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		scanner     *mockScanner
		service     *Service
		auth        BasicAuth
		ghttpServer *ghttp.Server
		resp        *http.Response
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		scanner = newMockScanner()
		auth = BasicAuth{}
		service = NewServiceWithDeps(db, scanner, storage,
			&mockIDGenerator{id: "test-id-123"},
			&mockTimeSource{now: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)},
		)
	})

	// JustBeforeEach so each When can adjust service and auth first
	JustBeforeEach(func() {
		server := NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	})

	AfterEach(func() {
		if resp != nil {
			resp.Body.Close()
			resp = nil
		}
		ghttpServer.Close()
	})

	do := func(method, path string, body io.Reader, contentType string) *http.Response {
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		r, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return r
	}

	Describe("GET /health", func() {
		It("should report ok with a timestamp", func() {
			resp = do(http.MethodGet, "/health", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]string
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("status", "ok"))
			Expect(body).To(HaveKeyWithValue("timestamp", "2024-03-05T10:00:00Z"))
		})

		When("basic auth is configured", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
			})

			It("should not require credentials", func() {
				resp = do(http.MethodGet, "/health", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})
		})
	})

	Describe("GET /api/receipts", func() {
		When("receipts exist", func() {
			BeforeEach(func() {
				db.receipts["id1"] = &Receipt{ID: "id1"}
				db.receipts["id2"] = &Receipt{ID: "id2"}
			})

			It("should return all receipts as JSON", func() {
				resp = do(http.MethodGet, "/api/receipts", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
				var receipts []*Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipts)).To(Succeed())
				Expect(receipts).To(HaveLen(2))
			})
		})

		When("no receipts exist", func() {
			It("should return an empty array", func() {
				resp = do(http.MethodGet, "/api/receipts", nil, "")
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(strings.TrimSpace(string(body))).To(Equal("[]"))
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.listErr = errors.New("db error")
			})

			It("should return a generic 500", func() {
				resp = do(http.MethodGet, "/api/receipts", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(decodeError(resp)).To(Equal("Internal server error"))
			})
		})
	})

	Describe("POST /api/receipts", func() {
		var (
			filename    string
			contentType string
			data        []byte
		)

		BeforeEach(func() {
			filename = "scan.jpg"
			contentType = "image/jpeg"
			data = []byte("fake image data")
		})

		upload := func() *http.Response {
			body, formType := uploadBody(filename, contentType, data)
			return do(http.MethodPost, "/api/receipts", body, formType)
		}

		When("the upload succeeds", func() {
			It("should return 201 with the extracted receipt", func() {
				resp = upload()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				var receipt Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipt)).To(Succeed())
				Expect(receipt.ID).To(Equal("test-id-123"))
				Expect(receipt.Data.Amount).To(HaveValue(Equal(42.80)))
				Expect(receipt.Data.VendorName).To(Equal("SUPERMERCADO EL SOL"))
				Expect(db.receipts).To(HaveKey("test-id-123"))
			})
		})

		When("the part has no content type", func() {
			BeforeEach(func() {
				filename = "scan.PDF"
				contentType = ""
			})

			It("should infer it from the extension", func() {
				resp = upload()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(scanner.contentType).To(Equal("application/pdf"))
			})
		})

		When("the file type is unsupported", func() {
			BeforeEach(func() {
				filename = "notes.txt"
				contentType = "text/plain"
			})

			It("should return 400", func() {
				resp = upload()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeError(resp)).To(ContainSubstring("unsupported file type"))
			})
		})

		When("the file is too large", func() {
			BeforeEach(func() {
				service.SetMaxUploadBytes(4)
			})

			It("should return 413", func() {
				resp = upload()
				Expect(resp.StatusCode).To(Equal(http.StatusRequestEntityTooLarge))
			})
		})

		When("no file part is sent", func() {
			It("should return 400", func() {
				body := &bytes.Buffer{}
				writer := multipart.NewWriter(body)
				Expect(writer.WriteField("other", "value")).To(Succeed())
				Expect(writer.Close()).To(Succeed())

				resp = do(http.MethodPost, "/api/receipts", body, writer.FormDataContentType())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeError(resp)).To(Equal(ErrNoFile.Error()))
			})
		})

		When("scanning fails", func() {
			BeforeEach(func() {
				scanner.scanErr = errors.New("tesseract missing")
			})

			It("should return 500 without leaking details", func() {
				resp = upload()
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(decodeError(resp)).To(Equal("Internal server error"))
				Expect(storage.files).To(BeEmpty())
			})
		})
	})

	Describe("GET /api/receipts/{id}", func() {
		When("the receipt exists", func() {
			BeforeEach(func() {
				db.receipts["abc"] = &Receipt{ID: "abc", Filename: "scan.jpg"}
			})

			It("should return it", func() {
				resp = do(http.MethodGet, "/api/receipts/abc", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var receipt Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipt)).To(Succeed())
				Expect(receipt.Filename).To(Equal("scan.jpg"))
			})
		})

		When("the receipt does not exist", func() {
			It("should return 404 with a JSON error", func() {
				resp = do(http.MethodGet, "/api/receipts/missing", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				Expect(decodeError(resp)).To(Equal("Receipt not found"))
			})
		})
	})

	Describe("GET /api/receipts/{id}/file", func() {
		BeforeEach(func() {
			db.receipts["abc"] = &Receipt{ID: "abc", Path: "abc_scan.png", ContentType: "image/png"}
			storage.files["abc_scan.png"] = []byte("png bytes")
		})

		It("should return the original bytes", func() {
			resp = do(http.MethodGet, "/api/receipts/abc/file", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("png bytes"))
		})
	})

	Describe("DELETE /api/receipts/{id}", func() {
		When("the receipt exists", func() {
			BeforeEach(func() {
				db.receipts["abc"] = &Receipt{ID: "abc", Path: "abc_scan.png"}
				storage.files["abc_scan.png"] = []byte("png bytes")
			})

			It("should return 204 and remove everything", func() {
				resp = do(http.MethodDelete, "/api/receipts/abc", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				Expect(db.receipts).To(BeEmpty())
				Expect(storage.files).To(BeEmpty())
			})
		})

		When("the receipt does not exist", func() {
			It("should return 404", func() {
				resp = do(http.MethodDelete, "/api/receipts/missing", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("GET /api/receipts/export", func() {
		BeforeEach(func() {
			db.receipts["abc"] = &Receipt{ID: "abc", UploadedAt: time.Now()}
		})

		It("should download a workbook", func() {
			resp = do(http.MethodGet, "/api/receipts/export", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("receipts.xlsx"))

			f, err := excelize.OpenReader(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()
			rows, err := f.GetRows(exportSheet)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[1][0]).To(Equal("abc"))
		})
	})

	Describe("POST /api/parse", func() {
		It("should return the extracted fields", func() {
			resp = do(http.MethodPost, "/api/parse", strings.NewReader(`{"text":"Cajero: MARIA\nTOTAL 10.00"}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("vendorName", "MARIA"))
			Expect(body).To(HaveKeyWithValue("amount", 10.0))
			Expect(db.receipts).To(BeEmpty())
		})

		It("should reject empty text", func() {
			resp = do(http.MethodPost, "/api/parse", strings.NewReader(`{"text":"   "}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decodeError(resp)).To(Equal(ErrEmptyText.Error()))
		})

		It("should reject malformed JSON", func() {
			resp = do(http.MethodPost, "/api/parse", strings.NewReader(`{`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			resp = do(http.MethodOptions, "/api/receipts", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
		})

		It("should reject missing credentials", func() {
			resp = do(http.MethodGet, "/api/receipts", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("should accept valid credentials", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/receipts", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("user", "pass")
			resp, err = http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should reject a wrong password", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/receipts", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("user", "nope")
			resp, err = http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})
})
