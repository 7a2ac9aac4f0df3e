package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/hairscan/internal/advice"
	"github.com/Brownie44l1/hairscan/internal/imageprep"
	"github.com/Brownie44l1/hairscan/internal/model"
	"github.com/Brownie44l1/hairscan/internal/pipeline"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type stubPredictor struct {
	out []float32
	err error
}

func (s *stubPredictor) Predict(ctx context.Context, input []float32) ([]float32, error) {
	return s.out, s.err
}

// headLice scores "Head Lice" at 97.43%.
func headLice() *stubPredictor {
	out := make([]float32, len(model.DefaultClassNames))
	out[3] = 0.9743
	out[7] = 0.0257
	return &stubPredictor{out: out}
}

func newRouter(t *testing.T, p model.Predictor, table *advice.Table, maxUpload int64) *gin.Engine {
	t.Helper()
	pl, err := pipeline.New(imageprep.New(8, 8), model.NewClassifier(p, nil), table, 0)
	if err != nil {
		t.Fatal(err)
	}
	r := gin.New()
	NewHandler(pl, maxUpload).Register(r)
	return r
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 10))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// oversizedPNG declares a 30000x30000 canvas in a PNG header without any
// pixel data behind it.
func oversizedPNG() []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], 30000)
	binary.BigEndian.PutUint32(ihdr[4:], 30000)
	ihdr[8] = 8

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

// multipartBody builds a form with one part named field. The filename is
// written verbatim so an empty filename can be sent.
func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	hdr.Set("Content-Type", "application/octet-stream")
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func post(t *testing.T, r http.Handler, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func expectPage(t *testing.T, rec *httptest.ResponseRecorder, contains ...string) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<form") {
		t.Fatal("page should always contain the upload form")
	}
	for _, s := range contains {
		if !strings.Contains(body, s) {
			t.Fatalf("expected page to contain %q:\n%s", s, body)
		}
	}
}

func expectNoResult(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if strings.Contains(rec.Body.String(), `class="result"`) {
		t.Fatal("error page must not contain a prediction result")
	}
}

func TestIndex(t *testing.T) {
	r := newRouter(t, headLice(), advice.Default(), 0)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	expectPage(t, rec, `name="file"`, "Tinea Capitis")
	expectNoResult(t, rec)
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
}

func TestUploadSuccess(t *testing.T) {
	r := newRouter(t, headLice(), advice.Default(), 0)

	for _, path := range []string{"/", "/predict"} {
		body, ct := multipartBody(t, "file", "scalp.png", pngBytes(t))
		rec := post(t, r, path, body, ct)
		expectPage(t, rec,
			"Head Lice",
			"97.43%",
			"Use an approved lice treatment shampoo or lotion and repeat after 7 to 10 days.",
			"Check and treat all household members at the same time.",
		)
	}
}

func TestUploadMissingFilePart(t *testing.T) {
	r := newRouter(t, headLice(), advice.Default(), 0)

	body, ct := multipartBody(t, "image", "scalp.png", pngBytes(t))
	rec := post(t, r, "/", body, ct)
	expectPage(t, rec, MsgNoFilePart)
	expectNoResult(t, rec)

	rec = post(t, r, "/", strings.NewReader("file=abc"), "application/x-www-form-urlencoded")
	expectPage(t, rec, MsgNoFilePart)
	expectNoResult(t, rec)

	rec = post(t, r, "/", nil, "")
	expectPage(t, rec, MsgNoFilePart)
}

func TestUploadEmptyFilename(t *testing.T) {
	r := newRouter(t, headLice(), advice.Default(), 0)
	body, ct := multipartBody(t, "file", "", nil)
	rec := post(t, r, "/", body, ct)
	expectPage(t, rec, MsgNoSelectedFile)
	expectNoResult(t, rec)
}

func TestUploadEmptyFile(t *testing.T) {
	r := newRouter(t, headLice(), advice.Default(), 0)
	body, ct := multipartBody(t, "file", "scalp.png", nil)
	rec := post(t, r, "/", body, ct)
	expectPage(t, rec, MsgEmptyFile)
}

func TestUploadTooLarge(t *testing.T) {
	r := newRouter(t, headLice(), advice.Default(), 64)
	body, ct := multipartBody(t, "file", "scalp.png", pngBytes(t))
	rec := post(t, r, "/", body, ct)
	expectPage(t, rec, MsgTooLarge)
	expectNoResult(t, rec)
}

func TestDecodeErrorKeepsServing(t *testing.T) {
	r := newRouter(t, headLice(), advice.Default(), 0)

	body, ct := multipartBody(t, "file", "notes.txt", []byte("this is not an image"))
	rec := post(t, r, "/", body, ct)
	expectPage(t, rec, MsgDecode)
	expectNoResult(t, rec)

	body, ct = multipartBody(t, "file", "scalp.png", pngBytes(t))
	rec = post(t, r, "/", body, ct)
	expectPage(t, rec, "Head Lice", "97.43%")
}

func TestOversizedImageKeepsServing(t *testing.T) {
	r := newRouter(t, headLice(), advice.Default(), 0)

	body, ct := multipartBody(t, "file", "huge.png", oversizedPNG())
	rec := post(t, r, "/", body, ct)
	expectPage(t, rec, MsgDecode)
	expectNoResult(t, rec)

	body, ct = multipartBody(t, "file", "scalp.png", pngBytes(t))
	rec = post(t, r, "/", body, ct)
	expectPage(t, rec, "Head Lice", "97.43%")
}

func TestModelUnavailable(t *testing.T) {
	r := newRouter(t, nil, advice.Default(), 0)

	body, ct := multipartBody(t, "file", "scalp.png", pngBytes(t))
	rec := post(t, r, "/", body, ct)
	expectPage(t, rec, MsgModelUnavailable)
	expectNoResult(t, rec)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"degraded"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestInferenceErrorIsGeneric(t *testing.T) {
	r := newRouter(t, &stubPredictor{err: errors.New("onnx: secret internal failure")}, advice.Default(), 0)

	body, ct := multipartBody(t, "file", "scalp.png", pngBytes(t))
	rec := post(t, r, "/", body, ct)
	expectPage(t, rec, MsgInference)
	if strings.Contains(rec.Body.String(), "secret internal failure") {
		t.Fatal("internal error details leaked into the page")
	}
}

func TestMissingAdviceStillShowsPrediction(t *testing.T) {
	r := newRouter(t, headLice(), advice.New(nil), 0)

	body, ct := multipartBody(t, "file", "scalp.png", pngBytes(t))
	rec := post(t, r, "/", body, ct)
	expectPage(t, rec, "Head Lice", "97.43%", "No remedies recorded", "No cautions recorded")
}

func TestHealth(t *testing.T) {
	r := newRouter(t, headLice(), advice.Default(), 0)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"healthy"`) || !strings.Contains(rec.Body.String(), `"model_loaded":true`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(t, headLice(), advice.Default(), 0)
	body, ct := multipartBody(t, "file", "scalp.png", pngBytes(t))
	post(t, r, "/", body, ct)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), "hairscan_predictions_total") {
		t.Fatal("prediction counter not exported")
	}
}

type apiResult struct {
	ClassName     string             `json:"class_name"`
	Confidence    string             `json:"confidence"`
	Remedies      []string           `json:"remedies"`
	Cautions      []string           `json:"cautions"`
	Probabilities map[string]float32 `json:"probabilities"`
}

type apiError struct {
	Error string `json:"error"`
}

func TestPredictJSON(t *testing.T) {
	srv := httptest.NewServer(newRouter(t, headLice(), advice.Default(), 0))
	defer srv.Close()

	var res apiResult
	client := resty.New()
	resp, err := client.R().
		SetFileReader("file", "scalp.png", bytes.NewReader(pngBytes(t))).
		SetResult(&res).
		Post(srv.URL + "/api/predict")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode(), resp.String())
	}
	if res.ClassName != "Head Lice" || res.Confidence != "97.43%" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Remedies) == 0 || len(res.Probabilities) != len(model.DefaultClassNames) {
		t.Fatalf("incomplete result %+v", res)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}

func TestPredictJSONErrors(t *testing.T) {
	cases := []struct {
		name   string
		pred   model.Predictor
		file   []byte
		status int
		msg    string
	}{
		{"decode", headLice(), []byte("garbage"), http.StatusBadRequest, MsgDecode},
		{"unavailable", nil, nil, http.StatusServiceUnavailable, MsgModelUnavailable},
		{"inference", &stubPredictor{err: errors.New("boom")}, nil, http.StatusInternalServerError, MsgInference},
	}

	for _, c := range cases {
		srv := httptest.NewServer(newRouter(t, c.pred, advice.Default(), 0))
		file := c.file
		if file == nil {
			file = pngBytes(t)
		}

		var res apiError
		resp, err := resty.New().R().
			SetFileReader("file", "scalp.png", bytes.NewReader(file)).
			SetError(&res).
			Post(srv.URL + "/api/predict")
		srv.Close()
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if resp.StatusCode() != c.status || res.Error != c.msg {
			t.Fatalf("%s: got %d %q, want %d %q", c.name, resp.StatusCode(), res.Error, c.status, c.msg)
		}
	}

	srv := httptest.NewServer(newRouter(t, headLice(), advice.Default(), 0))
	defer srv.Close()
	var res apiError
	resp, err := resty.New().R().
		SetFormData(map[string]string{"note": "no file here"}).
		SetError(&res).
		Post(srv.URL + "/api/predict")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode() != http.StatusBadRequest || res.Error != MsgNoFilePart {
		t.Fatalf("got %d %q", resp.StatusCode(), res.Error)
	}
}

func TestPreflight(t *testing.T) {
	r := newRouter(t, headLice(), advice.Default(), 0)
	req := httptest.NewRequest(http.MethodOptions, "/api/predict", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("unexpected preflight response %d %v", rec.Code, rec.Header())
	}
}
