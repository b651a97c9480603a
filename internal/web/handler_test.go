package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Skufu/microbiome-stage/internal/prediction"
)

type fakePredictor struct {
	res    prediction.Result
	err    error
	called int
}

func (f *fakePredictor) Predict(_ context.Context, lookup prediction.Lookup) (prediction.Result, error) {
	f.called++
	if f.err != nil {
		return prediction.Result{}, f.err
	}
	if _, err := prediction.ParseInputs(lookup); err != nil {
		return prediction.Result{}, err
	}
	return f.res, nil
}

func newRouter(p Predictor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(p, zap.NewNop())
	r := gin.New()
	r.Use(RequestID(), Logger(zap.NewNop()))
	r.SetHTMLTemplate(Templates())
	r.GET("/", h.Form)
	r.POST("/", h.Predict)
	return r
}

func validForm() url.Values {
	return url.Values{
		"age":          {"45"},
		"fibro_vessel": {"2.3"},
		"sex":          {"Male"},
		"feature1":     {"0.01"},
		"feature2":     {"0.2"},
		"feature3":     {"0.05"},
		"feature4":     {"0.0"},
	}
}

func post(r http.Handler, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func TestFormRendersEmpty(t *testing.T) {
	r := newRouter(&fakePredictor{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	for _, field := range []string{"age", "fibro_vessel", "sex", "feature1", "feature2", "feature3", "feature4"} {
		assert.Contains(t, body, fmt.Sprintf(`name="%s"`, field))
	}
	assert.NotContains(t, body, "Predicted Diagnosis")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestPredictRendersResult(t *testing.T) {
	p := &fakePredictor{res: prediction.Result{Diagnosis: "Tumor", Stage: "II"}}
	w := post(newRouter(p), validForm())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Predicted Diagnosis: Tumor, Predicted Stage: II")
	assert.Contains(t, w.Body.String(), `value="45"`)
	assert.Equal(t, 1, p.called)
}

func TestPredictEscapesLabels(t *testing.T) {
	p := &fakePredictor{res: prediction.Result{Diagnosis: "<b>x</b>", Stage: "I"}}
	w := post(newRouter(p), validForm())

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<b>x</b>")
	assert.Contains(t, w.Body.String(), "&lt;b&gt;x&lt;/b&gt;")
}

func TestPredictInputCountRerendersForm(t *testing.T) {
	p := &fakePredictor{err: fmt.Errorf("%w: got 6", prediction.ErrInputCount)}
	w := post(newRouter(p), validForm())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Error: Expected 7 input features.")
}

func TestPredictMalformedInputIsOpaque500(t *testing.T) {
	form := validForm()
	form.Set("age", "abc")
	w := post(newRouter(&fakePredictor{}), form)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestPredictMissingFieldIsOpaque500(t *testing.T) {
	form := validForm()
	form.Del("feature3")
	w := post(newRouter(&fakePredictor{}), form)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestPredictModelErrorIsOpaque500(t *testing.T) {
	w := post(newRouter(&fakePredictor{err: errors.New("boom")}), validForm())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	r := newRouter(&fakePredictor{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
