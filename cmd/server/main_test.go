package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/microbiome-stage/internal/artifacts"
	"github.com/Skufu/microbiome-stage/internal/config"
	"github.com/Skufu/microbiome-stage/internal/testsupport"
)

func testRouter(t *testing.T, opts testsupport.Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	paths := testsupport.Write(t, opts)
	bundle, err := artifacts.Load(paths, config.InferenceConfig{Backend: config.BackendNative}, zap.NewNop())
	if err != nil {
		t.Fatalf("load artifacts: %v", err)
	}
	return setupRouter(bundle, zap.NewNop())
}

func submit(router http.Handler, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)
	return w
}

func scenarioForm(sex string) url.Values {
	return url.Values{
		"age":          {"45"},
		"fibro_vessel": {"2.3"},
		"sex":          {sex},
		"feature1":     {"0.01"},
		"feature2":     {"0.2"},
		"feature3":     {"0.05"},
		"feature4":     {"0.0"},
	}
}

func TestRouterHealthz(t *testing.T) {
	router := testRouter(t, testsupport.Options{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRouterReadyzReportsSchema(t *testing.T) {
	router := testRouter(t, testsupport.Options{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/readyz", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"features":8`) || !strings.Contains(w.Body.String(), `"backend":"native"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestGetRendersForm(t *testing.T) {
	router := testRouter(t, testsupport.Options{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `<form method="post"`) {
		t.Fatalf("expected form, got %s", w.Body.String())
	}
}

func TestPostPredictsMale(t *testing.T) {
	router := testRouter(t, testsupport.Options{})

	w := submit(router, scenarioForm("Male"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Predicted Diagnosis: Tumor, Predicted Stage: I") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestPostPredictsFemale(t *testing.T) {
	router := testRouter(t, testsupport.Options{})

	w := submit(router, scenarioForm("female"))
	if !strings.Contains(w.Body.String(), "Predicted Diagnosis: Healthy, Predicted Stage: I") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestPostSingleHeadRepeatsLabel(t *testing.T) {
	router := testRouter(t, testsupport.Options{SingleHead: true})

	w := submit(router, scenarioForm("MALE"))
	if !strings.Contains(w.Body.String(), "Predicted Diagnosis: Tumor, Predicted Stage: Tumor") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestPostNonNumericAgeFails(t *testing.T) {
	router := testRouter(t, testsupport.Options{})

	form := scenarioForm("Male")
	form.Set("age", "abc")
	w := submit(router, form)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "Predicted") {
		t.Fatalf("expected no prediction, got %s", w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := testRouter(t, testsupport.Options{})
	submit(router, scenarioForm("Male"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `predictions_total{outcome="ok"}`) {
		t.Fatalf("expected prediction counter in metrics output")
	}
}

// Ensure limitBodySize middleware allows small payloads and blocks large ones.
func TestLimitBodySize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limitBodySize(10))
	router.POST("/echo", func(c *gin.Context) {
		_, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too large"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/echo", strings.NewReader("12345"))
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/echo", strings.NewReader("01234567890"))
		router.ServeHTTP(w, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", w.Code)
		}
	})
}
