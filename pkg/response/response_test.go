package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestOK_WritesDataWithoutEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OK(c, gin.H{"status": "ok"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("响应不是合法 JSON: %v", err)
	}
	if body["status"] != "ok" || len(body) != 1 {
		t.Errorf("成功响应不应包含信封字段: %v", body)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name       string
		write      func(c *gin.Context)
		wantStatus int
		wantCode   int
		wantDetail string
	}{
		{"BadRequest", func(c *gin.Context) { BadRequest(c, 20002, "bad") }, http.StatusBadRequest, 20002, ""},
		{"NotFound", func(c *gin.Context) { NotFound(c, 20006, "missing") }, http.StatusNotFound, 20006, ""},
		{"TooManyRequests", func(c *gin.Context) { TooManyRequests(c, 10004, "slow down") }, http.StatusTooManyRequests, 10004, ""},
		{"InternalError", InternalError, http.StatusInternalServerError, 50000, ""},
		{"WithDetails", func(c *gin.Context) {
			ErrorWithDetails(c, http.StatusInternalServerError, 20004, "llm", "timeout")
		}, http.StatusInternalServerError, 20004, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.write(c)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			var resp Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("响应不是合法 JSON: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
			if resp.Details != tt.wantDetail {
				t.Errorf("expected details %q, got %q", tt.wantDetail, resp.Details)
			}
		})
	}
}
