package apihandlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		send   func(*gin.Context, string)
		status int
		code   string
	}{
		{"bad request", BadRequest, http.StatusBadRequest, "bad_request"},
		{"not found", NotFound, http.StatusNotFound, "not_found"},
		{"conflict", Conflict, http.StatusConflict, "conflict"},
		{"internal", Internal, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			tc.send(c, "something went wrong")

			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t,
				`{"error":{"code":"`+tc.code+`","message":"something went wrong"}}`,
				w.Body.String())
		})
	}
}
