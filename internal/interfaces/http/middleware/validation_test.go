package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amicale-sp/calendriers/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type startRequest struct {
	Zone       string `json:"zone" binding:"required,max=10"`
	Calendars  int    `json:"calendars_allocated" binding:"gte=0"`
	DonorEmail string `json:"donor_email" binding:"omitempty,email"`
	Provider   string `json:"provider" binding:"omitempty,oneof=stripe helloasso"`
}

func bindAndRespond(body string) *httptest.ResponseRecorder {
	SetupValidator()
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req startRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestHandleValidationError_FieldDetails(t *testing.T) {
	w := bindAndRespond(`{"zone":"","calendars_allocated":-1,"donor_email":"nope","provider":"paypal"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

	messages := make(map[string]string)
	for _, d := range resp.Error.Details {
		messages[d.Field] = d.Message
	}
	assert.Equal(t, "Ce champ est obligatoire", messages["zone"])
	assert.Equal(t, "Doit être supérieur ou égal à 0", messages["calendars_allocated"])
	assert.Equal(t, "Adresse email invalide", messages["donor_email"])
	assert.Equal(t, "Doit être l'une des valeurs : stripe helloasso", messages["provider"])
}

func TestHandleValidationError_MalformedJSON(t *testing.T) {
	w := bindAndRespond(`{"zone":`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "Corps de requête invalide", resp.Error.Details[0].Message)
}

func TestHandleValidationError_Valid(t *testing.T) {
	w := bindAndRespond(`{"zone":"Nord","calendars_allocated":30}`)
	assert.Equal(t, http.StatusOK, w.Code)
}
