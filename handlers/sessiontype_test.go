package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sessiontypeRepo "bookflow/database/repository/sessiontype"
	"bookflow/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionTypeRepo struct {
	types []models.SessionType
}

func (f *fakeSessionTypeRepo) GetByID(ctx context.Context, id string) (*models.SessionType, error) {
	for _, st := range f.types {
		if st.ID == id {
			return &st, nil
		}
	}
	return nil, sessiontypeRepo.ErrNotFound
}

func (f *fakeSessionTypeRepo) ListByBuilder(ctx context.Context, builderID string) ([]models.SessionType, error) {
	var out []models.SessionType
	for _, st := range f.types {
		if st.BuilderID == builderID {
			out = append(out, st)
		}
	}
	return out, nil
}

func TestListSessionTypes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeSessionTypeRepo{types: []models.SessionType{
		{ID: "st-1", BuilderID: "builder-1", Title: "Intro call", Price: 5000, Currency: "usd"},
		{ID: "st-2", BuilderID: "builder-2", Title: "Office hours", Price: 0, Currency: "usd"},
	}}
	r := gin.New()
	r.GET("/api/session-types", ListSessionTypes(repo))

	t.Run("filters by builder", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session-types?builderId=builder-1", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			SessionTypes []models.SessionType `json:"sessionTypes"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.SessionTypes, 1)
		assert.Equal(t, "st-1", resp.SessionTypes[0].ID)
	})

	t.Run("unknown builder yields an empty list", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session-types?builderId=builder-3", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"sessionTypes":[]}`, w.Body.String())
	})

	t.Run("builderId is required", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session-types", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
