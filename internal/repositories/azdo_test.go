package repositories

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indiana/internal/config"
	"indiana/internal/models"
)

func testAzureDevOpsConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.AzureDevOpsURL = url
	cfg.Token = "pat"
	cfg.Organization = "contoso"
	cfg.Project = "Fabrikam Web"
	cfg.Timeout = 5
	return &cfg
}

func TestAzureDevOpsRepository_CreateWorkItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/contoso/Fabrikam Web/_apis/wit/workitems/$User Story", r.URL.Path)
		assert.Equal(t, "7.0", r.URL.Query().Get("api-version"))
		assert.Equal(t, "application/json-patch+json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte(":pat")), r.Header.Get("Authorization"))

		var patch []models.PatchOperation
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		require.Len(t, patch, 1)
		assert.Equal(t, "/fields/System.Title", patch[0].Path)

		json.NewEncoder(w).Encode(models.WorkItemResponse{ID: 17})
	}))
	defer srv.Close()

	repo := NewAzureDevOpsRepository(testAzureDevOpsConfig(srv.URL))
	created, err := repo.CreateWorkItem(context.Background(), "User Story", []models.PatchOperation{
		{Op: "add", Path: "/fields/System.Title", Value: "Login"},
	})

	require.NoError(t, err)
	assert.Equal(t, 17, created.ID)
}

func TestAzureDevOpsRepository_WorkItemURL(t *testing.T) {
	repo := NewAzureDevOpsRepository(testAzureDevOpsConfig("https://dev.azure.com/"))
	assert.Equal(t, "https://dev.azure.com/contoso/Fabrikam%20Web/_apis/wit/workItems/12", repo.WorkItemURL("12"))
}

func TestAzureDevOpsRepository_GetWorkItemsBatches(t *testing.T) {
	var batches []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		batches = append(batches, len(ids))
		list := models.WorkItemList{Count: len(ids)}
		for range ids {
			list.Value = append(list.Value, models.WorkItemResponse{ID: 1})
		}
		json.NewEncoder(w).Encode(list)
	}))
	defer srv.Close()

	ids := make([]int, 450)
	for i := range ids {
		ids[i] = i + 1
	}

	repo := NewAzureDevOpsRepository(testAzureDevOpsConfig(srv.URL))
	items, err := repo.GetWorkItems(context.Background(), ids)

	require.NoError(t, err)
	assert.Len(t, items, 450)
	assert.Equal(t, []int{200, 200, 50}, batches)
}

func TestAzureDevOpsRepository_QueryWorkItemIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/_apis/wit/wiql"))
		var q models.WiqlQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		assert.Contains(t, q.Query, "@project")
		w.Write([]byte(`{"workItems":[{"id":3},{"id":5}]}`))
	}))
	defer srv.Close()

	repo := NewAzureDevOpsRepository(testAzureDevOpsConfig(srv.URL))
	ids, err := repo.QueryWorkItemIDs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int{3, 5}, ids)
}

func TestAzureDevOpsRepository_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad token"))
	}))
	defer srv.Close()

	repo := NewAzureDevOpsRepository(testAzureDevOpsConfig(srv.URL))
	_, err := repo.CreateWorkItem(context.Background(), "Epic", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned status 401: bad token")
}
