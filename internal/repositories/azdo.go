package repositories

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"indiana/internal/config"
	"indiana/internal/models"
)

const (
	azureDevOpsAPIVersion = "7.0"

	// maxBatchSize is the largest id list the work items endpoint accepts
	maxBatchSize = 200
)

// AzureDevOpsRepository handles Azure DevOps work item tracking API interactions
type AzureDevOpsRepository struct {
	baseURL      string
	organization string
	project      string
	token        string
	client       *http.Client
}

// NewAzureDevOpsRepository creates a new Azure DevOps repository
func NewAzureDevOpsRepository(cfg *config.Config) *AzureDevOpsRepository {
	return &AzureDevOpsRepository{
		baseURL:      strings.TrimRight(cfg.AzureDevOpsURL, "/"),
		organization: cfg.Organization,
		project:      cfg.Project,
		token:        cfg.Token,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout(),
		},
	}
}

func (r *AzureDevOpsRepository) projectURL() string {
	return fmt.Sprintf("%s/%s/%s", r.baseURL, url.PathEscape(r.organization), url.PathEscape(r.project))
}

func (r *AzureDevOpsRepository) auth(h http.Header) {
	h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(":"+r.token)))
	h.Set("Accept", "application/json")
}

// WorkItemURL returns the resource URL of the work item with the given id
func (r *AzureDevOpsRepository) WorkItemURL(id string) string {
	return fmt.Sprintf("%s/_apis/wit/workItems/%s", r.projectURL(), id)
}

// CreateWorkItem submits a patch document creating one work item of workItemType
func (r *AzureDevOpsRepository) CreateWorkItem(ctx context.Context, workItemType string, patch []models.PatchOperation) (*models.WorkItemResponse, error) {
	endpoint := fmt.Sprintf("%s/_apis/wit/workitems/$%s?api-version=%s",
		r.projectURL(), url.PathEscape(workItemType), azureDevOpsAPIVersion)

	var created models.WorkItemResponse
	err := doJSON(ctx, r.client, request{
		method:      http.MethodPost,
		url:         endpoint,
		contentType: "application/json-patch+json",
		body:        patch,
		expect:      http.StatusOK,
		header:      r.auth,
	}, &created)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// QueryWorkItemIDs returns the ids of every work item in the project
func (r *AzureDevOpsRepository) QueryWorkItemIDs(ctx context.Context) ([]int, error) {
	endpoint := fmt.Sprintf("%s/_apis/wit/wiql?api-version=%s", r.projectURL(), azureDevOpsAPIVersion)
	query := models.WiqlQuery{
		Query: "SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = @project ORDER BY [System.Id]",
	}

	var result models.WiqlResult
	err := doJSON(ctx, r.client, request{
		method: http.MethodPost,
		url:    endpoint,
		body:   query,
		expect: http.StatusOK,
		header: r.auth,
	}, &result)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(result.WorkItems))
	for _, ref := range result.WorkItems {
		ids = append(ids, ref.ID)
	}
	return ids, nil
}

// GetWorkItems fetches the given work items, batching requests as the API requires
func (r *AzureDevOpsRepository) GetWorkItems(ctx context.Context, ids []int) ([]models.WorkItemResponse, error) {
	var items []models.WorkItemResponse

	for start := 0; start < len(ids); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		parts := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			parts = append(parts, strconv.Itoa(id))
		}

		endpoint := fmt.Sprintf("%s/_apis/wit/workitems?ids=%s&fields=System.Id,System.Title,System.WorkItemType,System.State&api-version=%s",
			r.projectURL(), strings.Join(parts, ","), azureDevOpsAPIVersion)

		var batch models.WorkItemList
		err := doJSON(ctx, r.client, request{
			method: http.MethodGet,
			url:    endpoint,
			expect: http.StatusOK,
			header: r.auth,
		}, &batch)
		if err != nil {
			return nil, err
		}

		items = append(items, batch.Value...)
	}

	return items, nil
}
