package models

// PatchOperation is one entry of a JSON patch document
type PatchOperation struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

// WorkItemRelation links a work item to another resource
type WorkItemRelation struct {
	Rel        string            `json:"rel"`
	URL        string            `json:"url"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// WorkItemResponse represents a work item returned by the API
type WorkItemResponse struct {
	ID     int                    `json:"id"`
	Rev    int                    `json:"rev"`
	URL    string                 `json:"url"`
	Fields map[string]interface{} `json:"fields"`
}

// WorkItemList represents a batch of work items
type WorkItemList struct {
	Count int                `json:"count"`
	Value []WorkItemResponse `json:"value"`
}

// WiqlQuery is the body of a WIQL request
type WiqlQuery struct {
	Query string `json:"query"`
}

// WiqlResult holds the references matched by a WIQL query
type WiqlResult struct {
	WorkItems []struct {
		ID  int    `json:"id"`
		URL string `json:"url"`
	} `json:"workItems"`
}
