package models

// Label represents a repository label
type Label struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

// Milestone represents a repository milestone
type Milestone struct {
	Number      int    `json:"number,omitempty"`
	Title       string `json:"title"`
	State       string `json:"state,omitempty"`
	Description string `json:"description,omitempty"`
}

// IssueRequest is the body used to create an issue
type IssueRequest struct {
	Title     string   `json:"title"`
	Body      string   `json:"body,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Milestone int      `json:"milestone,omitempty"`
}

// Issue represents an issue returned by the API
type Issue struct {
	Number    int     `json:"number"`
	Title     string  `json:"title"`
	State     string  `json:"state"`
	HTMLURL   string  `json:"html_url"`
	Labels    []Label `json:"labels"`
	Milestone *struct {
		Title string `json:"title"`
	} `json:"milestone"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

// Comment represents an issue comment
type Comment struct {
	ID   int64  `json:"id,omitempty"`
	Body string `json:"body"`
}
